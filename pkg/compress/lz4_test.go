package compress

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCompressedRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "recording.jfr")
	content := bytes.Repeat([]byte("jfr-chunk-data "), 1024)
	require.NoError(t, os.WriteFile(src, content, 0o644))

	compressed, err := EnsureCompressed(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, src+LZ4Suffix, compressed)

	// Original is gone, compressed file is non-empty.
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	info, err := os.Stat(compressed)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	var out bytes.Buffer
	require.NoError(t, Decompress(compressed, &out))
	assert.Equal(t, content, out.Bytes())
}

func TestEnsureCompressedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "recording.jfr")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	first, err := EnsureCompressed(ctx, src)
	require.NoError(t, err)

	// Already-compressed path is returned unchanged.
	second, err := EnsureCompressed(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestEnsureCompressedResumesAfterCrash(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "recording.jfr")
	content := bytes.Repeat([]byte("x"), 4096)
	require.NoError(t, os.WriteFile(src, content, 0o644))

	// Simulate a crash between compression and original removal.
	compressed, err := EnsureCompressed(ctx, src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(src, content, 0o644))

	again, err := EnsureCompressed(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, compressed, again)
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
}

func TestEnsureCompressedOverwritesInterruptedArchive(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "recording.jfr")
	content := bytes.Repeat([]byte("y"), 8192)
	require.NoError(t, os.WriteFile(src, content, 0o644))

	// A crash mid-compression leaves a truncated archive under the temporary
	// name. It must never survive as the compressed file.
	tmp := CompressedPath(src) + ".tmp"
	require.NoError(t, os.WriteFile(tmp, []byte("xxx"), 0o644))

	compressed, err := EnsureCompressed(ctx, src)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Decompress(compressed, &out))
	assert.Equal(t, content, out.Bytes())

	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err))
}

func TestEnsureCompressedDistrustsEmptyArchive(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "recording.jfr")
	content := bytes.Repeat([]byte("z"), 4096)
	require.NoError(t, os.WriteFile(src, content, 0o644))

	// A zero-byte sibling is not a valid archive and must be recompressed
	// rather than taken as proof the original can go.
	require.NoError(t, os.WriteFile(CompressedPath(src), nil, 0o644))

	compressed, err := EnsureCompressed(ctx, src)
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, Decompress(compressed, &out))
	assert.Equal(t, content, out.Bytes())
}

func TestEnsureCompressedMissingSource(t *testing.T) {
	ctx := context.Background()
	_, err := EnsureCompressed(ctx, filepath.Join(t.TempDir(), "absent.jfr"))
	assert.Error(t, err)
}
