package compress

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"jfrhub/pkg/logger"

	"github.com/pierrec/lz4/v4"
)

// LZ4Suffix is appended to compressed recording files
const LZ4Suffix = ".lz4"

// IsCompressed reports whether the path already carries the LZ4 suffix
func IsCompressed(path string) bool {
	return strings.HasSuffix(path, LZ4Suffix)
}

// CompressedPath retrieves the sibling path a compressed copy of path gets
func CompressedPath(path string) string {
	return path + LZ4Suffix
}

// EnsureCompressed compresses the file at path into a sibling <path>.lz4 and
// deletes the original afterwards. The archive is written to a temporary name
// and renamed into place only after the LZ4 frame is fully flushed, so a
// non-empty <path>.lz4 is always a complete archive and the original is never
// removed before one exists. A crash mid-compress leaves at worst a stale
// <path>.lz4.tmp, which the next run overwrites. Returns the compressed path.
//
// When the compressed sibling already exists the call is a no-op apart from
// removing a leftover original.
func EnsureCompressed(ctx context.Context, path string) (string, error) {
	if IsCompressed(path) {
		return path, nil
	}

	target := CompressedPath(path)
	if verified(target) {
		// A previous run compressed but crashed before deleting the original.
		if err := removeOriginal(path); err != nil {
			return "", err
		}
		return target, nil
	}

	if err := compressFile(path, target); err != nil {
		os.Remove(target)
		return "", err
	}

	if !verified(target) {
		os.Remove(target)
		return "", fmt.Errorf("compressed file %s missing or empty after compression", target)
	}

	if err := removeOriginal(path); err != nil {
		return "", err
	}
	logger.DebugCtx(ctx, "compressed %s", path)
	return target, nil
}

// Decompress streams the LZ4 frame at src into w
func Decompress(src string, w io.Writer) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open compressed file: %w", err)
	}
	defer in.Close()

	if _, err := io.Copy(w, lz4.NewReader(in)); err != nil {
		return fmt.Errorf("failed to decompress %s: %w", src, err)
	}
	return nil
}

// compressFile writes the archive to dst+".tmp" and renames it to dst after a
// successful flush. An interrupted run therefore never leaves a partial
// archive under the final name.
func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	zw := lz4.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to compress %s: %w", src, err)
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to finish compression of %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to flush %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", tmp, err)
	}
	return nil
}

func verified(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

func removeOriginal(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove original %s: %w", path, err)
	}
	return nil
}
