package folderqueue

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Kind  string `json:"kind"`
	Order int    `json:"order"`
}

func TestPublishAndPollOrder(t *testing.T) {
	q, err := NewQueue(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Publish(ctx, testPayload{Kind: "event", Order: i}))
	}

	messages, err := Poll[testPayload](ctx, q)
	require.NoError(t, err)
	require.Len(t, messages, 5)
	for i, msg := range messages {
		assert.Equal(t, i, msg.Payload.Order)
	}
}

func TestPollSkipsMalformedFiles(t *testing.T) {
	q, err := NewQueue(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, testPayload{Kind: "good"}))
	require.NoError(t, os.WriteFile(filepath.Join(q.Dir(), "0000000000001-broken.json"), []byte("{not json"), 0o644))

	messages, err := Poll[testPayload](ctx, q)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "good", messages[0].Payload.Kind)

	// Malformed file stays in place and is skipped again on the next poll.
	messages, err = Poll[testPayload](ctx, q)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestAcknowledgeMovesToProcessed(t *testing.T) {
	q, err := NewQueue(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, q.Publish(ctx, testPayload{Kind: "a"}))
	require.NoError(t, q.Publish(ctx, testPayload{Kind: "b"}))

	messages, err := Poll[testPayload](ctx, q)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	names := []string{messages[0].FileName, messages[1].FileName}
	require.NoError(t, q.Acknowledge(ctx, names))

	messages, err = Poll[testPayload](ctx, q)
	require.NoError(t, err)
	assert.Empty(t, messages)

	for _, name := range names {
		_, err := os.Stat(filepath.Join(q.Dir(), processedDirName, name))
		assert.NoError(t, err)
	}

	// Acknowledging already-moved files is a no-op.
	assert.NoError(t, q.Acknowledge(ctx, names))
}

func TestCleanupDeletesOldProcessedFiles(t *testing.T) {
	q, err := NewQueue(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()
	processedDir := filepath.Join(q.Dir(), processedDirName)

	oldName := "0000000000500-old.json"
	freshName := "9999999999999-fresh.json"
	require.NoError(t, os.WriteFile(filepath.Join(processedDir, oldName), []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(processedDir, freshName), []byte("{}"), 0o644))

	deleted, err := q.Cleanup(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = os.Stat(filepath.Join(processedDir, oldName))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(processedDir, freshName))
	assert.NoError(t, err)
}

func TestWatcherSignalsOnPublish(t *testing.T) {
	q, err := NewQueue(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	w, err := NewWatcher(q)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, q.Publish(ctx, testPayload{Kind: "ping"}))

	select {
	case <-w.Notify():
	case <-time.After(3 * time.Second):
		t.Fatal("expected watcher notification after publish")
	}
}
