package service

import (
	"context"
	"testing"
	"time"

	"jfrhub/internal/model"
	"jfrhub/pkg/folderqueue"
	storemodel "jfrhub/pkg/store/mysql/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReplicatorFixture(t *testing.T, workspaceIDs ...string) (*ReplicatorService, *folderqueue.Queue, *memEventLog) {
	t.Helper()
	queue, err := folderqueue.NewQueue(t.TempDir())
	require.NoError(t, err)

	var rows []*storemodel.Workspace
	for _, id := range workspaceIDs {
		rows = append(rows, &storemodel.Workspace{ID: id})
	}
	eventLog := newMemEventLog()
	svc := NewReplicatorService(queue, &memWorkspaces{rows: rows}, eventLog, nil)
	return svc, queue, eventLog
}

func publishCLIEvent(t *testing.T, queue *folderqueue.Queue, eventID, workspaceID string) {
	t.Helper()
	require.NoError(t, queue.Publish(context.Background(), model.CLIWorkspaceEvent{
		EventID:     eventID,
		WorkspaceID: workspaceID,
		ProjectID:   "p1",
		EventType:   model.EventProjectCreated,
		CreatedAt:   time.Now(),
	}))
}

func TestReplicateAppendsAndAcknowledges(t *testing.T) {
	svc, queue, eventLog := newReplicatorFixture(t, "ws-1")
	ctx := context.Background()

	publishCLIEvent(t, queue, "e1", "ws-1")
	publishCLIEvent(t, queue, "e2", "ws-1")

	replicated, err := svc.Replicate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, replicated)
	assert.Len(t, eventLog.events, 2)

	// Acknowledged files are gone from the inbox.
	messages, err := folderqueue.Poll[model.CLIWorkspaceEvent](ctx, queue)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestReplicateLeavesUnknownWorkspaceFiles(t *testing.T) {
	svc, queue, eventLog := newReplicatorFixture(t, "ws-1")
	ctx := context.Background()

	publishCLIEvent(t, queue, "e1", "ws-1")
	publishCLIEvent(t, queue, "e2", "ws-unknown")

	replicated, err := svc.Replicate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, replicated)
	assert.Len(t, eventLog.events, 1)

	// The unknown-workspace file stays for a later retry.
	messages, err := folderqueue.Poll[model.CLIWorkspaceEvent](ctx, queue)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "ws-unknown", messages[0].Payload.WorkspaceID)
}

func TestReplicateTolerationOfDuplicates(t *testing.T) {
	svc, queue, eventLog := newReplicatorFixture(t, "ws-1")
	ctx := context.Background()

	// The same origin event lands twice, e.g. after a crash between append
	// and acknowledge.
	publishCLIEvent(t, queue, "e1", "ws-1")
	publishCLIEvent(t, queue, "e1", "ws-1")

	_, err := svc.Replicate(ctx)
	require.NoError(t, err)
	assert.Len(t, eventLog.events, 1)

	messages, err := folderqueue.Poll[model.CLIWorkspaceEvent](ctx, queue)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestReplicateEmptyInbox(t *testing.T) {
	svc, _, _ := newReplicatorFixture(t, "ws-1")
	replicated, err := svc.Replicate(context.Background())
	require.NoError(t, err)
	assert.Zero(t, replicated)
}
