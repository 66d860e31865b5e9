package service

import (
	"context"
	"testing"
	"time"

	"jfrhub/internal/model"
	storemodel "jfrhub/pkg/store/mysql/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRetentionFixture(sessions *memSessionRows, policy RetentionPolicy) (*RetentionService, *memEventLog, *memMessages, *memInstances) {
	workspaces := &memWorkspaces{rows: []*storemodel.Workspace{{ID: "ws-1"}}}
	projects := &memProjects{rows: []*storemodel.Project{{WorkspaceID: "ws-1", OriginProjectID: "p1"}}}
	eventLog := newMemEventLog()
	messages := &memMessages{}
	instances := &memInstances{}
	svc := NewRetentionService(workspaces, projects, sessions, instances, eventLog, messages, nil, nil, policy)
	return svc, eventLog, messages, instances
}

func finishedSession(id string, createdAt, finishedAt time.Time) *storemodel.RecordingSession {
	return &storemodel.RecordingSession{
		ID:              id,
		ProjectID:       "p1",
		OriginCreatedAt: createdAt,
		FinishedAt:      &finishedAt,
	}
}

func TestCleanSessionsKeepsNewest(t *testing.T) {
	old := time.Now().Add(-30 * 24 * time.Hour)
	sessions := &memSessionRows{rows: []*storemodel.RecordingSession{
		finishedSession("s1", old, old),
		finishedSession("s2", old.Add(time.Hour), old.Add(time.Hour)),
	}}
	svc, eventLog, _, _ := newRetentionFixture(sessions, RetentionPolicy{SessionTTL: 7 * 24 * time.Hour})

	require.NoError(t, svc.CleanSessions(context.Background()))

	// Both sessions are past the TTL, but the newest one always survives.
	require.Len(t, eventLog.events, 1)
	assert.Equal(t, "s1", eventLog.events[0].SessionID)
	assert.Equal(t, string(model.EventSessionDeleted), eventLog.events[0].EventType)
	assert.Equal(t, string(model.CreatorRetentionJob), eventLog.events[0].CreatedBy)
}

func TestCleanSessionsSkipsFreshAndUnfinished(t *testing.T) {
	now := time.Now()
	old := now.Add(-30 * 24 * time.Hour)
	unfinished := &storemodel.RecordingSession{ID: "s-live", ProjectID: "p1", OriginCreatedAt: old}
	sessions := &memSessionRows{rows: []*storemodel.RecordingSession{
		finishedSession("s-new", now, now),
		finishedSession("s-fresh", now.Add(-time.Hour), now.Add(-time.Hour)),
		unfinished,
	}}
	svc, eventLog, _, _ := newRetentionFixture(sessions, RetentionPolicy{SessionTTL: 7 * 24 * time.Hour})

	require.NoError(t, svc.CleanSessions(context.Background()))

	// Fresh sessions and sessions still recording are never deleted.
	assert.Empty(t, eventLog.events)
}

func TestCleanSessionsEmitsStableDedupKeys(t *testing.T) {
	old := time.Now().Add(-30 * 24 * time.Hour)
	sessions := &memSessionRows{rows: []*storemodel.RecordingSession{
		finishedSession("s1", old, old),
		finishedSession("s2", old.Add(time.Hour), old.Add(time.Hour)),
	}}
	svc, eventLog, _, _ := newRetentionFixture(sessions, RetentionPolicy{SessionTTL: 7 * 24 * time.Hour})
	ctx := context.Background()

	// Two runs before the synchronizer had a chance to apply the deletion
	// must not produce a second deletion event.
	require.NoError(t, svc.CleanSessions(ctx))
	require.NoError(t, svc.CleanSessions(ctx))
	assert.Len(t, eventLog.events, 1)
}

func TestCleanInstances(t *testing.T) {
	svc, _, _, instances := newRetentionFixture(&memSessionRows{}, RetentionPolicy{InstanceTTL: 24 * time.Hour})
	instances.deleteCount = 3

	require.NoError(t, svc.CleanInstances(context.Background()))
	require.Len(t, instances.deletedBefore, 1)
	assert.WithinDuration(t, time.Now().Add(-24*time.Hour), instances.deletedBefore[0], time.Minute)
}

func TestCleanDataAgesOutEventsAndMessages(t *testing.T) {
	svc, eventLog, messages, _ := newRetentionFixture(&memSessionRows{}, RetentionPolicy{
		EventTTL:   7 * 24 * time.Hour,
		MessageTTL: 7 * 24 * time.Hour,
	})
	ctx := context.Background()

	old := time.Now().Add(-30 * 24 * time.Hour)
	require.NoError(t, eventLog.Append(ctx, &storemodel.WorkspaceEvent{WorkspaceID: "ws-1", DedupKey: "old", CreatedAt: old}))
	require.NoError(t, eventLog.Append(ctx, &storemodel.WorkspaceEvent{WorkspaceID: "ws-1", DedupKey: "new", CreatedAt: time.Now()}))
	messages.rows = []*storemodel.Message{
		{ProjectID: "p1", CreatedAt: old},
		{ProjectID: "p1", CreatedAt: time.Now()},
	}

	require.NoError(t, svc.CleanData(ctx))

	assert.Len(t, eventLog.events, 1)
	assert.Len(t, messages.rows, 1)
}
