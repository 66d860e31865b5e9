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

func newDetectorFixture(statuses map[string]model.RecordingStatus, views map[string]*model.RecordingSession, sessions *memSessionRows) (*DetectorService, *memEventLog, *memMessages) {
	workspaces := &memWorkspaces{rows: []*storemodel.Workspace{{ID: "ws-1"}}}
	projects := &memProjects{rows: []*storemodel.Project{{ID: "local-p1", WorkspaceID: "ws-1", OriginProjectID: "p1"}}}
	eventLog := newMemEventLog()
	messages := &memMessages{}
	status := &fakeStatusSource{statuses: statuses, views: views}
	svc := NewDetectorService(workspaces, projects, sessions, messages, eventLog, status)
	return svc, eventLog, messages
}

func TestDetectFinishesInactiveSession(t *testing.T) {
	sessions := &memSessionRows{rows: []*storemodel.RecordingSession{
		{ID: "s1", ProjectID: "p1", OriginCreatedAt: time.Now().Add(-2 * time.Hour)},
	}}
	svc, eventLog, _ := newDetectorFixture(
		map[string]model.RecordingStatus{"s1": model.StatusFinished},
		map[string]*model.RecordingSession{"s1": {ID: "s1", ProjectID: "p1"}},
		sessions,
	)

	require.NoError(t, svc.Detect(context.Background()))

	require.NotNil(t, sessions.rows[0].FinishedAt)
	require.Len(t, eventLog.events, 1)
	assert.Equal(t, string(model.EventSessionFinished), eventLog.events[0].EventType)
	assert.Equal(t, string(model.CreatorDetectorJob), eventLog.events[0].CreatedBy)
	assert.Equal(t, "s1", eventLog.events[0].SessionID)
}

func TestDetectLeavesActiveSessionAlone(t *testing.T) {
	sessions := &memSessionRows{rows: []*storemodel.RecordingSession{
		{ID: "s1", ProjectID: "p1", OriginCreatedAt: time.Now()},
	}}
	svc, eventLog, _ := newDetectorFixture(
		map[string]model.RecordingStatus{"s1": model.StatusActive},
		nil,
		sessions,
	)

	require.NoError(t, svc.Detect(context.Background()))
	assert.Nil(t, sessions.rows[0].FinishedAt)
	assert.Empty(t, eventLog.events)
}

func TestDetectIsIdempotentAcrossRuns(t *testing.T) {
	sessions := &memSessionRows{rows: []*storemodel.RecordingSession{
		{ID: "s1", ProjectID: "p1", OriginCreatedAt: time.Now().Add(-2 * time.Hour)},
	}}
	svc, eventLog, _ := newDetectorFixture(
		map[string]model.RecordingStatus{"s1": model.StatusFinished},
		map[string]*model.RecordingSession{"s1": {ID: "s1", ProjectID: "p1"}},
		sessions,
	)
	ctx := context.Background()

	require.NoError(t, svc.Detect(ctx))
	require.NoError(t, svc.Detect(ctx))

	// The second pass sees finished_at set and does nothing.
	assert.Len(t, eventLog.events, 1)
}

func TestDetectReportsJVMCrash(t *testing.T) {
	sessions := &memSessionRows{rows: []*storemodel.RecordingSession{
		{ID: "s1", ProjectID: "p1", OriginCreatedAt: time.Now().Add(-2 * time.Hour)},
	}}
	view := &model.RecordingSession{
		ID:        "s1",
		ProjectID: "p1",
		Files: []model.RepositoryFile{
			{Name: "recording-1.jfr", FileType: model.FileTypeJFR},
			{Name: "hs_err_pid1234.log", FileType: model.FileTypeErrorLog},
		},
	}
	svc, _, messages := newDetectorFixture(
		map[string]model.RecordingStatus{"s1": model.StatusFinished},
		map[string]*model.RecordingSession{"s1": view},
		sessions,
	)

	require.NoError(t, svc.Detect(context.Background()))

	require.Len(t, messages.rows, 1)
	assert.Equal(t, storemodel.SeverityAlert, messages.rows[0].Severity)
	assert.Contains(t, messages.rows[0].Content, "hs_err_pid1234.log")
}
