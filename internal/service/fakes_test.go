package service

import (
	"context"
	"sort"
	"time"

	"jfrhub/internal/model"
	storemodel "jfrhub/pkg/store/mysql/model"
)

type memWorkspaces struct {
	rows []*storemodel.Workspace
}

func (m *memWorkspaces) Get(_ context.Context, id string) (*storemodel.Workspace, error) {
	for _, w := range m.rows {
		if w.ID == id {
			return w, nil
		}
	}
	return nil, nil
}

func (m *memWorkspaces) List(context.Context) ([]*storemodel.Workspace, error) {
	return m.rows, nil
}

type memEventLog struct {
	nextID int64
	events []*storemodel.WorkspaceEvent
	dedup  map[string]bool
}

func newMemEventLog() *memEventLog {
	return &memEventLog{dedup: make(map[string]bool)}
}

func (m *memEventLog) Append(_ context.Context, event *storemodel.WorkspaceEvent) error {
	if event.DedupKey != "" && m.dedup[event.DedupKey] {
		return nil
	}
	m.nextID++
	event.ID = m.nextID
	m.events = append(m.events, event)
	if event.DedupKey != "" {
		m.dedup[event.DedupKey] = true
	}
	return nil
}

func (m *memEventLog) ReadFrom(_ context.Context, workspaceID string, afterOffset int64) ([]*storemodel.WorkspaceEvent, error) {
	var out []*storemodel.WorkspaceEvent
	for _, e := range m.events {
		if e.WorkspaceID == workspaceID && e.ID > afterOffset {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memEventLog) ListByWorkspace(_ context.Context, workspaceID string, limit int) ([]*storemodel.WorkspaceEvent, error) {
	var out []*storemodel.WorkspaceEvent
	for _, e := range m.events {
		if e.WorkspaceID == workspaceID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memEventLog) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	newest := make(map[string]int64)
	for _, e := range m.events {
		if e.ID > newest[e.WorkspaceID] {
			newest[e.WorkspaceID] = e.ID
		}
	}
	var kept []*storemodel.WorkspaceEvent
	var deleted int64
	for _, e := range m.events {
		if e.CreatedAt.Before(cutoff) && e.ID != newest[e.WorkspaceID] {
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return deleted, nil
}

type memOffsets struct {
	offsets map[string]int64
}

func newMemOffsets() *memOffsets {
	return &memOffsets{offsets: make(map[string]int64)}
}

func (m *memOffsets) GetOrCreate(_ context.Context, workspaceID, consumerName string) (int64, error) {
	return m.offsets[workspaceID+"/"+consumerName], nil
}

func (m *memOffsets) Update(_ context.Context, workspaceID, consumerName string, offset int64) error {
	key := workspaceID + "/" + consumerName
	if offset > m.offsets[key] {
		m.offsets[key] = offset
	}
	return nil
}

type memProjects struct {
	rows []*storemodel.Project
}

func (m *memProjects) GetByOriginID(_ context.Context, originID string) (*storemodel.Project, error) {
	for _, p := range m.rows {
		if p.OriginProjectID == originID {
			return p, nil
		}
	}
	return nil, nil
}

func (m *memProjects) ListByWorkspace(_ context.Context, workspaceID string) ([]*storemodel.Project, error) {
	var out []*storemodel.Project
	for _, p := range m.rows {
		if p.WorkspaceID == workspaceID {
			out = append(out, p)
		}
	}
	return out, nil
}

type memSessionRows struct {
	rows []*storemodel.RecordingSession
}

func (m *memSessionRows) ListByProject(_ context.Context, projectID string) ([]*storemodel.RecordingSession, error) {
	var out []*storemodel.RecordingSession
	for _, s := range m.rows {
		if s.ProjectID == projectID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OriginCreatedAt.After(out[j].OriginCreatedAt) })
	return out, nil
}

func (m *memSessionRows) FindUnfinished(_ context.Context, projectID string) ([]*storemodel.RecordingSession, error) {
	var out []*storemodel.RecordingSession
	for _, s := range m.rows {
		if s.ProjectID == projectID && s.FinishedAt == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memSessionRows) MarkFinished(_ context.Context, sessionID string, finishedAt time.Time) (bool, error) {
	for _, s := range m.rows {
		if s.ID == sessionID && s.FinishedAt == nil {
			s.FinishedAt = &finishedAt
			return true, nil
		}
	}
	return false, nil
}

type memInstances struct {
	deletedBefore []time.Time
	deleteCount   int64
}

func (m *memInstances) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.deletedBefore = append(m.deletedBefore, cutoff)
	return m.deleteCount, nil
}

type memMessages struct {
	rows []*storemodel.Message
}

func (m *memMessages) Create(_ context.Context, message *storemodel.Message) error {
	m.rows = append(m.rows, message)
	return nil
}

func (m *memMessages) ListByProject(_ context.Context, projectID string, _ int) ([]*storemodel.Message, error) {
	var out []*storemodel.Message
	for _, msg := range m.rows {
		if msg.ProjectID == projectID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessages) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	var kept []*storemodel.Message
	var deleted int64
	for _, msg := range m.rows {
		if msg.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, msg)
	}
	m.rows = kept
	return deleted, nil
}

// fakeStatusSource drives the detector with scripted statuses and views
type fakeStatusSource struct {
	statuses map[string]model.RecordingStatus
	views    map[string]*model.RecordingSession
}

func (f *fakeStatusSource) SessionStatus(row *storemodel.RecordingSession) model.RecordingStatus {
	if status, ok := f.statuses[row.ID]; ok {
		return status
	}
	return model.StatusActive
}

func (f *fakeStatusSource) SingleSession(_ context.Context, sessionID string, _ bool) (*model.RecordingSession, error) {
	return f.views[sessionID], nil
}

// fakeCompressionStorage records which sessions got compressed
type fakeCompressionStorage struct {
	sessions   map[string][]model.RecordingSession
	compressed []string
}

func (f *fakeCompressionStorage) ListSessions(_ context.Context, projectID string, _ bool) ([]model.RecordingSession, error) {
	return f.sessions[projectID], nil
}

func (f *fakeCompressionStorage) CompressSession(_ context.Context, sessionID string) error {
	f.compressed = append(f.compressed, sessionID)
	return nil
}
