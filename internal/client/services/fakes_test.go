package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"timecapsule/internal/client/models"
	"timecapsule/internal/common"
)

// fakeClient implements client.Client with per-method function hooks. A nil
// hook fails the call so tests notice unexpected traffic.
type fakeClient struct {
	requestNewIdFn func(ctx context.Context) (string, error)
	loadHistoryFn  func(ctx context.Context, deviceId, sessionId string) ([]models.ChatMessage, error)
	sendMessageFn  func(ctx context.Context, deviceId, sessionId, correlationId, content string) (*models.ChatMessage, error)
	clearSessionFn func(ctx context.Context, deviceId, sessionId string) error
	listDiaryFn    func(ctx context.Context, deviceId string) ([]models.DiaryEntry, error)
	createDiaryFn  func(ctx context.Context, deviceId string, entry *models.DiaryEntry) (*models.DiaryEntry, error)
	updateDiaryFn  func(ctx context.Context, deviceId string, entry *models.DiaryEntry) (*models.DiaryEntry, error)
	deleteDiaryFn  func(ctx context.Context, deviceId, entryId string) error
}

var errFakeNotConfigured = errors.New("fake client: call not configured")

func (f *fakeClient) Close() error { return nil }

func (f *fakeClient) RequestNewId(ctx context.Context) (string, error) {
	if f.requestNewIdFn == nil {
		return "", errFakeNotConfigured
	}
	return f.requestNewIdFn(ctx)
}

func (f *fakeClient) LoadHistory(ctx context.Context, deviceId, sessionId string) ([]models.ChatMessage, error) {
	if f.loadHistoryFn == nil {
		return nil, errFakeNotConfigured
	}
	return f.loadHistoryFn(ctx, deviceId, sessionId)
}

func (f *fakeClient) SendMessage(ctx context.Context, deviceId, sessionId, correlationId, content string) (*models.ChatMessage, error) {
	if f.sendMessageFn == nil {
		return nil, errFakeNotConfigured
	}
	return f.sendMessageFn(ctx, deviceId, sessionId, correlationId, content)
}

func (f *fakeClient) ClearSession(ctx context.Context, deviceId, sessionId string) error {
	if f.clearSessionFn == nil {
		return errFakeNotConfigured
	}
	return f.clearSessionFn(ctx, deviceId, sessionId)
}

func (f *fakeClient) ListDiaryEntries(ctx context.Context, deviceId string) ([]models.DiaryEntry, error) {
	if f.listDiaryFn == nil {
		return nil, errFakeNotConfigured
	}
	return f.listDiaryFn(ctx, deviceId)
}

func (f *fakeClient) CreateDiaryEntry(ctx context.Context, deviceId string, entry *models.DiaryEntry) (*models.DiaryEntry, error) {
	if f.createDiaryFn == nil {
		return nil, errFakeNotConfigured
	}
	return f.createDiaryFn(ctx, deviceId, entry)
}

func (f *fakeClient) UpdateDiaryEntry(ctx context.Context, deviceId string, entry *models.DiaryEntry) (*models.DiaryEntry, error) {
	if f.updateDiaryFn == nil {
		return nil, errFakeNotConfigured
	}
	return f.updateDiaryFn(ctx, deviceId, entry)
}

func (f *fakeClient) DeleteDiaryEntry(ctx context.Context, deviceId, entryId string) error {
	if f.deleteDiaryFn == nil {
		return errFakeNotConfigured
	}
	return f.deleteDiaryFn(ctx, deviceId, entryId)
}

// fakeTier is an in-memory identity tier with switchable failure modes.
type fakeTier struct {
	mu       sync.Mutex
	name     string
	id       *models.DeviceIdentity
	broken   bool
	saveFail bool
	saves    int
}

func (t *fakeTier) Name() string { return t.name }

func (t *fakeTier) Load(ctx context.Context) (*models.DeviceIdentity, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.broken {
		return nil, common.ErrTierUnavailable
	}
	if t.id == nil {
		return nil, common.ErrNotFound
	}
	copy := *t.id
	return &copy, nil
}

func (t *fakeTier) Save(ctx context.Context, id *models.DeviceIdentity) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.broken || t.saveFail {
		return common.ErrTierUnavailable
	}
	copy := *id
	t.id = &copy
	t.saves++
	return nil
}

func (t *fakeTier) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.broken {
		return common.ErrTierUnavailable
	}
	t.id = nil
	return nil
}

func (t *fakeTier) stored() *models.DeviceIdentity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.id
}

// fakeDiaryRepo is an in-memory diary.Repository.
type fakeDiaryRepo struct {
	mu      sync.Mutex
	entries map[string]models.DiaryEntry
}

func newFakeDiaryRepo() *fakeDiaryRepo {
	return &fakeDiaryRepo{entries: make(map[string]models.DiaryEntry)}
}

func (r *fakeDiaryRepo) Upsert(ctx context.Context, entry *models.DiaryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.Id] = *entry
	return nil
}

func (r *fakeDiaryRepo) GetAll(ctx context.Context) ([]models.DiaryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.DiaryEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}

func (r *fakeDiaryRepo) GetByID(ctx context.Context, id string) (*models.DiaryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &e, nil
}

func (r *fakeDiaryRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[id]; !ok {
		return common.ErrNotFound
	}
	delete(r.entries, id)
	return nil
}

func (r *fakeDiaryRepo) GetAllLocalOnly(ctx context.Context) ([]*models.DiaryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.DiaryEntry
	for _, e := range r.entries {
		if e.LocalOnly() {
			copy := e
			out = append(out, &copy)
		}
	}
	return out, nil
}

func (r *fakeDiaryRepo) Promote(ctx context.Context, oldId string, entry *models.DiaryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[oldId]; !ok {
		return common.ErrNotFound
	}
	delete(r.entries, oldId)
	r.entries[entry.Id] = *entry
	return nil
}

func (r *fakeDiaryRepo) get(id string) (models.DiaryEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return e, ok
}

// sinkEvent is one rendered conversation event captured by recordingSink.
type sinkEvent struct {
	kind string
	text string
}

// recordingSink captures sink calls on a channel so tests can wait for them
// deterministically.
type recordingSink struct {
	events chan sinkEvent
}

func newRecordingSink() *recordingSink {
	return &recordingSink{events: make(chan sinkEvent, 128)}
}

func (s *recordingSink) UserMessage(msg models.ChatMessage) {
	s.events <- sinkEvent{kind: "user", text: msg.Content}
}

func (s *recordingSink) AIMessage(msg models.ChatMessage) {
	s.events <- sinkEvent{kind: "ai", text: msg.Content}
}

func (s *recordingSink) SystemMessage(text string) {
	s.events <- sinkEvent{kind: "system", text: text}
}

func (s *recordingSink) ErrorMessage(text string) {
	s.events <- sinkEvent{kind: "error", text: text}
}

func (s *recordingSink) next(t *testing.T) sinkEvent {
	t.Helper()
	select {
	case ev := <-s.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sink event")
		return sinkEvent{}
	}
}
