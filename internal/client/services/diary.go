package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"timecapsule/internal/client/client"
	"timecapsule/internal/client/models"
	"timecapsule/internal/client/repositories/diary"
	"timecapsule/internal/common"
	"timecapsule/internal/logging"
)

const (
	diaryRetryCount   = 2
	diaryRetryBackoff = 500 * time.Millisecond
)

// DiaryService is the offline-tolerant diary layer: every mutation tries the
// server first with a small bounded retry, and degrades to a local-only
// record when the server stays unreachable. Local-only entries carry a
// temporary "local-" id and a visible not-yet-synced state; an explicit
// Sync call reconciles them later.
type DiaryService struct {
	client   client.Client
	repo     diary.Repository
	log      logging.Logger
	deviceId string
}

func NewDiaryService(c client.Client, repo diary.Repository, log logging.Logger, deviceId string) *DiaryService {
	if log == nil {
		log = logging.Nop{}
	}
	return &DiaryService{client: c, repo: repo, log: log, deviceId: deviceId}
}

// withRetry runs fn, retrying only transient unavailability. Server-side
// rejections (validation, ownership) surface immediately.
//
// A caller deadline that expires mid-attempt makes retry.Do return the bare
// context error; a server that hangs past the deadline is just as
// unreachable as one that refuses the connection, so that outcome keeps the
// sentinel the offline fallbacks match on.
func (s *DiaryService) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(diaryRetryCount, retry.NewConstant(diaryRetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, common.ErrUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil || errors.Is(err, common.ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", common.ErrUnavailable, err)
	}
	return err
}

// Create stores a new entry, falling back to a local-only record with a
// temporary id when the server cannot be reached.
func (s *DiaryService) Create(ctx context.Context, entry *models.DiaryEntry) (*models.DiaryEntry, error) {
	var created *models.DiaryEntry
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.client.CreateDiaryEntry(ctx, s.deviceId, entry)
		return err
	})
	if err == nil {
		created.SyncState = models.SyncStateSynced
		s.cache(ctx, created)
		return created, nil
	}
	if !errors.Is(err, common.ErrUnavailable) {
		return nil, err
	}

	local := *entry
	local.Id = models.NewLocalId()
	local.SyncState = models.SyncStateLocalOnly
	local.UpdatedAt = time.Now().UTC()
	if err := s.repo.Upsert(ctx, &local); err != nil {
		return nil, fmt.Errorf("failed to store entry locally: %w", err)
	}
	s.log.Warn(ctx, "diary entry stored locally only", "id", local.Id)
	return &local, nil
}

// Update edits an entry. Edits to entries the server has never seen stay
// local; edits to synced entries degrade to local-only on unavailability,
// keeping the server id so a later Sync can push them.
func (s *DiaryService) Update(ctx context.Context, entry *models.DiaryEntry) (*models.DiaryEntry, error) {
	if models.IsLocalId(entry.Id) {
		entry.SyncState = models.SyncStateLocalOnly
		entry.UpdatedAt = time.Now().UTC()
		if err := s.repo.Upsert(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to update local entry: %w", err)
		}
		return entry, nil
	}

	var updated *models.DiaryEntry
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.client.UpdateDiaryEntry(ctx, s.deviceId, entry)
		return err
	})
	if err == nil {
		updated.SyncState = models.SyncStateSynced
		s.cache(ctx, updated)
		return updated, nil
	}
	if !errors.Is(err, common.ErrUnavailable) {
		return nil, err
	}

	entry.SyncState = models.SyncStateLocalOnly
	entry.UpdatedAt = time.Now().UTC()
	if err := s.repo.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to store updated entry locally: %w", err)
	}
	s.log.Warn(ctx, "diary update stored locally only", "id", entry.Id)
	return entry, nil
}

// Delete removes an entry. Local-only creations are deleted locally; for
// synced entries the server must confirm, so the user can retry when
// offline rather than silently diverging.
func (s *DiaryService) Delete(ctx context.Context, id string) error {
	if models.IsLocalId(id) {
		return s.repo.DeleteByID(ctx, id)
	}

	err := s.withRetry(ctx, func(ctx context.Context) error {
		return s.client.DeleteDiaryEntry(ctx, s.deviceId, id)
	})
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		s.log.Warn(ctx, "failed to drop cached entry", "id", id, "error", err)
	}
	return nil
}

// Get returns one entry from the local cache.
func (s *DiaryService) Get(ctx context.Context, id string) (*models.DiaryEntry, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all entries. When the server answers, its entries refresh the
// local cache; when it does not, the cached copies (including local-only
// ones) are served instead.
func (s *DiaryService) List(ctx context.Context) ([]models.DiaryEntry, error) {
	remote, err := s.client.ListDiaryEntries(ctx, s.deviceId)
	if err != nil {
		if !errors.Is(err, common.ErrUnavailable) {
			return nil, err
		}
		s.log.Warn(ctx, "serving diary from local cache", "error", err)
		return s.repo.GetAll(ctx)
	}

	for i := range remote {
		remote[i].SyncState = models.SyncStateSynced
		s.cache(ctx, &remote[i])
	}
	return s.repo.GetAll(ctx)
}

// Sync pushes local-only entries to the server: entries with temporary ids
// are created (and promoted to their server ids), locally edited synced
// entries are updated. It returns how many entries were reconciled; entries
// that still fail stay local-only for the next attempt.
func (s *DiaryService) Sync(ctx context.Context) (int, error) {
	pending, err := s.repo.GetAllLocalOnly(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list local-only entries: %w", err)
	}

	reconciled := 0
	var firstErr error
	for _, entry := range pending {
		if err := s.reconcile(ctx, entry); err != nil {
			s.log.Warn(ctx, "entry reconciliation failed", "id", entry.Id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		reconciled++
	}
	return reconciled, firstErr
}

func (s *DiaryService) reconcile(ctx context.Context, entry *models.DiaryEntry) error {
	if models.IsLocalId(entry.Id) {
		created, err := s.client.CreateDiaryEntry(ctx, s.deviceId, entry)
		if err != nil {
			return err
		}
		created.SyncState = models.SyncStateSynced
		return s.repo.Promote(ctx, entry.Id, created)
	}

	updated, err := s.client.UpdateDiaryEntry(ctx, s.deviceId, entry)
	if err != nil {
		return err
	}
	updated.SyncState = models.SyncStateSynced
	return s.repo.Upsert(ctx, updated)
}

func (s *DiaryService) cache(ctx context.Context, entry *models.DiaryEntry) {
	if err := s.repo.Upsert(ctx, entry); err != nil {
		s.log.Warn(ctx, "failed to cache diary entry", "id", entry.Id, "error", err)
	}
}
