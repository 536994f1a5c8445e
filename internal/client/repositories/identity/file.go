package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"timecapsule/internal/client/models"
	"timecapsule/internal/common"
)

// FileTier persists the identity in a small JSON file, the client-side
// equivalent of a cookie. It is the lowest-priority tier and the one most
// likely to survive a wipe of the heavier stores.
type FileTier struct {
	path string
}

func NewFileTier(path string) *FileTier {
	return &FileTier{path: path}
}

func (t *FileTier) Name() string { return "file" }

func (t *FileTier) Load(ctx context.Context) (*models.DeviceIdentity, error) {
	data, err := os.ReadFile(t.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrTierUnavailable, err)
	}

	var id models.DeviceIdentity
	if err := json.Unmarshal(data, &id); err != nil || !id.Valid() {
		return nil, common.ErrNotFound
	}
	return &id, nil
}

func (t *FileTier) Save(ctx context.Context, id *models.DeviceIdentity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return fmt.Errorf("%w: %w", common.ErrTierUnavailable, err)
	}
	if err := os.WriteFile(t.path, data, 0o600); err != nil {
		return fmt.Errorf("%w: %w", common.ErrTierUnavailable, err)
	}
	return nil
}

func (t *FileTier) Clear(ctx context.Context) error {
	err := os.Remove(t.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", common.ErrTierUnavailable, err)
	}
	return nil
}
