package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SyncState tells whether a diary entry has reached the server.
type SyncState string

const (
	SyncStateSynced    SyncState = "synced"
	SyncStateLocalOnly SyncState = "local_only"
)

// LocalIdPrefix marks client-assigned temporary ids. Server ids are plain
// UUIDs, so a prefixed id can never collide with one.
const LocalIdPrefix = "local-"

// NewLocalId returns a temporary id for an entry that exists only in client
// storage.
func NewLocalId() string {
	return LocalIdPrefix + uuid.NewString()
}

// IsLocalId reports whether id was assigned locally.
func IsLocalId(id string) bool {
	return strings.HasPrefix(id, LocalIdPrefix)
}

// DiaryEntry is a diary record, created locally first and reconciled to a
// server-issued id when connectivity allows.
type DiaryEntry struct {
	// Id is a server-issued UUID, or a temporary "local-" id while the entry
	// is local-only.
	Id string `json:"id"`

	Title   string `json:"title"`
	Date    string `json:"date"`
	Content string `json:"content"`
	Mood    string `json:"mood"`
	Pinned  bool   `json:"pinned"`

	// SyncState is client-side bookkeeping, never sent to the server.
	SyncState SyncState `json:"-"`

	// UpdatedAt is the last local modification time in UTC.
	UpdatedAt time.Time `json:"-"`
}

// LocalOnly reports whether the entry has not yet been accepted by the server.
func (e *DiaryEntry) LocalOnly() bool {
	return e.SyncState == SyncStateLocalOnly
}
