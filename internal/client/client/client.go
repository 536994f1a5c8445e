package client

import (
	"context"

	"timecapsule/internal/client/models"
)

// Client is the transport-agnostic contract for talking to the Time Capsule
// backend. Implementations map transport and protocol failures to the
// sentinel errors in internal/common and to SessionRejectedError.
type Client interface {
	Close() error

	// RequestNewId asks the server to mint a fresh, collision-free device id.
	RequestNewId(ctx context.Context) (string, error)

	// LoadHistory returns the messages of a session, oldest first.
	LoadHistory(ctx context.Context, deviceId, sessionId string) ([]models.ChatMessage, error)

	// SendMessage submits one user message and returns the AI reply.
	// correlationId is attached for log correlation only.
	SendMessage(ctx context.Context, deviceId, sessionId, correlationId, content string) (*models.ChatMessage, error)

	// ClearSession deletes the whole conversation.
	ClearSession(ctx context.Context, deviceId, sessionId string) error

	// Diary CRUD. Entries returned by the server always carry server ids.
	ListDiaryEntries(ctx context.Context, deviceId string) ([]models.DiaryEntry, error)
	CreateDiaryEntry(ctx context.Context, deviceId string, entry *models.DiaryEntry) (*models.DiaryEntry, error)
	UpdateDiaryEntry(ctx context.Context, deviceId string, entry *models.DiaryEntry) (*models.DiaryEntry, error)
	DeleteDiaryEntry(ctx context.Context, deviceId, entryId string) error
}
