package client

import "fmt"

// SessionRejectedError is returned when the server refuses a session because
// it belongs to a different device. The server always supplies a replacement
// session id; the caller is expected to re-home to it and retry.
type SessionRejectedError struct {
	NewSessionId string
}

func (e *SessionRejectedError) Error() string {
	return fmt.Sprintf("session owned by another device, reassigned to %s", e.NewSessionId)
}
