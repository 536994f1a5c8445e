package services

import (
	"context"
	"errors"
	"sync"

	"timecapsule/internal/client/client"
	"timecapsule/internal/client/models"
	"timecapsule/internal/common"
	"timecapsule/internal/logging"
)

// SessionState is the negotiator's position in the ownership protocol.
type SessionState int

const (
	// StateUnbound means no request has confirmed the session yet.
	StateUnbound SessionState = iota
	// StateBound means the server accepted the current session id.
	StateBound
	// StateRejected means the server refused the previous id and the
	// negotiator has adopted the suggested replacement, not yet confirmed.
	StateRejected
)

func (s SessionState) String() string {
	switch s {
	case StateBound:
		return "bound"
	case StateRejected:
		return "rejected"
	default:
		return "unbound"
	}
}

// Negotiator maps the device identity to a working conversation session and
// runs the re-homing protocol: when the server reports that the session
// belongs to another device, the negotiator abandons it and adopts the
// server-issued replacement. Ownership conflicts are never merged.
//
// The session id starts out equal to the device id; there is no separate
// lookup step.
type Negotiator struct {
	mu        sync.Mutex
	client    client.Client
	log       logging.Logger
	deviceId  string
	state     SessionState
	sessionId string
}

func NewNegotiator(c client.Client, log logging.Logger, deviceId string) *Negotiator {
	if log == nil {
		log = logging.Nop{}
	}
	return &Negotiator{
		client:    c,
		log:       log,
		deviceId:  deviceId,
		state:     StateUnbound,
		sessionId: deviceId,
	}
}

// Current returns the session id requests should be bound to right now.
func (n *Negotiator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sessionId
}

func (n *Negotiator) State() SessionState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Rehome abandons the current session and adopts the server-suggested
// replacement. The caller retries its original request and calls Confirm on
// success.
func (n *Negotiator) Rehome(suggestedId string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.log.Info(context.Background(), "re-homing session", "old", n.sessionId, "new", suggestedId)
	n.state = StateRejected
	n.sessionId = suggestedId
}

// Confirm marks the current session as accepted by the server.
func (n *Negotiator) Confirm() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = StateBound
}

// LoadHistory fetches the conversation, re-homing once if the server rejects
// the session. A missing session is not an error: it materializes an empty
// conversation, and welcome reports that the caller should synthesize the
// one-time local welcome message so the user is never shown a blank state.
func (n *Negotiator) LoadHistory(ctx context.Context) (messages []models.ChatMessage, welcome bool, err error) {
	messages, err = n.client.LoadHistory(ctx, n.deviceId, n.Current())

	var rejected *client.SessionRejectedError
	if errors.As(err, &rejected) {
		n.Rehome(rejected.NewSessionId)
		messages, err = n.client.LoadHistory(ctx, n.deviceId, n.Current())
	}

	if errors.Is(err, common.ErrNotFound) {
		n.Confirm()
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	n.Confirm()
	return messages, len(messages) == 0, nil
}

// Clear deletes the whole conversation. A rejection during clear just means
// the session already belongs to someone else; re-home and consider the
// clear done, since the adopted session starts empty.
func (n *Negotiator) Clear(ctx context.Context) error {
	err := n.client.ClearSession(ctx, n.deviceId, n.Current())

	var rejected *client.SessionRejectedError
	if errors.As(err, &rejected) {
		n.Rehome(rejected.NewSessionId)
		return nil
	}
	return err
}
