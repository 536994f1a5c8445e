package cli

import (
	"context"
	"fmt"
	"time"

	"timecapsule/internal/client/models"
	"timecapsule/internal/client/services"
)

// welcomeChatMessage synthesizes the local welcome bubble shown whenever a
// conversation is empty.
func welcomeChatMessage(sessionId string) models.ChatMessage {
	return models.ChatMessage{
		Content:   services.WelcomeMessage,
		Timestamp: time.Now().UTC(),
		SessionId: sessionId,
	}
}

// Chat enqueues one message for delivery. The user bubble prints
// immediately; the reply arrives asynchronously through the sink.
func (a *App) Chat(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	a.pipeline.Send(text)
	return nil
}

// History reloads the conversation from the server and prints it.
func (a *App) History(ctx context.Context) error {
	return a.showHistory(ctx)
}

func (a *App) showHistory(ctx context.Context) error {
	reqCtx, cancel := a.requestCtx(ctx)
	defer cancel()

	messages, welcome, err := a.negotiator.LoadHistory(reqCtx)
	if err != nil {
		fmt.Println("Could not load the conversation. Please check your connection.")
		return err
	}

	for _, msg := range messages {
		if msg.IsUser {
			a.sink.UserMessage(msg)
		} else {
			a.sink.AIMessage(msg)
		}
	}
	if welcome {
		a.sink.AIMessage(welcomeChatMessage(a.negotiator.Current()))
	}
	return nil
}

// Clear deletes the whole conversation and shows the fresh empty state.
func (a *App) Clear(ctx context.Context) error {
	reqCtx, cancel := a.requestCtx(ctx)
	defer cancel()

	if err := a.negotiator.Clear(reqCtx); err != nil {
		fmt.Println("Could not clear the conversation. Please try again.")
		return err
	}

	a.sink.SystemMessage("Conversation cleared.")
	a.sink.AIMessage(welcomeChatMessage(a.negotiator.Current()))
	return nil
}

// Reset forgets the device identity everywhere and starts over with a fresh
// one. The conversation and diary on the server stay attached to the old
// identity and become unreachable from this device.
func (a *App) Reset(ctx context.Context) error {
	reqCtx, cancel := a.requestCtx(ctx)
	defer cancel()

	id, err := a.resolver.Reset(reqCtx)
	if err != nil {
		fmt.Println("Could not reset this device. Please check your connection and try again.")
		return err
	}

	a.bind(ctx, id)
	a.sink.SystemMessage("This device has been reset.")
	a.sink.AIMessage(welcomeChatMessage(a.negotiator.Current()))
	return nil
}
