package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"timecapsule/internal/client/client"
	"timecapsule/internal/client/models"
	"timecapsule/internal/common"
	"timecapsule/internal/logging"
)

// WelcomeMessage is synthesized locally, without a network round trip, when
// a conversation has no history yet.
const WelcomeMessage = "Hello! It's me — you, from years ago. I've been waiting to talk with you. What would you like to remember today?"

// NewConversationNotice frames the one-time switch to a replacement session
// after the server reassigned the old one.
const NewConversationNotice = "We've started a new conversation for you."

// Sink receives rendered conversation events. The CLI prints them; tests
// record them.
type Sink interface {
	// UserMessage echoes a submitted message back as the user's bubble.
	UserMessage(msg models.ChatMessage)

	// AIMessage renders a reply from the younger self.
	AIMessage(msg models.ChatMessage)

	// SystemMessage renders a neutral notice (welcome, new-conversation
	// framing).
	SystemMessage(text string)

	// ErrorMessage renders a locally generated error bubble. It is kept
	// apart from AIMessage so a failure can never be mistaken for a
	// genuine reply.
	ErrorMessage(text string)
}

// Pipeline delivers user messages with a strict one-in-flight discipline.
// A single worker goroutine owns the queue and the in-flight slot, so the
// "at most one outstanding request" invariant is structural: there is no
// pending flag to get out of sync.
//
// Messages are dispatched in submission order and never coalesced. A failed
// dispatch is not requeued (the user resends); messages queued behind it
// stay queued until the next successful slot.
type Pipeline struct {
	client     client.Client
	negotiator *Negotiator
	sink       Sink
	log        logging.Logger
	deviceId   string
	sendCh     chan models.OutboundMessage
	done       chan struct{}
}

const sendQueueCapacity = 64

func NewPipeline(c client.Client, n *Negotiator, sink Sink, log logging.Logger, deviceId string) *Pipeline {
	if log == nil {
		log = logging.Nop{}
	}
	return &Pipeline{
		client:     c,
		negotiator: n,
		sink:       sink,
		log:        log,
		deviceId:   deviceId,
		sendCh:     make(chan models.OutboundMessage, sendQueueCapacity),
		done:       make(chan struct{}),
	}
}

// Start launches the worker. Cancelling ctx stops it; queued messages are
// abandoned, which mirrors a page reload.
func (p *Pipeline) Start(ctx context.Context) {
	go p.run(ctx)
}

// Done is closed when the worker has exited.
func (p *Pipeline) Done() <-chan struct{} {
	return p.done
}

// Send enqueues one user message and returns immediately. The user bubble is
// rendered at submission time; the reply (or error bubble) arrives later via
// the sink.
func (p *Pipeline) Send(content string) {
	msg := models.OutboundMessage{
		Content:       content,
		EnqueuedAt:    time.Now().UTC(),
		CorrelationId: uuid.NewString()[:8],
	}
	p.sink.UserMessage(models.ChatMessage{
		Content:   content,
		IsUser:    true,
		Timestamp: msg.EnqueuedAt,
		SessionId: p.negotiator.Current(),
	})
	p.sendCh <- msg
}

func (p *Pipeline) run(ctx context.Context) {
	defer close(p.done)

	var queue []models.OutboundMessage
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.sendCh:
			queue = append(queue, msg)
			queue = p.drain(ctx, queue)
		}
	}
}

// drain dispatches from the head of the queue, one at a time. It stops on
// the first failure, leaving the rest queued for the next slot.
func (p *Pipeline) drain(ctx context.Context, queue []models.OutboundMessage) []models.OutboundMessage {
	for len(queue) > 0 && ctx.Err() == nil {
		next := queue[0]
		queue = queue[1:]
		ok := p.dispatch(ctx, next)

		// absorb messages that arrived while the request was in flight so
		// FIFO order holds across the dispatch boundary
	absorb:
		for {
			select {
			case msg := <-p.sendCh:
				queue = append(queue, msg)
			default:
				break absorb
			}
		}

		if !ok {
			break
		}
	}
	return queue
}

// dispatch performs one delivery attempt, including the single re-homing
// retry. It reports whether the slot completed successfully so drain knows
// whether to continue.
func (p *Pipeline) dispatch(ctx context.Context, msg models.OutboundMessage) bool {
	session := p.negotiator.Current()
	p.log.Debug(ctx, "dispatching message", "session", session, "correlation", msg.CorrelationId)

	reply, err := p.client.SendMessage(ctx, p.deviceId, session, msg.CorrelationId, msg.Content)

	var rejected *client.SessionRejectedError
	if errors.As(err, &rejected) {
		p.negotiator.Rehome(rejected.NewSessionId)
		p.sink.SystemMessage(NewConversationNotice)
		// identical content, exactly one follow-up, under the new session
		reply, err = p.client.SendMessage(ctx, p.deviceId, p.negotiator.Current(), msg.CorrelationId, msg.Content)
	}

	if err != nil {
		p.log.Warn(ctx, "message delivery failed", "correlation", msg.CorrelationId, "error", err)
		if errors.Is(err, common.ErrProfileRequired) {
			p.sink.ErrorMessage("Please finish setting up your profile before we continue our conversation.")
		} else {
			p.sink.ErrorMessage(fmt.Sprintf("Your message %q could not be delivered. Please check your connection and send it again.", msg.Content))
		}
		return false
	}

	p.negotiator.Confirm()
	p.sink.AIMessage(*reply)
	return true
}
