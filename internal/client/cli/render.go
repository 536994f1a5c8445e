package cli

import (
	"fmt"
	"io"
	"sync"

	"timecapsule/internal/client/models"
)

// consoleSink renders conversation events to the terminal. The pipeline
// worker and the REPL goroutine both write through it, hence the mutex.
type consoleSink struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsoleSink(w io.Writer) *consoleSink {
	return &consoleSink{w: w}
}

func (s *consoleSink) UserMessage(msg models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "[%s] You: %s\n", msg.Timestamp.Local().Format("15:04"), msg.Content)
}

func (s *consoleSink) AIMessage(msg models.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts := msg.Timestamp
	if ts.IsZero() {
		fmt.Fprintf(s.w, "Younger you: %s\n", msg.Content)
		return
	}
	fmt.Fprintf(s.w, "[%s] Younger you: %s\n", ts.Local().Format("15:04"), msg.Content)
}

func (s *consoleSink) SystemMessage(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "— %s —\n", text)
}

func (s *consoleSink) ErrorMessage(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "! %s\n", text)
}

// renderEntry prints one diary entry in list form, with a pin marker and a
// badge for entries the server has not seen yet.
func renderEntry(w io.Writer, e *models.DiaryEntry) {
	pin := " "
	if e.Pinned {
		pin = "*"
	}
	badge := ""
	if e.LocalOnly() {
		badge = " (not yet synced)"
	}
	mood := ""
	if e.Mood != "" {
		mood = " " + e.Mood
	}
	fmt.Fprintf(w, "%s %s  %s  %s%s%s\n", pin, e.Date, e.Id, e.Title, mood, badge)
}
