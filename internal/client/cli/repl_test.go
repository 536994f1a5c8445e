package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	calls []string
	texts []string
	ids   []string
}

func (f *fakeExec) Chat(ctx context.Context, text string) error {
	f.calls = append(f.calls, "chat")
	f.texts = append(f.texts, text)
	return nil
}
func (f *fakeExec) History(ctx context.Context) error {
	f.calls = append(f.calls, "history")
	return nil
}
func (f *fakeExec) Clear(ctx context.Context) error {
	f.calls = append(f.calls, "clear")
	return nil
}
func (f *fakeExec) DiaryAdd(ctx context.Context) error {
	f.calls = append(f.calls, "diary add")
	return nil
}
func (f *fakeExec) DiaryList(ctx context.Context) error {
	f.calls = append(f.calls, "diary list")
	return nil
}
func (f *fakeExec) DiaryEdit(ctx context.Context, id string) error {
	f.calls = append(f.calls, "diary edit")
	f.ids = append(f.ids, id)
	return nil
}
func (f *fakeExec) DiaryDelete(ctx context.Context, id string) error {
	f.calls = append(f.calls, "diary delete")
	f.ids = append(f.ids, id)
	return nil
}
func (f *fakeExec) DiarySync(ctx context.Context) error {
	f.calls = append(f.calls, "diary sync")
	return nil
}
func (f *fakeExec) Reset(ctx context.Context) error {
	f.calls = append(f.calls, "reset")
	return nil
}

func TestRunREPL_CommandsAndChatFallthrough(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader(strings.Join([]string{
		"help",
		"history",
		"tell me about the summer of 1974",
		"chat do you remember the old house?",
		"diary list",
		"diary edit abc-1",
		"diary sync",
		"clear",
		"exit",
	}, "\n"))

	exec := &fakeExec{}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "status" }, sc)

	want := []string{"history", "chat", "chat", "diary list", "diary edit", "diary sync", "clear"}
	if len(exec.calls) != len(want) {
		t.Fatalf("calls mismatch: got %v, want %v", exec.calls, want)
	}
	for i := range want {
		if exec.calls[i] != want[i] {
			t.Fatalf("calls order mismatch: got %v, want %v", exec.calls, want)
		}
	}

	if exec.texts[0] != "tell me about the summer of 1974" {
		t.Fatalf("bare text not passed through: %q", exec.texts[0])
	}
	if exec.texts[1] != "do you remember the old house?" {
		t.Fatalf("chat prefix not stripped: %q", exec.texts[1])
	}
	if exec.ids[0] != "abc-1" {
		t.Fatalf("edit id not passed: %q", exec.ids[0])
	}
}

func TestRunREPL_UsageAndQuit(t *testing.T) {
	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	input := strings.NewReader("diary\ndiary edit\nchat\nquit\n")
	exec := &fakeExec{}
	sc := bufio.NewScanner(input)

	runREPL(context.Background(), exec, func() string { return "s" }, sc)

	if len(exec.calls) != 0 {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
}
