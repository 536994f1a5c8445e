package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Chat(ctx context.Context, text string) error
	History(ctx context.Context) error
	Clear(ctx context.Context) error
	DiaryAdd(ctx context.Context) error
	DiaryList(ctx context.Context) error
	DiaryEdit(ctx context.Context, id string) error
	DiaryDelete(ctx context.Context, id string) error
	DiarySync(ctx context.Context) error
	Reset(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the Time Capsule CLI.
//
// Anything that is not a known command is treated as a chat message and
// handed to the delivery pipeline, so the default mode of the program is
// simply talking. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands
//
//	help                    — show available commands
//	history                 — reload and print the conversation
//	clear                   — delete the whole conversation
//	diary add               — write a new diary entry (interactive)
//	diary list              — list diary entries
//	diary edit <id>         — edit an entry
//	diary delete <id>       — delete an entry
//	diary sync              — push not-yet-synced entries to the server
//	reset                   — forget this device and start over
//	exit | quit             — leave the program
//
// Any errors returned by command handlers are ignored here; handlers print
// their own messages. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("tc %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			printlnFn("Type anything to talk with your younger self.")
			printlnFn("Commands: history, clear, diary add|list|edit|delete|sync, reset, exit")

		case "history":
			_ = a.History(ctx)

		case "clear":
			_ = a.Clear(ctx)

		case "diary":
			if len(args) == 0 {
				printlnFn("Usage: diary add|list|edit|delete|sync")
				continue
			}
			switch args[0] {
			case "add":
				_ = a.DiaryAdd(ctx)
			case "list":
				_ = a.DiaryList(ctx)
			case "edit":
				if len(args) < 2 {
					printlnFn("Usage: diary edit <id>")
					continue
				}
				_ = a.DiaryEdit(ctx, args[1])
			case "delete":
				if len(args) < 2 {
					printlnFn("Usage: diary delete <id>")
					continue
				}
				_ = a.DiaryDelete(ctx, args[1])
			case "sync":
				_ = a.DiarySync(ctx)
			default:
				printlnFn("Unknown diary command:", args[0])
			}

		case "reset":
			_ = a.Reset(ctx)

		case "chat":
			if len(args) == 0 {
				printlnFn("Usage: chat <text>")
				continue
			}
			_ = a.Chat(ctx, strings.TrimSpace(strings.TrimPrefix(line, "chat")))

		case "exit", "quit":
			printlnFn("Take care. Your younger self will be here when you return.")
			return

		default:
			_ = a.Chat(ctx, line)
		}
	}
}
