// Package cli provides the interactive Time Capsule command-line client.
//
// It wires configuration, the redundant identity storage, the HTTP API
// client, and an interactive REPL whose default mode is simply talking with
// the AI younger self. Typical flow: resolve the device identity, print the
// conversation (or a locally synthesized welcome), and execute user commands.
//
// Key features:
//   - Chat with asynchronous delivery (replies print when they arrive)
//   - History reload and whole-conversation clear
//   - Diary: add, list, edit, delete, with offline fallback and explicit sync
//   - Device reset
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
