package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	Load(ctx context.Context, args []string) error
	Reload(ctx context.Context) error
	Show(ctx context.Context) error
	Like(ctx context.Context) error
	Pass(ctx context.Context) error
	Drag(ctx context.Context, args []string) error

	Match(ctx context.Context) error
	Dismiss(ctx context.Context) error
	Open(ctx context.Context) error

	Chat(ctx context.Context, args []string) error
	Send(ctx context.Context, text string) error
	Reconnect(ctx context.Context) error
	Leave(ctx context.Context) error

	Unmatch(ctx context.Context, args []string) error
	Confirm(ctx context.Context) error
	Cancel(ctx context.Context) error

	History(ctx context.Context) error
	Reset(ctx context.Context) error
	Matches(ctx context.Context) error
	Conversations(ctx context.Context) error
	Notices(ctx context.Context) error
}

const helpText = `Deck:    load [radius=<km>] [city=<id>] [interests=<a,b>], reload, show,
         like, pass, drag <dx> <ms>, history, reset
Matches: match, dismiss, open, matches, conversations
Chat:    chat <id>, send <text>, reconnect, leave
Unmatch: unmatch <id>, confirm, cancel
Other:   notices, help, exit`

// runREPL reads commands from reader until EOF or "exit"/"quit" and
// dispatches them to a. A failing command prints its error and the loop
// goes on. Commands that prompt read from the same reader.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("md %s> ", statusFn()))
		line, readErr := reader.ReadString('\n')
		if readErr != nil && line == "" {
			return
		}
		if !execLine(ctx, a, strings.TrimSpace(line)) {
			return
		}
		if readErr != nil {
			return
		}
	}
}

// execLine runs one command line and reports whether the REPL goes on.
func execLine(ctx context.Context, a execIface, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd, args := parts[0], parts[1:]

	var err error
	switch cmd {
	case "help":
		printlnFn(helpText)
	case "load":
		err = a.Load(ctx, args)
	case "reload":
		err = a.Reload(ctx)
	case "show", "s":
		err = a.Show(ctx)
	case "like", "l":
		err = a.Like(ctx)
	case "pass", "p":
		err = a.Pass(ctx)
	case "drag":
		err = a.Drag(ctx, args)
	case "match":
		err = a.Match(ctx)
	case "dismiss":
		err = a.Dismiss(ctx)
	case "open":
		err = a.Open(ctx)
	case "matches":
		err = a.Matches(ctx)
	case "conversations":
		err = a.Conversations(ctx)
	case "chat":
		err = a.Chat(ctx, args)
	case "send":
		err = a.Send(ctx, strings.TrimSpace(strings.TrimPrefix(line, cmd)))
	case "reconnect":
		err = a.Reconnect(ctx)
	case "leave":
		err = a.Leave(ctx)
	case "unmatch":
		err = a.Unmatch(ctx, args)
	case "confirm":
		err = a.Confirm(ctx)
	case "cancel":
		err = a.Cancel(ctx)
	case "history":
		err = a.History(ctx)
	case "reset":
		err = a.Reset(ctx)
	case "notices":
		err = a.Notices(ctx)
	case "exit", "quit":
		printlnFn("Bye!")
		return false
	default:
		printlnFn("Unknown command:", cmd)
	}
	if err != nil {
		printlnFn("Error:", err)
	}
	return true
}
