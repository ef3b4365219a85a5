package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Online(ctx context.Context) error
	Typing(ctx context.Context, args []string) error
	Send(ctx context.Context, args []string) error
	Read(ctx context.Context, args []string) error
	Unread(ctx context.Context) error
	Open(ctx context.Context, args []string) error
	CloseChat(ctx context.Context) error
	Tab(ctx context.Context, args []string) error
	Pulse(ctx context.Context, args []string) error
	Pulses(ctx context.Context) error
}

// runREPL reads commands line by line from reader and dispatches them to a.
// The first token is the command, the rest are its arguments. Command
// errors are printed and the loop goes on. The loop exits on EOF or when
// the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("pulse %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: online, typing <id> on|off, send <id> <text>, read [<id>], unread, open <id>, close, tab on|off, pulse <file>, pulses, logout, exit")
			} else {
				printlnFn("Available commands: register, login, tab on|off, exit")
			}

		case "register":
			cmdErr = a.Register(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)
		case "online":
			cmdErr = a.Online(ctx)
		case "typing":
			cmdErr = a.Typing(ctx, args)
		case "send":
			cmdErr = a.Send(ctx, args)
		case "read":
			cmdErr = a.Read(ctx, args)
		case "unread":
			cmdErr = a.Unread(ctx)
		case "open":
			cmdErr = a.Open(ctx, args)
		case "close":
			cmdErr = a.CloseChat(ctx)
		case "tab":
			cmdErr = a.Tab(ctx, args)
		case "pulse":
			cmdErr = a.Pulse(ctx, args)
		case "pulses":
			cmdErr = a.Pulses(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
	}
}
