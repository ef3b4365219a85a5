package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var errUsage = errors.New("usage")

func usage(s string) error {
	return fmt.Errorf("%w: %s", errUsage, s)
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

// Online lists online users and marks those typing to the caller.
func (a *App) Online(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	ids := a.presence.Online()
	if len(ids) == 0 {
		a.printf("Nobody is online\n")
		return nil
	}
	typing := a.typing.Snapshot()
	me := a.sess.UserID()
	for _, id := range ids {
		var marks []string
		if id == me {
			marks = append(marks, "you")
		}
		if typing[id] {
			marks = append(marks, "typing")
		}
		if len(marks) > 0 {
			a.printf("  %s (%s)\n", id, strings.Join(marks, ", "))
			continue
		}
		a.printf("  %s\n", id)
	}
	return nil
}

// Typing sends a typing signal: typing <id> on|off.
func (a *App) Typing(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) != 2 {
		return usage("typing <id> on|off")
	}
	on, err := parseOnOff(args[1])
	if err != nil {
		return err
	}
	return a.typing.SetTyping(ctx, args[0], on)
}

// Send delivers a message: send <id> <text>.
func (a *App) Send(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) < 2 {
		return usage("send <id> <text>")
	}
	m, err := a.api.SendMessage(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	if err := a.typing.SetTyping(ctx, args[0], false); err != nil {
		a.logger.Debug(ctx, "clearing typing failed", "error", err)
	}
	a.printf("Sent %s\n", m.ID)
	return nil
}

// Read marks messages from a sender as read, or all notifications when no
// sender is given.
func (a *App) Read(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}

	var (
		n   int64
		err error
	)
	if len(args) == 0 {
		n, err = a.api.MarkNotificationsRead(ctx)
	} else {
		n, err = a.api.MarkMessagesRead(ctx, args[0])
	}
	if err != nil {
		return err
	}
	a.unread.Refresh(ctx)
	a.printf("Marked %d as read\n", n)
	return nil
}

func (a *App) Unread(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	c := a.unread.Counts()
	a.printf("Unread messages: %d, notifications: %d\n", c.Messages, c.Notifications)
	return nil
}

// Open makes id the active conversation and reads its messages.
func (a *App) Open(ctx context.Context, args []string) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	if len(args) != 1 {
		return usage("open <id>")
	}
	a.state.SetActiveChatID(args[0])
	online := "offline"
	if a.presence.IsOnline(args[0]) {
		online = "online"
	}
	a.printf("Chatting with %s (%s)\n", args[0], online)
	return a.Read(ctx, args)
}

func (a *App) CloseChat(ctx context.Context) error {
	a.state.SetActiveChatID("")
	return nil
}

// Tab switches the chat list tab: tab on|off.
func (a *App) Tab(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("tab on|off")
	}
	on, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	a.state.SetChatTabActive(on)
	return nil
}
