package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pulse/internal/client/client"
	"github.com/dmitrijs2005/pulse/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/pulse/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// Register prompts for a username, display name and password and creates
// the account. It does not sign in.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	displayName, err := getSimpleText(a.reader, "Enter display name", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	userID, err := a.api.Register(ctx, userName, displayName, string(password))
	if err != nil {
		return err
	}

	a.printf("Registered, your id is %s\n", userID)
	return nil
}

// Login prompts for credentials, offering the last signed-in username as
// the default, and signs in. Session listeners take it from there.
func (a *App) Login(ctx context.Context) error {
	prompt := "Enter username"
	last, ok, err := a.store.Get(ctx, metadata.KeyLastUser)
	if err != nil {
		a.logger.Warn(ctx, "reading last user failed", "error", err)
	}
	if ok && last != "" {
		prompt = fmt.Sprintf("Enter username [%s]", last)
	}

	userName, err := getSimpleText(a.reader, prompt, a.out)
	if err != nil {
		return err
	}
	if userName == "" {
		userName = last
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.api.Login(ctx, userName, string(password)); err != nil {
		if errors.Is(err, client.ErrUnavailable) {
			a.setMode(ModeOffline)
		}
		return err
	}

	if err := a.store.Set(ctx, metadata.KeyLastUser, userName); err != nil {
		a.logger.Warn(ctx, "saving last user failed", "error", err)
	}

	a.modeMu.Lock()
	a.userName = userName
	a.modeMu.Unlock()
	a.setMode(ModeOnline)

	a.printf("Logged in as %s (%s)\n", userName, a.sess.UserID())
	return nil
}

// Logout ends the session and resets what the user is looking at.
func (a *App) Logout(ctx context.Context) error {
	if err := a.requireLogin(); err != nil {
		return err
	}
	err := a.api.Logout(ctx)

	a.state.SetActiveChatID("")
	a.state.SetChatTabActive(false)
	a.modeMu.Lock()
	a.userName = ""
	a.modeMu.Unlock()

	if err != nil {
		return err
	}
	a.printf("Logged out\n")
	return nil
}
