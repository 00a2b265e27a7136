package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"

	"github.com/danhigham/groupcast/internal/session"
)

// promptAuth implements gotd's auth.UserAuthenticator on top of a
// session.Prompter, so the shell only has to answer the code and password
// challenges.
type promptAuth struct {
	phone  string
	prompt session.Prompter
}

func (a promptAuth) Phone(ctx context.Context) (string, error) {
	return "+" + a.phone, nil
}

func (a promptAuth) Code(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
	return a.prompt.Code(ctx)
}

func (a promptAuth) Password(ctx context.Context) (string, error) {
	return a.prompt.Password(ctx)
}

func (a promptAuth) AcceptTermsOfService(ctx context.Context, tos tg.HelpTermsOfService) error {
	return &auth.SignUpRequired{TermsOfService: tos}
}

func (a promptAuth) SignUp(ctx context.Context) (auth.UserInfo, error) {
	return auth.UserInfo{}, errors.New("sign up not supported")
}

// SignIn requests a login code and completes the login. Accounts with a
// second factor are asked for their password by the gotd flow.
func (c *Conn) SignIn(ctx context.Context, phone string, p session.Prompter) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	flow := auth.NewFlow(promptAuth{phone: phone, prompt: p}, auth.SendCodeOptions{})
	if err := c.client.Auth().IfNecessary(ctx, flow); err != nil {
		return fmt.Errorf("sign in: %w", mapError(err))
	}
	c.logger.Info("signed in")
	return nil
}
