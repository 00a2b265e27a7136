// Package session owns the connected client handles, one per phone number,
// and the lifecycle of their persisted authentication artifacts.
package session

import (
	"context"

	"github.com/danhigham/groupcast/internal/domain"
)

// ArtifactExt is the file extension of persisted sessions.
const ArtifactExt = ".session"

// Prompter supplies the interactive parts of a login. It is implemented by
// the presentation layer.
type Prompter interface {
	Code(ctx context.Context) (string, error)
	Password(ctx context.Context) (string, error)
}

// Conn is a live connection for one account.
type Conn interface {
	// Authorized reports whether the stored session is signed in.
	Authorized(ctx context.Context) (bool, error)
	// SignIn requests a login code for phone and completes the login,
	// asking p for the second factor when the account has one.
	SignIn(ctx context.Context, phone string, p Prompter) error
	Self(ctx context.Context) (domain.Account, error)

	Dialogs(ctx context.Context) ([]domain.Dialog, error)
	JoinPublic(ctx context.Context, username string) error
	JoinInvite(ctx context.Context, hash string) error

	SendText(ctx context.Context, peer domain.Peer, text string) error
	SendFile(ctx context.Context, peer domain.Peer, path, caption string) error

	LogOut(ctx context.Context) error
	Disconnect(ctx context.Context) error
}

// Dialer opens a connection backed by the artifact at path.
type Dialer interface {
	Dial(ctx context.Context, phone, path string) (Conn, error)
}
