// Package sessiontest provides in-memory session.Conn and session.Dialer
// implementations for tests. Peers are the int64 ids of the dialogs.
package sessiontest

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/danhigham/groupcast/internal/domain"
	"github.com/danhigham/groupcast/internal/session"
)

type Sent struct {
	Peer    domain.Peer
	Text    string
	File    string
	Caption string
}

// Conn is a scripted connection.
type Conn struct {
	mu sync.Mutex

	Path         string
	WriteOnDial  bool // store a key on dial, before any sign-in
	IsAuthorized bool
	AuthorizeErr error
	NeedPassword bool
	SignInErr    error
	Account      domain.Account

	DialogList []domain.Dialog
	DialogsErr error

	JoinErr       error
	JoinedPublic  []string
	JoinedInvites []string

	// SendHook, when set, decides the outcome of every send.
	SendHook func(ctx context.Context, peer domain.Peer) error
	Sent     []Sent

	LogOutErr    error
	LoggedOut    int
	Disconnected int
	RPCs         int
}

var _ session.Conn = (*Conn)(nil)

func (c *Conn) Authorized(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.IsAuthorized, c.AuthorizeErr
}

func (c *Conn) SignIn(ctx context.Context, phone string, p session.Prompter) error {
	if _, err := p.Code(ctx); err != nil {
		return err
	}
	if c.NeedPassword {
		if _, err := p.Password(ctx); err != nil {
			return err
		}
	}
	if c.SignInErr != nil {
		return c.SignInErr
	}
	c.mu.Lock()
	c.IsAuthorized = true
	path := c.Path
	c.mu.Unlock()
	if path != "" {
		return os.WriteFile(path, []byte(`{"Version":1}`), 0600)
	}
	return nil
}

func (c *Conn) Self(ctx context.Context) (domain.Account, error) {
	return c.Account, nil
}

func (c *Conn) Dialogs(ctx context.Context) ([]domain.Dialog, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RPCs++
	if c.DialogsErr != nil {
		return nil, c.DialogsErr
	}
	out := make([]domain.Dialog, len(c.DialogList))
	copy(out, c.DialogList)
	return out, nil
}

func (c *Conn) JoinPublic(ctx context.Context, username string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RPCs++
	if c.JoinErr != nil {
		return c.JoinErr
	}
	c.JoinedPublic = append(c.JoinedPublic, username)
	return nil
}

func (c *Conn) JoinInvite(ctx context.Context, hash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.RPCs++
	if c.JoinErr != nil {
		return c.JoinErr
	}
	c.JoinedInvites = append(c.JoinedInvites, hash)
	return nil
}

func (c *Conn) SendText(ctx context.Context, peer domain.Peer, text string) error {
	return c.send(ctx, Sent{Peer: peer, Text: text})
}

func (c *Conn) SendFile(ctx context.Context, peer domain.Peer, path, caption string) error {
	return c.send(ctx, Sent{Peer: peer, File: path, Caption: caption})
}

func (c *Conn) send(ctx context.Context, s Sent) error {
	if c.SendHook != nil {
		if err := c.SendHook(ctx, s.Peer); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = append(c.Sent, s)
	return nil
}

// SentCount returns the number of successful sends so far.
func (c *Conn) SentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Sent)
}

func (c *Conn) LogOut(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LoggedOut++
	return c.LogOutErr
}

func (c *Conn) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Disconnected++
	return nil
}

// Dialer hands out the scripted connection registered for each phone.
type Dialer struct {
	mu    sync.Mutex
	Conns map[string]*Conn
	Err   error
	Dials int
}

func NewDialer() *Dialer {
	return &Dialer{Conns: make(map[string]*Conn)}
}

func (d *Dialer) Dial(ctx context.Context, phone, path string) (session.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Dials++
	if d.Err != nil {
		return nil, d.Err
	}
	c, ok := d.Conns[phone]
	if !ok {
		return nil, errors.New("no scripted connection for " + phone)
	}
	c.mu.Lock()
	c.Path = path
	write := c.WriteOnDial
	c.mu.Unlock()
	if write {
		if err := os.WriteFile(path, []byte(`{"Version":1}`), 0600); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Prompter answers login challenges with fixed values.
type Prompter struct {
	CodeValue     string
	PasswordValue string
	Err           error
	CodeCalls     int
	PasswordCalls int
}

func (p *Prompter) Code(ctx context.Context) (string, error) {
	p.CodeCalls++
	return p.CodeValue, p.Err
}

func (p *Prompter) Password(ctx context.Context) (string, error) {
	p.PasswordCalls++
	return p.PasswordValue, p.Err
}

// Registry is a fixed active session for directory and dispatch tests.
type Registry struct {
	Phone string
	Conn  session.Conn
}

func (r Registry) Active() (string, session.Conn, bool) {
	if r.Conn == nil {
		return "", nil, false
	}
	return r.Phone, r.Conn, true
}
