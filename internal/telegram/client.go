// Package telegram binds the session, directory and dispatch layers to the
// MTProto API through gotd/td.
package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	gotdsession "github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"

	"github.com/danhigham/groupcast/internal/domain"
	"github.com/danhigham/groupcast/internal/session"
)

// Dialer opens one MTProto client per phone number, each persisting its
// authorization key in a gotd file storage.
type Dialer struct {
	apiID   int
	apiHash string
	logger  *zap.Logger
}

var _ session.Dialer = (*Dialer)(nil)

func NewDialer(apiID int, apiHash string, logger *zap.Logger) *Dialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dialer{apiID: apiID, apiHash: apiHash, logger: logger.Named("telegram")}
}

// Dial connects and returns once the client is ready for RPCs. The
// connection outlives ctx; it is closed by Conn.Disconnect.
func (d *Dialer) Dial(ctx context.Context, phone, path string) (session.Conn, error) {
	logger := d.logger.With(zap.String("phone", domain.MaskPhone(phone)))
	client := telegram.NewClient(d.apiID, d.apiHash, telegram.Options{
		Logger:         logger.Named("mtproto"),
		SessionStorage: &gotdsession.FileStorage{Path: path},
	})

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &Conn{
		client:  client,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(time.Second), 10),
		cancel:  cancel,
		runDone: make(chan struct{}),
	}

	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		defer close(c.runDone)
		err := client.Run(runCtx, func(ctx context.Context) error {
			c.api = client.API()
			c.sender = message.NewSender(c.api)
			c.uploader = uploader.NewUploader(c.api)
			close(ready)

			<-ctx.Done()
			return ctx.Err()
		})
		errCh <- err
	}()

	select {
	case <-ready:
		logger.Debug("connected")
		return c, nil
	case err := <-errCh:
		cancel()
		if err == nil {
			err = context.Canceled
		}
		return nil, fmt.Errorf("connect: %w", err)
	case <-ctx.Done():
		cancel()
		<-c.runDone
		return nil, ctx.Err()
	}
}

// Conn is a live client for one account.
type Conn struct {
	client   *telegram.Client
	api      *tg.Client
	sender   *message.Sender
	uploader *uploader.Uploader
	limiter  *rate.Limiter
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	runDone chan struct{}
}

var _ session.Conn = (*Conn)(nil)

// wait blocks until the next RPC may be issued.
func (c *Conn) wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

func (c *Conn) Authorized(ctx context.Context) (bool, error) {
	if err := c.wait(ctx); err != nil {
		return false, err
	}
	status, err := c.client.Auth().Status(ctx)
	if err != nil {
		return false, fmt.Errorf("auth status: %w", mapError(err))
	}
	return status.Authorized, nil
}

func (c *Conn) Self(ctx context.Context) (domain.Account, error) {
	if err := c.wait(ctx); err != nil {
		return domain.Account{}, err
	}
	u, err := c.client.Self(ctx)
	if err != nil {
		return domain.Account{}, fmt.Errorf("get self: %w", mapError(err))
	}
	return domain.Account{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}, nil
}

func (c *Conn) LogOut(ctx context.Context) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	if _, err := c.api.AuthLogOut(ctx); err != nil {
		return fmt.Errorf("log out: %w", mapError(err))
	}
	return nil
}

// Disconnect stops the client and waits for it to shut down or for ctx to
// expire. Calling it more than once is safe.
func (c *Conn) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-c.runDone:
		c.logger.Debug("disconnected")
		return nil
	case <-ctx.Done():
		c.logger.Warn("timed out waiting for client shutdown")
		return ctx.Err()
	}
}
