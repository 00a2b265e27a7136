package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/danhigham/groupcast/internal/domain"
)

// Manager is the registry of connected sessions. At most one of them is
// active at a time; the active handle is always connected and signed in.
type Manager struct {
	dir    string
	dialer Dialer
	logger *zap.Logger

	mu     sync.Mutex
	conns  map[string]Conn
	states map[string]domain.AuthState
	active string
}

func NewManager(dir string, dialer Dialer, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		dir:    dir,
		dialer: dialer,
		logger: logger.Named("session"),
		conns:  make(map[string]Conn),
		states: make(map[string]domain.AuthState),
	}
}

// Path returns the artifact path for phone.
func (m *Manager) Path(phone string) string {
	return filepath.Join(m.dir, domain.NormalizePhone(phone)+ArtifactExt)
}

// Authenticate signs phone in. A valid stored session is reused without
// prompting; otherwise a code (and, if needed, a password) is requested
// through p. On failure the half-open connection is closed.
func (m *Manager) Authenticate(ctx context.Context, phone string, p Prompter) (string, error) {
	phone = domain.NormalizePhone(phone)
	if phone == "" {
		return "", fmt.Errorf("login failed: empty phone number")
	}
	log := m.logger.With(zap.String("phone", domain.MaskPhone(phone)))

	if m.activateLive(phone) {
		return "Already connected, switched to this account.", nil
	}

	path := m.Path(phone)
	existed := fileExists(path)
	conn, err := m.dialer.Dial(ctx, phone, path)
	if err != nil {
		log.Warn("dial failed", zap.Error(err))
		return "", fmt.Errorf("login failed: %w", err)
	}
	// The client writes its key to the artifact before sign-in completes;
	// a failed first login must not leave it behind.
	fail := func(err error) (string, error) {
		m.abandon(conn, phone)
		if !existed {
			if rmErr := os.Remove(path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.Debug("remove partial session", zap.Error(rmErr))
			}
		}
		return "", fmt.Errorf("login failed: %w", err)
	}

	authorized, err := conn.Authorized(ctx)
	if err != nil {
		return fail(err)
	}
	if authorized {
		m.register(phone, conn)
		log.Info("restored stored session")
		return "Logged in with the saved session.", nil
	}

	if p == nil {
		return fail(domain.ErrSessionInvalid)
	}

	m.setState(phone, domain.AuthStateNone)
	if err := conn.SignIn(ctx, phone, &trackingPrompter{Prompter: p, phone: phone, m: m}); err != nil {
		log.Warn("sign in failed", zap.Error(err))
		return fail(err)
	}
	m.setState(phone, domain.AuthStateAuthenticated)

	self, err := conn.Self(ctx)
	if err != nil {
		return fail(err)
	}

	m.register(phone, conn)
	log.Info("signed in", zap.Int64("user_id", self.ID))
	return fmt.Sprintf("Login successful! Welcome, %s!", self.DisplayName()), nil
}

// Resume reconnects a previously authenticated session without issuing a
// new challenge. A stale artifact stays on disk.
func (m *Manager) Resume(ctx context.Context, phone string) (string, error) {
	phone = domain.NormalizePhone(phone)
	path := m.Path(phone)
	if phone == "" || !fileExists(path) {
		return "", domain.ErrSessionNotFound
	}

	if m.activateLive(phone) {
		return "Already connected, switched to this account.", nil
	}

	conn, err := m.dialer.Dial(ctx, phone, path)
	if err != nil {
		return "", fmt.Errorf("session load failed: %w", err)
	}

	authorized, err := conn.Authorized(ctx)
	if err != nil {
		m.abandon(conn, phone)
		return "", fmt.Errorf("session load failed: %w", err)
	}
	if !authorized {
		m.abandon(conn, phone)
		return "", domain.ErrSessionInvalid
	}

	self, err := conn.Self(ctx)
	if err != nil {
		m.abandon(conn, phone)
		return "", fmt.Errorf("session load failed: %w", err)
	}

	m.register(phone, conn)
	m.logger.Info("session resumed", zap.String("phone", domain.MaskPhone(phone)))
	return fmt.Sprintf("Session loaded! Welcome, %s!", self.DisplayName()), nil
}

// Revoke signs phone out (best effort) and deletes its artifact.
func (m *Manager) Revoke(ctx context.Context, phone string) (string, error) {
	phone = domain.NormalizePhone(phone)

	m.mu.Lock()
	conn := m.conns[phone]
	delete(m.conns, phone)
	if m.active == phone {
		m.active = ""
	}
	m.states[phone] = domain.AuthStateRevoked
	m.mu.Unlock()

	if conn != nil {
		if err := conn.LogOut(ctx); err != nil {
			m.logger.Debug("log out failed", zap.Error(err))
		}
		if err := conn.Disconnect(ctx); err != nil {
			m.logger.Debug("disconnect failed", zap.Error(err))
		}
	}

	if phone != "" {
		if err := os.Remove(m.Path(phone)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("delete session: %w", err)
		}
	}
	return "Logged out and session deleted.", nil
}

// ListPersisted returns the phones that have an artifact on disk, sorted.
func (m *Manager) ListPersisted() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var phones []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ArtifactExt) {
			continue
		}
		phones = append(phones, strings.TrimSuffix(e.Name(), ArtifactExt))
	}
	sort.Strings(phones)
	return phones, nil
}

// DisconnectAll closes every live connection and clears the registry.
func (m *Manager) DisconnectAll(ctx context.Context) {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[string]Conn)
	m.active = ""
	for phone := range conns {
		m.states[phone] = domain.AuthStateDisconnected
	}
	m.mu.Unlock()

	for phone, conn := range conns {
		if err := conn.Disconnect(ctx); err != nil {
			m.logger.Debug("disconnect failed",
				zap.String("phone", domain.MaskPhone(phone)), zap.Error(err))
		}
	}
}

// Active returns the active phone and its connection.
func (m *Manager) Active() (string, Conn, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == "" {
		return "", nil, false
	}
	return m.active, m.conns[m.active], true
}

func (m *Manager) State(phone string) domain.AuthState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[domain.NormalizePhone(phone)]
}

func (m *Manager) setState(phone string, s domain.AuthState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[phone] = s
}

func (m *Manager) activateLive(phone string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conns[phone]; !ok {
		return false
	}
	m.active = phone
	return true
}

func (m *Manager) register(phone string, conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[phone] = conn
	m.states[phone] = domain.AuthStateConnected
	m.active = phone
}

// abandon disconnects a connection that never made it into the registry.
func (m *Manager) abandon(conn Conn, phone string) {
	if err := conn.Disconnect(context.Background()); err != nil {
		m.logger.Debug("disconnect after failure", zap.Error(err))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states[phone] != domain.AuthStateConnected {
		m.states[phone] = domain.AuthStateNone
	}
}

// trackingPrompter records the challenge stage before delegating to the shell.
type trackingPrompter struct {
	Prompter
	phone string
	m     *Manager
}

func (t *trackingPrompter) Code(ctx context.Context) (string, error) {
	t.m.setState(t.phone, domain.AuthStateCode)
	return t.Prompter.Code(ctx)
}

func (t *trackingPrompter) Password(ctx context.Context) (string, error) {
	t.m.setState(t.phone, domain.AuthState2FA)
	return t.Prompter.Password(ctx)
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
