// Package directory enumerates the groups and channels reachable by the
// active session and joins new ones.
package directory

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/danhigham/groupcast/internal/domain"
	"github.com/danhigham/groupcast/internal/session"
	"github.com/danhigham/groupcast/internal/state"
)

// Sessions yields the active session.
type Sessions interface {
	Active() (string, session.Conn, bool)
}

type Directory struct {
	sessions Sessions
	store    *state.Store
	logger   *zap.Logger
}

// New returns a Directory that keeps its snapshot in store. A nil store
// gets a private one.
func New(sessions Sessions, store *state.Store, logger *zap.Logger) *Directory {
	if store == nil {
		store = state.New(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		sessions: sessions,
		store:    store,
		logger:   logger.Named("directory"),
	}
}

// Refresh rebuilds the snapshot from every dialog of the active session.
// On error the previous snapshot is kept.
func (d *Directory) Refresh(ctx context.Context) ([]domain.Group, error) {
	phone, conn, ok := d.sessions.Active()
	if !ok {
		return nil, domain.ErrNoActiveSession
	}

	dialogs, err := conn.Dialogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch dialogs: %w", err)
	}

	groups := make([]domain.Group, 0, len(dialogs))
	for _, dlg := range dialogs {
		if !Include(dlg) {
			continue
		}
		groups = append(groups, domain.Group{
			ID:      dlg.ID,
			Title:   dlg.Title,
			Kind:    Classify(dlg),
			Members: dlg.Members,
			Account: phone,
			Peer:    dlg.Peer,
		})
	}

	d.store.OnGroupsUpdate(phone, groups)
	d.logger.Debug("groups refreshed", zap.Int("dialogs", len(dialogs)), zap.Int("groups", len(groups)))
	return d.store.Groups(), nil
}

// Include reports whether a dialog belongs in the send-target list. Users
// are never targets; broadcast channels only when the account created or
// administers them.
func Include(dlg domain.Dialog) bool {
	switch dlg.Type {
	case domain.DialogChat:
		return true
	case domain.DialogChannel:
		if dlg.Broadcast && !dlg.Megagroup {
			return dlg.Creator || dlg.Admin
		}
		return true
	default:
		return false
	}
}

func Classify(dlg domain.Dialog) domain.GroupKind {
	switch dlg.Type {
	case domain.DialogChat:
		return domain.GroupKindGroup
	case domain.DialogChannel:
		if dlg.Megagroup {
			return domain.GroupKindSupergroup
		}
		return domain.GroupKindChannel
	default:
		return domain.GroupKindUnknown
	}
}

// Join joins a group by username or invite link and refreshes the snapshot.
func (d *Directory) Join(ctx context.Context, ref string) (string, error) {
	target, err := ParseReference(ref)
	if err != nil {
		return "", err
	}

	_, conn, ok := d.sessions.Active()
	if !ok {
		return "", domain.ErrNoActiveSession
	}

	var msg string
	if target.Invite {
		err = conn.JoinInvite(ctx, target.Value)
		msg = "Joined the group!"
	} else {
		err = conn.JoinPublic(ctx, target.Value)
		msg = fmt.Sprintf("Joined @%s!", target.Value)
	}
	if err != nil {
		d.logger.Info("join failed", zap.Stringer("ref", target), zap.Error(err))
		return "", joinFailure(target, err)
	}

	if _, err := d.Refresh(ctx); err != nil {
		d.logger.Warn("refresh after join failed", zap.Error(err))
	}
	return msg, nil
}

func joinFailure(target Reference, err error) error {
	switch {
	case errors.Is(err, domain.ErrGroupNotFound):
		return fmt.Errorf("'%s': %w", target.Value, domain.ErrGroupNotFound)
	case errors.Is(err, domain.ErrUsernameInvalid):
		return domain.ErrUsernameInvalid
	case errors.Is(err, domain.ErrAlreadyParticipant):
		return domain.ErrAlreadyParticipant
	default:
		return fmt.Errorf("join failed: %w", err)
	}
}

// ByIndex returns the i-th group of the last snapshot.
func (d *Directory) ByIndex(i int) (domain.Group, bool) {
	return d.store.GroupAt(i)
}

func (d *Directory) ByID(id int64) (domain.Group, bool) {
	return d.store.GroupByID(id)
}
