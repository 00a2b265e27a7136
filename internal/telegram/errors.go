package telegram

import (
	"errors"
	"fmt"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tgerr"

	"github.com/danhigham/groupcast/internal/domain"
)

var rpcErrors = []struct {
	types    []string
	sentinel error
}{
	{[]string{"FLOOD_WAIT", "FLOOD_PREMIUM_WAIT", "PEER_FLOOD"}, domain.ErrFloodWait},
	{[]string{"CHAT_WRITE_FORBIDDEN", "CHAT_SEND_PLAIN_FORBIDDEN", "CHAT_SEND_MEDIA_FORBIDDEN",
		"CHAT_SEND_PHOTOS_FORBIDDEN", "CHAT_SEND_DOCS_FORBIDDEN", "CHAT_ADMIN_REQUIRED"}, domain.ErrWriteForbidden},
	{[]string{"USER_BANNED_IN_CHANNEL"}, domain.ErrBannedInChat},
	{[]string{"SLOWMODE_WAIT"}, domain.ErrSlowMode},
	{[]string{"USERNAME_NOT_OCCUPIED", "INVITE_HASH_INVALID", "INVITE_HASH_EXPIRED"}, domain.ErrGroupNotFound},
	{[]string{"USERNAME_INVALID"}, domain.ErrUsernameInvalid},
	{[]string{"USER_ALREADY_PARTICIPANT"}, domain.ErrAlreadyParticipant},
	{[]string{"AUTH_KEY_UNREGISTERED", "SESSION_REVOKED", "USER_DEACTIVATED"}, domain.ErrSessionInvalid},
}

// mapError wraps err with the domain sentinel matching its RPC error type.
// The RPC error stays in the chain. Unknown errors are returned as is.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, auth.ErrPasswordAuthNeeded) {
		return fmt.Errorf("%w: %w", domain.ErrPasswordNeeded, err)
	}
	for _, row := range rpcErrors {
		if tgerr.Is(err, row.types...) {
			return fmt.Errorf("%w: %w", row.sentinel, err)
		}
	}
	return err
}
