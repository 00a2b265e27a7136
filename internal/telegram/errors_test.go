package telegram

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tgerr"

	"github.com/danhigham/groupcast/internal/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		err  error
		want error
	}{
		{tgerr.New(420, "FLOOD_WAIT_30"), domain.ErrFloodWait},
		{tgerr.New(400, "PEER_FLOOD"), domain.ErrFloodWait},
		{tgerr.New(403, "CHAT_WRITE_FORBIDDEN"), domain.ErrWriteForbidden},
		{tgerr.New(403, "CHAT_SEND_PLAIN_FORBIDDEN"), domain.ErrWriteForbidden},
		{tgerr.New(400, "USER_BANNED_IN_CHANNEL"), domain.ErrBannedInChat},
		{tgerr.New(420, "SLOWMODE_WAIT_10"), domain.ErrSlowMode},
		{tgerr.New(400, "USERNAME_NOT_OCCUPIED"), domain.ErrGroupNotFound},
		{tgerr.New(400, "USERNAME_INVALID"), domain.ErrUsernameInvalid},
		{tgerr.New(400, "USER_ALREADY_PARTICIPANT"), domain.ErrAlreadyParticipant},
		{tgerr.New(401, "AUTH_KEY_UNREGISTERED"), domain.ErrSessionInvalid},
		{fmt.Errorf("flow: %w", auth.ErrPasswordAuthNeeded), domain.ErrPasswordNeeded},
	}
	for _, tt := range tests {
		got := mapError(tt.err)
		if !errors.Is(got, tt.want) {
			t.Errorf("mapError(%v) = %v, want %v", tt.err, got, tt.want)
		}
		if !errors.Is(got, tt.err) {
			t.Errorf("mapError(%v) lost the RPC error", tt.err)
		}
	}
}

func TestMapError_Passthrough(t *testing.T) {
	if mapError(nil) != nil {
		t.Error("mapError(nil) != nil")
	}
	raw := tgerr.New(400, "MEDIA_EMPTY")
	if got := mapError(raw); got != raw {
		t.Errorf("mapError(%v) = %v, want unchanged", raw, got)
	}
}
