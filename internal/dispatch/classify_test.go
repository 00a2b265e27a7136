package dispatch_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/danhigham/groupcast/internal/dispatch"
	"github.com/danhigham/groupcast/internal/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want dispatch.FailureKind
	}{
		{"nil", nil, dispatch.FailureNone},
		{"flood sentinel", fmt.Errorf("send: %w", domain.ErrFloodWait), dispatch.FailureRateLimited},
		{"flood text", errors.New("rpc error code 420: FLOOD_WAIT (17)"), dispatch.FailureRateLimited},
		{"peer flood text", errors.New("PEER_FLOOD"), dispatch.FailureRateLimited},
		{"forbidden sentinel", domain.ErrWriteForbidden, dispatch.FailureWriteForbidden},
		{"forbidden text", errors.New("CHAT_WRITE_FORBIDDEN"), dispatch.FailureWriteForbidden},
		{"banned", errors.New("USER_BANNED_IN_CHANNEL"), dispatch.FailureBanned},
		{"banned sentinel", fmt.Errorf("x: %w", domain.ErrBannedInChat), dispatch.FailureBanned},
		{"slow mode", errors.New("SLOWMODE_WAIT (10)"), dispatch.FailureSlowMode},
		{"slow mode sentinel", domain.ErrSlowMode, dispatch.FailureSlowMode},
		{"file", fmt.Errorf("%w: a.png", domain.ErrFileNotFound), dispatch.FailureFileNotFound},
		{"other", errors.New("MEDIA_EMPTY"), dispatch.FailureUnclassified},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dispatch.Classify(tt.err)
			if got.Kind != tt.want {
				t.Errorf("Classify(%v).Kind = %v, want %v", tt.err, got.Kind, tt.want)
			}
		})
	}
}

func TestClassify_Messages(t *testing.T) {
	kinds := map[dispatch.FailureKind]string{}
	for _, err := range []error{domain.ErrFloodWait, domain.ErrWriteForbidden, domain.ErrBannedInChat, domain.ErrSlowMode} {
		f := dispatch.Classify(err)
		if f.Message == "" {
			t.Errorf("%v: empty message", err)
		}
		if prev, ok := kinds[f.Kind]; ok && prev != f.Message {
			t.Errorf("%v: message not fixed", f.Kind)
		}
		kinds[f.Kind] = f.Message
	}
	if len(kinds) != 4 {
		t.Errorf("categories = %d, want 4 distinct", len(kinds))
	}

	f := dispatch.Classify(errors.New("MEDIA_EMPTY"))
	if f.Message != "Message error: MEDIA_EMPTY" {
		t.Errorf("unclassified message = %q", f.Message)
	}
}
