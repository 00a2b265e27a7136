package dispatch

import (
	"errors"
	"strings"

	"github.com/danhigham/groupcast/internal/domain"
)

type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureRateLimited
	FailureWriteForbidden
	FailureBanned
	FailureSlowMode
	FailureFileNotFound
	FailureInvalidGroup
	FailureUnclassified
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureRateLimited:
		return "rate-limited"
	case FailureWriteForbidden:
		return "write-forbidden"
	case FailureBanned:
		return "banned"
	case FailureSlowMode:
		return "slow-mode"
	case FailureFileNotFound:
		return "file-not-found"
	case FailureInvalidGroup:
		return "invalid-group"
	default:
		return "unclassified"
	}
}

// Failure is a classified delivery failure with its user-facing message.
type Failure struct {
	Kind    FailureKind
	Message string
}

const (
	sentMessage         = "Message sent!"
	unclassifiedPrefix  = "Message error: "
	rateLimitedMessage  = "Rate limited by Telegram, wait before sending again."
	forbiddenMessage    = "You are not allowed to send messages to this group."
	bannedMessage       = "You are banned from this group."
	slowModeMessage     = "Slow mode is active, you need to wait."
	foreignGroupMessage = "Group belongs to another account's session."
	invalidGroupMessage = "Invalid group."
)

// failureTable maps transport errors to categories. A row matches when the
// error wraps its sentinel or, for errors that reach us as bare text, when
// the text contains one of its markers. Anything else is unclassified.
var failureTable = []struct {
	sentinel error
	markers  []string
	failure  Failure
}{
	{domain.ErrFloodWait, []string{"FLOOD_WAIT", "FLOOD_PREMIUM_WAIT", "PEER_FLOOD", "FloodWaitError"},
		Failure{FailureRateLimited, rateLimitedMessage}},
	{domain.ErrWriteForbidden, []string{"CHAT_WRITE_FORBIDDEN", "ChatWriteForbiddenError"},
		Failure{FailureWriteForbidden, forbiddenMessage}},
	{domain.ErrBannedInChat, []string{"USER_BANNED_IN_CHANNEL", "UserBannedInChannelError"},
		Failure{FailureBanned, bannedMessage}},
	{domain.ErrSlowMode, []string{"SLOWMODE_WAIT", "SlowModeWaitError"},
		Failure{FailureSlowMode, slowModeMessage}},
}

// Classify maps a send error to its failure category.
func Classify(err error) Failure {
	if err == nil {
		return Failure{}
	}
	var se *SendError
	if errors.As(err, &se) {
		return se.Failure
	}
	if errors.Is(err, domain.ErrFileNotFound) {
		return Failure{FailureFileNotFound, err.Error()}
	}

	text := err.Error()
	for _, row := range failureTable {
		if errors.Is(err, row.sentinel) {
			return row.failure
		}
		for _, m := range row.markers {
			if strings.Contains(text, m) {
				return row.failure
			}
		}
	}
	return Failure{FailureUnclassified, unclassifiedPrefix + text}
}

// SendError is a classified delivery failure.
type SendError struct {
	Failure Failure
	Err     error
}

func (e *SendError) Error() string { return e.Failure.Message }
func (e *SendError) Unwrap() error { return e.Err }

func classified(err error) *SendError {
	return &SendError{Failure: Classify(err), Err: err}
}
