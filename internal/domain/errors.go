package domain

import "errors"

var (
	// ErrNoActiveSession is returned when an operation needs a connected session and none is active.
	ErrNoActiveSession = errors.New("no active session")

	// ErrSessionNotFound is returned when no persisted session exists for a phone.
	ErrSessionNotFound = errors.New("session file not found")

	// ErrSessionInvalid is returned when a persisted session is no longer authorized.
	ErrSessionInvalid = errors.New("session is no longer valid, log in again")

	// ErrPasswordNeeded is returned by sign-in when the account has a second factor.
	ErrPasswordNeeded = errors.New("two-factor password required")

	ErrInvalidReference   = errors.New("invalid format")
	ErrGroupNotFound      = errors.New("user or group not found")
	ErrUsernameInvalid    = errors.New("invalid username format")
	ErrAlreadyParticipant = errors.New("you are already a member of this group")

	ErrFloodWait      = errors.New("flood wait")
	ErrWriteForbidden = errors.New("write forbidden")
	ErrBannedInChat   = errors.New("banned in chat")
	ErrSlowMode       = errors.New("slow mode wait")
	ErrFileNotFound   = errors.New("file not found")

	// ErrAlreadyRunning is returned when a dispatch run is started while another is in progress.
	ErrAlreadyRunning = errors.New("dispatch already running")
)
