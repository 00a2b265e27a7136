package domain

import "strings"

// Peer is an opaque reference into a connected client's address space
// (a tg.InputPeerClass for the gotd binding). It is only valid for the
// session that produced it and is never persisted or compared.
type Peer interface{}

type GroupKind int

const (
	GroupKindUnknown GroupKind = iota
	GroupKindGroup
	GroupKindSupergroup
	GroupKindChannel
)

func (k GroupKind) String() string {
	switch k {
	case GroupKindGroup:
		return "Group"
	case GroupKindSupergroup:
		return "Supergroup"
	case GroupKindChannel:
		return "Channel"
	default:
		return "Unknown"
	}
}

// Group is a send target discovered by a directory refresh.
type Group struct {
	ID      int64
	Title   string
	Kind    GroupKind
	Members *int   // nil when the server did not report a count
	Account string // normalized phone of the session whose snapshot holds Peer
	Peer    Peer
}

type DialogType int

const (
	DialogOther DialogType = iota
	DialogUser
	DialogChat
	DialogChannel
)

// Dialog is a transport-neutral view of one entry of the dialog list.
type Dialog struct {
	Type      DialogType
	ID        int64
	Title     string
	Megagroup bool
	Broadcast bool
	Creator   bool
	Admin     bool
	Members   *int
	Peer      Peer
}

// Account describes the signed-in user of a session.
type Account struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// DisplayName returns the best human-readable name for the account.
func (a Account) DisplayName() string {
	if a.FirstName != "" {
		return a.FirstName
	}
	if a.Username != "" {
		return a.Username
	}
	return "there"
}

type AuthState int

const (
	AuthStateNone AuthState = iota
	AuthStateCode
	AuthState2FA
	AuthStateAuthenticated
	AuthStateConnected
	AuthStateDisconnected
	AuthStateRevoked
)

func (s AuthState) String() string {
	switch s {
	case AuthStateCode:
		return "code-requested"
	case AuthState2FA:
		return "password-requested"
	case AuthStateAuthenticated:
		return "authenticated"
	case AuthStateConnected:
		return "connected"
	case AuthStateDisconnected:
		return "disconnected"
	case AuthStateRevoked:
		return "revoked"
	default:
		return "unauthenticated"
	}
}

// NormalizePhone keeps only the digits of phone.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MaskPhone hides the middle of a phone number for logging.
func MaskPhone(phone string) string {
	if len(phone) < 4 {
		return "***"
	}
	return phone[:2] + strings.Repeat("*", len(phone)-4) + phone[len(phone)-2:]
}
