package directory

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/danhigham/groupcast/internal/domain"
)

const minReferenceLen = 4

// invitePrefixes are checked in order; the first match wins, so the longer
// forms come before the bare fragment they contain.
var invitePrefixes = []string{"t.me/+", "t.me/joinchat/", "joinchat/"}

// Reference is a parsed join target: a public username or a private invite hash.
type Reference struct {
	Invite bool
	Value  string
}

func (r Reference) String() string {
	if r.Invite {
		return "invite " + r.Value
	}
	return "@" + r.Value
}

// ParseReference recognizes usernames ("name", "@name", "t.me/name") and
// invite links ("t.me/+HASH", "t.me/joinchat/HASH", "joinchat/HASH").
// It never touches the network.
func ParseReference(ref string) (Reference, error) {
	link := strings.TrimSpace(ref)
	if utf8.RuneCountInString(link) < minReferenceLen {
		return Reference{}, fmt.Errorf("%w: a link or username needs at least %d characters", domain.ErrInvalidReference, minReferenceLen)
	}

	if strings.Contains(link, "t.me/+") || strings.Contains(link, "joinchat") {
		hash := link
		for _, prefix := range invitePrefixes {
			if i := strings.LastIndex(link, prefix); i >= 0 {
				hash = link[i+len(prefix):]
				break
			}
		}
		hash = strings.TrimRight(strings.TrimSpace(hash), "/")
		if hash == "" {
			return Reference{}, fmt.Errorf("%w: invite link has no hash", domain.ErrInvalidReference)
		}
		return Reference{Invite: true, Value: hash}, nil
	}

	link = strings.TrimPrefix(strings.TrimPrefix(link, "https://"), "http://")
	if strings.HasPrefix(link, "@") || strings.HasPrefix(link, "t.me/") {
		username := strings.TrimLeft(strings.Replace(link, "t.me/", "", 1), "@")
		username = strings.TrimRight(username, "/")
		if username == "" {
			return Reference{}, fmt.Errorf("%w: empty username", domain.ErrInvalidReference)
		}
		return Reference{Value: username}, nil
	}

	if isDigits(link) {
		return Reference{}, fmt.Errorf("%w: a username cannot consist only of digits", domain.ErrInvalidReference)
	}
	return Reference{Value: link}, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
