package directory_test

import (
	"errors"
	"testing"

	"github.com/danhigham/groupcast/internal/directory"
	"github.com/danhigham/groupcast/internal/domain"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		ref    string
		invite bool
		value  string
	}{
		{"t.me/+ABC123", true, "ABC123"},
		{"t.me/joinchat/ABC123", true, "ABC123"},
		{"joinchat/ABC123", true, "ABC123"},
		{"https://t.me/+ABC123/", true, "ABC123"},
		{"  https://t.me/joinchat/XYZ_9  ", true, "XYZ_9"},
		{"@golang", false, "golang"},
		{"t.me/golang", false, "golang"},
		{"https://t.me/golang/", false, "golang"},
		{"golang_news", false, "golang_news"},
		{"@12345", false, "12345"},
		{"çöğü", false, "çöğü"},
	}
	for _, tt := range tests {
		got, err := directory.ParseReference(tt.ref)
		if err != nil {
			t.Errorf("ParseReference(%q) error: %v", tt.ref, err)
			continue
		}
		if got.Invite != tt.invite || got.Value != tt.value {
			t.Errorf("ParseReference(%q) = %+v, want invite=%v value=%q", tt.ref, got, tt.invite, tt.value)
		}
	}
}

func TestParseReference_Invalid(t *testing.T) {
	for _, ref := range []string{"", "ab", "abc", "   ab   ", "12345", "t.me/+", "@@@@", "çöğ", "日本語"} {
		_, err := directory.ParseReference(ref)
		if !errors.Is(err, domain.ErrInvalidReference) {
			t.Errorf("ParseReference(%q) err = %v, want ErrInvalidReference", ref, err)
		}
	}
}
