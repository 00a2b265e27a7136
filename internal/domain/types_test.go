package domain_test

import (
	"testing"

	"github.com/danhigham/groupcast/internal/domain"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"+90 555 123 45 67", "905551234567"},
		{"(555) 010-9999", "5550109999"},
		{"12345", "12345"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := domain.NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	if got := domain.MaskPhone("905551234567"); got != "90********67" {
		t.Errorf("MaskPhone = %q", got)
	}
	if got := domain.MaskPhone("123"); got != "***" {
		t.Errorf("MaskPhone(short) = %q, want ***", got)
	}
}

func TestGroupKindString(t *testing.T) {
	kinds := map[domain.GroupKind]string{
		domain.GroupKindGroup:      "Group",
		domain.GroupKindSupergroup: "Supergroup",
		domain.GroupKindChannel:    "Channel",
		domain.GroupKindUnknown:    "Unknown",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("%d.String() = %q, want %q", k, k.String(), want)
		}
	}
}
