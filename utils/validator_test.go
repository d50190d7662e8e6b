package utils

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/CharlesToronto/brotherstudio/model"
)

func TestClip(t *testing.T) {
	tests := []struct {
		name  string
		value string
		max   int
		want  string
	}{
		{"Short", "abc", 5, "abc"},
		{"Exact", "abcde", 5, "abcde"},
		{"Long", "abcdef", 5, "abcde"},
		{"Multibyte", "éléphant", 3, "élé"},
		{"Empty", "", 3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clip(tt.value, tt.max); got != tt.want {
				t.Errorf("Clip(%q, %d) = %q, want %q", tt.value, tt.max, got, tt.want)
			}
		})
	}
}

func TestIsHoneypotFilled(t *testing.T) {
	if IsHoneypotFilled(model.ContactRequest{Website: "   "}) {
		t.Error("Whitespace-only honeypot should count as empty")
	}
	if !IsHoneypotFilled(model.ContactRequest{Website: "http://spam.example"}) {
		t.Error("Filled honeypot not detected")
	}
}

func TestNormalizeContact(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.FixedZone("EST", -5*3600))
	msg := NormalizeContact(model.ContactRequest{
		Name:    "  " + strings.Repeat("n", 130) + "  ",
		Email:   "  Ana@Example.COM ",
		Phone:   strings.Repeat("5", 50),
		Message: " hi ",
	}, now)

	if len([]rune(msg.Name)) != MaxNameLength {
		t.Errorf("Name length = %d, want %d", len([]rune(msg.Name)), MaxNameLength)
	}
	if msg.Email != "ana@example.com" {
		t.Errorf("Email = %q, want lower-cased and trimmed", msg.Email)
	}
	if len(msg.Phone) != MaxPhoneLength {
		t.Errorf("Phone length = %d, want %d", len(msg.Phone), MaxPhoneLength)
	}
	if msg.Message != "hi" {
		t.Errorf("Message = %q", msg.Message)
	}
	if msg.SubmittedAt.Location() != time.UTC || !msg.SubmittedAt.Equal(now) {
		t.Errorf("SubmittedAt = %v, want %v in UTC", msg.SubmittedAt, now)
	}
}

func TestValidateContact(t *testing.T) {
	valid := model.ContactMessage{Name: "Ana", Email: "ana@example.com", Message: "Hello"}

	tests := []struct {
		name    string
		mutate  func(m *model.ContactMessage)
		wantErr error
	}{
		{"Valid", func(m *model.ContactMessage) {}, nil},
		{"Valid without phone", func(m *model.ContactMessage) { m.Phone = "" }, nil},
		{"Missing name", func(m *model.ContactMessage) { m.Name = "" }, ErrNameRequired},
		{"Missing email", func(m *model.ContactMessage) { m.Email = "" }, ErrEmailInvalid},
		{"Bad email", func(m *model.ContactMessage) { m.Email = "not-an-email" }, ErrEmailInvalid},
		{"Missing message", func(m *model.ContactMessage) { m.Message = "" }, ErrMessageRequired},
		{"Name reported first", func(m *model.ContactMessage) { m.Name = ""; m.Message = "" }, ErrNameRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid
			tt.mutate(&msg)

			err := ValidateContact(msg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateContact() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
