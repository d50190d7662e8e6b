package utils

import (
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/CharlesToronto/brotherstudio/model"

	"github.com/go-playground/validator/v10"
)

// Contact form field limits, in characters
const (
	MaxNameLength    = 120
	MaxEmailLength   = 200
	MaxPhoneLength   = 40
	MaxMessageLength = 4000
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Clip truncates value to at most max characters
func Clip(value string, max int) string {
	if utf8.RuneCountInString(value) <= max {
		return value
	}
	runes := []rune(value)
	return string(runes[:max])
}

// IsHoneypotFilled reports whether the hidden website field was filled,
// which only bots do
func IsHoneypotFilled(req model.ContactRequest) bool {
	return strings.TrimSpace(req.Website) != ""
}

// NormalizeContact trims and clips every field of a raw submission.
// Emails are lower-cased.
func NormalizeContact(req model.ContactRequest, now time.Time) model.ContactMessage {
	return model.ContactMessage{
		Name:        Clip(strings.TrimSpace(req.Name), MaxNameLength),
		Email:       Clip(strings.ToLower(strings.TrimSpace(req.Email)), MaxEmailLength),
		Phone:       Clip(strings.TrimSpace(req.Phone), MaxPhoneLength),
		Message:     Clip(strings.TrimSpace(req.Message), MaxMessageLength),
		SubmittedAt: now.UTC(),
	}
}

// ValidateContact checks a normalized submission and returns the first
// problem in form order: name, email, message.
func ValidateContact(msg model.ContactMessage) error {
	err := getValidator().Struct(msg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ErrInvalidContact
	}

	failed := make(map[string]bool, len(fieldErrs))
	for _, fe := range fieldErrs {
		failed[fe.Field()] = true
	}

	switch {
	case failed["Name"]:
		return ErrNameRequired
	case failed["Email"]:
		return ErrEmailInvalid
	case failed["Message"]:
		return ErrMessageRequired
	}
	return ErrInvalidContact
}
