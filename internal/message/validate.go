package message

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// ValidationError reports a malformed inbound message.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid message: %s %s", e.Field, e.Reason)
}

// IsValidationError reports whether err is (or wraps) a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validator normalizes and checks inbound messages.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a ready Validator.
func NewValidator() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate sanitizes msg.Text in place and rejects messages missing the
// platform, text or author username.
func (val *Validator) Validate(msg *Message) error {
	if msg == nil {
		return &ValidationError{Field: "message", Reason: "is required"}
	}

	if err := val.v.Struct(msg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return &ValidationError{Field: fieldErrs[0].Namespace(), Reason: "is required"}
		}
		return &ValidationError{Field: "message", Reason: err.Error()}
	}

	if !utf8.ValidString(msg.Text) {
		return &ValidationError{Field: "Message.Text", Reason: "is not valid UTF-8"}
	}

	msg.Text = Sanitize(msg.Text)
	if msg.Text == "" {
		return &ValidationError{Field: "Message.Text", Reason: "is empty after sanitization"}
	}
	return nil
}

// Sanitize trims s, removes denylisted characters and truncates it to MaxTextLength runes.
func Sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if isDenied(r) {
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)

	if utf8.RuneCountInString(s) > MaxTextLength {
		runes := []rune(s)
		s = strings.TrimSpace(string(runes[:MaxTextLength]))
	}
	return s
}

func isDenied(r rune) bool {
	switch r {
	case '<', '>', utf8.RuneError:
		return true
	case '\n', '\t':
		return false
	}
	return unicode.IsControl(r)
}
