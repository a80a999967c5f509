package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	maxContentBytes = 100000
	maxNameBytes    = 256
)

// ValidateMessageContent validates message content. Empty content is
// allowed here; the chat treats it as a no-op.
func ValidateMessageContent(content string) error {
	if len(content) > maxContentBytes {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateSessionID validates a session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid session ID format")
	}
	return nil
}

// ValidateRecordID validates a directory record ID.
func ValidateRecordID(id string) error {
	if len(id) == 0 {
		return errors.New("ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("ID exceeds maximum length")
	}
	return nil
}

// ValidateName validates a user, team or connection name.
func ValidateName(name string) error {
	if len(name) > maxNameBytes {
		return errors.New("name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("name must be valid UTF-8")
	}
	return nil
}

// ValidatePrompt validates the assistant prompt in profile settings.
func ValidatePrompt(prompt string) error {
	if len(prompt) > 4000 {
		return errors.New("prompt exceeds maximum length")
	}
	if !utf8.ValidString(prompt) {
		return errors.New("prompt must be valid UTF-8")
	}
	return nil
}
