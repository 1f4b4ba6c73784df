package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
)

// maxContentLength bounds a single message body (~100KB).
const maxContentLength = 100000

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > maxContentLength {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateUserID validates a participant identity. Identities are opaque
// UUID-shaped tokens issued by the identity service.
func ValidateUserID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid user ID format")
	}
	return nil
}

// ValidateItemID validates an item reference. The item catalog owns
// existence checks; here the reference only has to be a well-formed token.
func ValidateItemID(id string) error {
	if id == "" {
		return errors.New("item ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("item ID exceeds maximum length")
	}
	return nil
}
