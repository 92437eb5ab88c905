package utils

import (
	"encoding/json"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ValidationKind int

const (
	InvalidBody ValidationKind = iota + 1
	MissingRequiredField
	InvalidIdentifier
)

// ValidationError represents a validation error
type ValidationError struct {
	Kind    ValidationKind
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrInvalidBody    = &ValidationError{Kind: InvalidBody, Message: "Invalid request body."}
	ErrMissingFields  = &ValidationError{Kind: MissingRequiredField, Field: "title,content", Message: "Title and content are required."}
	ErrInvalidEntryID = &ValidationError{Kind: InvalidIdentifier, Field: "id", Message: "Invalid entry ID."}
)

// EntryPayload is a create or update body after trimming and validation.
type EntryPayload struct {
	Title   string
	Content string
	Mood    *string
}

// ParseEntryBody decodes a request body that must be a JSON object.
func ParseEntryBody(raw []byte) (map[string]any, error) {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return nil, ErrInvalidBody
	}
	return body, nil
}

// ValidateEntryFields requires non-blank string title and content and normalizes mood.
func ValidateEntryFields(body map[string]any) (EntryPayload, error) {
	title := TrimmedString(body["title"])
	content := TrimmedString(body["content"])
	if title == "" || content == "" {
		return EntryPayload{}, ErrMissingFields
	}

	p := EntryPayload{Title: title, Content: content}
	if mood, ok := body["mood"].(string); ok {
		mood = strings.TrimSpace(mood)
		p.Mood = &mood
	}
	return p, nil
}

// ValidateEntryID parses a store identifier (24 hex characters).
func ValidateEntryID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidEntryID
	}
	return id, nil
}

// TrimmedString returns v trimmed when it is a string, "" otherwise.
func TrimmedString(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}
