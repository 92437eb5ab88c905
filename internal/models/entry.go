package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Entry is a diary record. UserEmail is the owner and the only authorization scope;
// it is set once on insert and never part of an update.
type Entry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserEmail string             `bson:"userEmail" json:"userEmail"`
	Title     string             `bson:"title" json:"title"`
	Content   string             `bson:"content" json:"content"`
	Mood      *string            `bson:"mood" json:"mood"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt *time.Time         `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

// EntryFields are the mutable fields of an Entry.
type EntryFields struct {
	Title   string
	Content string
	Mood    *string
}

// EntryResponse is the JSON shape of a stored entry, with the store identifier as a hex id.
type EntryResponse struct {
	ID        string     `json:"id"`
	UserEmail string     `json:"userEmail"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Mood      *string    `json:"mood"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

func (e Entry) Response() EntryResponse {
	return EntryResponse{
		ID:        e.ID.Hex(),
		UserEmail: e.UserEmail,
		Title:     e.Title,
		Content:   e.Content,
		Mood:      e.Mood,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// CreatedEntryResponse is returned with 201 by the create endpoint.
type CreatedEntryResponse struct {
	Message string `json:"message"`
	EntryResponse
}

// UpdatedEntryResponse is returned by the update endpoint.
type UpdatedEntryResponse struct {
	Message   string    `json:"message"`
	ID        string    `json:"id"`
	UserEmail string    `json:"userEmail"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Mood      *string   `json:"mood"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DeletedEntryResponse is returned by the delete endpoint.
type DeletedEntryResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AttachmentResponse is returned by the attachment upload endpoint.
type AttachmentResponse struct {
	URL string `json:"url"`
}
