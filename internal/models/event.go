package models

import "time"

type EntryEventType string

const (
	EntryCreated EntryEventType = "created"
	EntryUpdated EntryEventType = "updated"
	EntryDeleted EntryEventType = "deleted"
)

// EntryEvent announces a change to one of an owner's entries. It never carries entry contents.
type EntryEvent struct {
	Type      EntryEventType `json:"type"`
	EntryID   string         `json:"id"`
	OwnerKey  string         `json:"-"`
	Timestamp time.Time      `json:"timestamp"`
}
