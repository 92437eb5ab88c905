package routes

import (
	"github.com/AnshRaj112/diary-backend/internal/handlers"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts the diary API. Entry routes accept every method so the
// handlers can answer a wrong method with their own JSON 405.
func SetupRoutes(r chi.Router, entries *handlers.EntryHandler, attachments *handlers.AttachmentHandler, events *handlers.EntryEventsHandler) {
	// Health check (no auth)
	r.HandleFunc("/health", handlers.Health)

	// Entry routes
	r.HandleFunc("/api/entries/create", entries.Create)
	r.HandleFunc("/api/entries/list", entries.List)
	r.HandleFunc("/api/entries/read", entries.Get)
	r.HandleFunc("/api/entries/update", entries.Update)
	r.HandleFunc("/api/entries/delete", entries.Delete)

	// Attachment uploads (Cloudinary)
	r.HandleFunc("/api/entries/attachments", attachments.Upload)

	// WebSocket endpoint for live entry changes
	r.HandleFunc("/ws/entries", events.Stream)
}
