package model

import "time"

// Category groups goods for catalog filtering.
type Category struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Notes     []CategoryNote `json:"notes"`
	CreatedAt time.Time      `json:"created_at"`
}

// CategoryNote is free text an admin attaches to a category.
type CategoryNote struct {
	ID         int64     `json:"id"`
	CategoryID int64     `json:"category_id"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

type CategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type CategoryNoteRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// Admin is a Telegram user allowed to use the admin endpoints.
type Admin struct {
	UserID       int64     `json:"user_id"`
	FullName     string    `json:"full_name"`
	IsSuperadmin bool      `json:"is_superadmin"`
	CreatedAt    time.Time `json:"created_at"`
}
