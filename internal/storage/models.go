package storage

import (
	"time"
)

// QueryEntry is one remembered search query.
type QueryEntry struct {
	Query    string    `json:"query"`
	Count    int       `json:"count"`
	LastUsed time.Time `json:"last_used"`
}

// Session is the view state restored at startup.
type Session struct {
	Folder    string    `json:"folder"`
	Filename  string    `json:"filename"`
	Preview   bool      `json:"preview"`
	UpdatedAt time.Time `json:"updated_at"`
}
