package workspace

import "time"

// File is one data file registered with a workspace. The file itself stays
// where it is; only its path is recorded.
type File struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Rows        int       `json:"rows"`
	Columns     int       `json:"columns"`
	AddedAt     time.Time `json:"added_at"`
}
