package gallery

import "time"

// Session is a surf photo session published in the gallery.
type Session struct {
	ID         string    `json:"id"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	Spot       string    `json:"spot"`
	ShotAt     time.Time `json:"shotAt"`
	CoverURL   string    `json:"coverUrl"`
	PhotoCount int       `json:"photoCount"`
	Published  bool      `json:"published"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Photo is a single shot inside a session. OriginalKey points at the
// full-resolution object and is never exposed through the public API.
type Photo struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	DisplayName string    `json:"displayName"`
	PreviewURL  string    `json:"previewUrl"`
	OriginalKey string    `json:"-"`
	TakenAt     time.Time `json:"takenAt"`
	CreatedAt   time.Time `json:"createdAt"`
}
