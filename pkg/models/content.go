package models

import "time"

// Content size limits shared by the encoder and the submission boundary
const (
	MaxFramesPerContent = 1000
	MaxContentBytes     = 5 * 1024 * 1024
	MaxMetadataBytes    = 10 * 1024
	MinPollIntervalMS   = 1000
)

// ResponseStatus is the status of a poll response
type ResponseStatus string

const (
	// StatusUpdated means the playlist is the current content to show
	StatusUpdated ResponseStatus = "updated"
	// StatusClear means nothing is active; the playlist is empty
	StatusClear ResponseStatus = "clear"
)

// Frame is one bitmap plus its display duration. Data holds the packed bits
// (little-endian bit order within each byte) as standard base64.
type Frame struct {
	Data       string `json:"data_b64"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	DurationMS *int   `json:"duration_ms"`
}

// Playback describes how the agent loops a content item
type Playback struct {
	Loop      bool `json:"loop"`
	LoopCount *int `json:"loop_count"`
}

// Content is a named sequence of frames with playback instructions
type Content struct {
	ID       string                 `json:"content_id"`
	Frames   []Frame                `json:"frames"`
	Playback Playback               `json:"playback"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ContentResponse is returned to the display agent on every poll. Ordering
// is already applied; there is deliberately no per-item priority.
type ContentResponse struct {
	Status         ResponseStatus `json:"status"`
	Playlist       []Content      `json:"playlist"`
	PollIntervalMS int            `json:"poll_interval_ms"`
}

// SourceInfo is the public view of a registered content source
type SourceInfo struct {
	ID            string     `json:"id"`
	Type          string     `json:"type"`
	Priority      int        `json:"priority"`
	Interruptible bool       `json:"interruptible"`
	TTLMS         int        `json:"ttl_ms"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	RegisteredAt  time.Time  `json:"registered_at"`
}

// DurationPtr is a helper for optional frame durations
func DurationPtr(ms int) *int {
	return &ms
}
