package domain

import "time"

// Announcement is one scraped notice page from the cooperative's site.
// URL is the announcement's identity; re-scraping the same URL replaces
// the stored row rather than duplicating it.
type Announcement struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	ImageURLs   []string  `json:"images"`
	PublishDate time.Time `json:"publish_date"`
}

// RawLocation is an affected area as the model reports it, names only.
type RawLocation struct {
	Municipality string   `json:"municipality"`
	Barangays    []string `json:"barangays"`
}

// RawSchedule is one interruption event parsed from a model response,
// before recency filtering and location normalization.
type RawSchedule struct {
	Dates         []string      `json:"dates"`
	Times         []string      `json:"times"`
	DurationHours float64       `json:"duration_hours"`
	Locations     []RawLocation `json:"locations"`
	Reason        string        `json:"reason"`
}

// CodedName pairs a location name with its PSGC code. A nil code means
// the name could not be matched against the reference tree; the name is
// carried forward so operators can see what failed to match.
type CodedName struct {
	Code *string `json:"code"`
	Name string  `json:"name"`
}

// LocationAssignment is a normalized affected area: the municipality and
// its listed barangays, each resolved against the reference tree.
type LocationAssignment struct {
	Municipality CodedName   `json:"municipality"`
	Barangays    []CodedName `json:"barangays"`
}

// ScheduleCandidate is a validated interruption event.
type ScheduleCandidate struct {
	Dates         []string             `json:"dates"`
	Times         []string             `json:"times"`
	DurationHours float64              `json:"duration_hours"`
	Locations     []LocationAssignment `json:"locations"`
	Reason        string               `json:"reason"`
}

// ProcessedImage is the per-image outcome: the OCR transcript plus the
// schedules that survived validation. Structured is empty when the image
// could not be fetched, decoded, or extracted.
type ProcessedImage struct {
	ImageURL   string              `json:"image_url"`
	OCRText    string              `json:"ocr_text"`
	Structured []ScheduleCandidate `json:"structured"`
}

// NoticeResult is the persisted unit, one per announcement.
type NoticeResult struct {
	Title           string           `json:"title"`
	URL             string           `json:"url"`
	PublishDate     time.Time        `json:"publish_date"`
	ProcessedImages []ProcessedImage `json:"processed_images"`
}

// StoredNotice is a persisted notice row as read back from the store.
type StoredNotice struct {
	ID        int64        `json:"id"`
	Title     string       `json:"title"`
	URL       string       `json:"url"`
	CreatedAt time.Time    `json:"created_at"`
	Data      NoticeResult `json:"data"`
}
