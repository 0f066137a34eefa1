package models

// Suggestion is one gift concept proposed by the muse.
type Suggestion struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Sentiment   string `json:"sentiment"`
}
