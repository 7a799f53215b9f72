package consumer

import "time"

// Index status values carried by IndexCompleteEvent.
const (
	StatusIndexed = "INDEXED"
	StatusFailed  = "FAILED"
)

// ParseRequestEvent is read from the document-parse topic.
type ParseRequestEvent struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

// IndexCompleteEvent is published to the index-complete topic once a parse
// request has been handled.
type IndexCompleteEvent struct {
	DocumentID string    `json:"document_id"`
	Words      int       `json:"words"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}
