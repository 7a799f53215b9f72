package handler

import "github.com/Adithya-Monish-Kumar-K/article-parser/internal/parser/index"

// ParseRequest is the JSON body of POST /api/v1/parse.
type ParseRequest struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
}

// ParseResponse lists every word of the document, ordered by word.
type ParseResponse struct {
	DocumentID string              `json:"document_id"`
	Words      []index.WordOffsets `json:"words"`
}

// WordLocation is one document a looked-up word occurs in.
type WordLocation struct {
	DocumentID string `json:"document_id"`
	Offsets    []int  `json:"offsets"`
}

// WordResponse is returned by GET /api/v1/words/{word}.
type WordResponse struct {
	Word      string         `json:"word"`
	Locations []WordLocation `json:"locations"`
}
