package handler

import (
	"fmt"
	"sort"
	"strings"
)

const maxDocumentIDLength = 255

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// validateParseRequest checks the id and content size. Empty content is
// accepted and yields an empty result.
func validateParseRequest(req *ParseRequest, maxContentBytes int) error {
	errs := make(map[string]string)

	id := strings.TrimSpace(req.DocumentID)
	if id == "" {
		errs["document_id"] = "document_id is required"
	} else if len(id) > maxDocumentIDLength {
		errs["document_id"] = fmt.Sprintf("document_id must be at most %d characters", maxDocumentIDLength)
	}
	if maxContentBytes > 0 && len(req.Content) > maxContentBytes {
		errs["content"] = fmt.Sprintf("content must be at most %d bytes", maxContentBytes)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	req.DocumentID = id
	return nil
}
