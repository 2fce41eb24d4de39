// Package v1alpha1 contains the wire types shared by the paperfeed daemons
// and tools: mailbox commands and responses, content metadata, playlist and
// settings records, and event messages for the web front end.
package v1alpha1

// Error is the wire representation of a failed operation
type Error struct {
	// Code is a machine-readable error code
	Code string `json:"code"`
	// Message is a human-readable error description
	Message string `json:"message"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// ListResponse wraps lists of items with metadata
type ListResponse struct {
	// Items contains the listed objects
	Items []interface{} `json:"items"`
	// TotalCount is the total number of matching items
	TotalCount int `json:"totalCount,omitempty"`
}
