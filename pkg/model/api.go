package model

import "time"

// Pagination describes a window over a list, for rendering paging controls.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	Shown   int  `json:"shown"`
	HasMore bool `json:"has_more"`
}

// NewPagination computes paging metadata for shown rows loaded from offset 0
// up to offset+limit.
func NewPagination(offset, limit, shown, total int) Pagination {
	return Pagination{
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		Shown:   shown,
		HasMore: shown < total,
	}
}

// NextOffset is the skip value that loads the following page.
func (p Pagination) NextOffset() int {
	return p.Offset + p.Limit
}

// Health is the body of the panel's health endpoint.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
	API     string `json:"api"`
}

// Response is the JSON envelope used by the panel's machine endpoints.
type Response struct {
	Status    string    `json:"status"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
	Error     *APIError `json:"error,omitempty"`
}

// APIError is the error member of a Response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
