// Package models defines request and response types for the resolver's
// introspection API. All types are JSON-serializable.
package models

// ErrorResponse is a generic API error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse is a simple status response.
type StatusResponse struct {
	Status string `json:"status"`
}
