package model

import "errors"

// Domain errors. Services return these (possibly wrapped) and the transport
// layers map them to HTTP statuses and websocket error codes with errors.Is.
var (
	// ErrInvalidRequest indicates malformed or semantically invalid input. 400.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrUnauthorized indicates a missing or unverifiable credential. 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates a verified identity acting outside its
	// conversations. 403.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the referenced conversation or message does not
	// exist. 404.
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable indicates the persistence layer could not serve the
	// operation. 503.
	ErrStoreUnavailable = errors.New("store unavailable")
)
