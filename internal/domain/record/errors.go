// Package record holds what every record-store collaborator shares.
package record

import "errors"

// ErrUnavailable marks a transient infrastructure failure of the record store.
// Callers may retry with backoff; nothing in this service retries on its own.
var ErrUnavailable = errors.New("record store unavailable")
