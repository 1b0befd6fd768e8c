package sentinel

import "errors"

// Sentinel errors for infrastructure and lifecycle facts. Stores and the audit
// core return these (optionally wrapped) so callers can branch with errors.Is
// without depending on concrete implementations.
//
// - ErrNotFound: record does not exist in a store
// - ErrNotRegistered: entity type was never registered with the metadata registry
// - ErrInvalidState: lifecycle misuse (start while running, stop while stopped)
var (
	ErrNotFound      = errors.New("not found")
	ErrNotRegistered = errors.New("entity type not registered")
	ErrInvalidState  = errors.New("invalid state")
)
