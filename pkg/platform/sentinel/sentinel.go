package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Queue stores, document stores and
// executors return these (optionally wrapped) so the services above can turn
// them into coded domain errors.
//
// - ErrNotFound: document, control row or queue item does not exist
// - ErrEmpty: a queue partition has nothing left to consume
// - ErrUnavailable: backing service temporarily unreachable
var (
	ErrNotFound    = errors.New("not found")
	ErrEmpty       = errors.New("empty")
	ErrUnavailable = errors.New("unavailable")
)
