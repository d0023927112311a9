package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidConfig indicates malformed chunking, retrieval or budget
	// parameters. Fatal at startup; never retried.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrInvalidQuery indicates an empty or malformed query.
	// Reported to the caller without retry.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrProviderUnavailable indicates an embedding or vector index call
	// failed. Retried with bounded backoff during ingestion; surfaced as a
	// query failure during retrieval since queries are latency-sensitive.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrBudgetTooSmall indicates context assembly could not fit even the
	// highest-ranked candidate after truncation to the minimum viable length.
	ErrBudgetTooSmall = errors.New("token budget too small")

	// ErrPartialIngestion indicates one or more units failed while others
	// succeeded. Not fatal; details are aggregated in the IngestionReport.
	ErrPartialIngestion = errors.New("partial ingestion failure")

	// ErrReconcileInProgress indicates a reconciliation run is already active.
	ErrReconcileInProgress = errors.New("reconciliation in progress")
)
