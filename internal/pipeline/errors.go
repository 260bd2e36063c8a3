package pipeline

import "fmt"

// StorageError wraps a persistence or blob failure. The caller may retry the
// whole Process call; dedup by digest makes the retry safe.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// DuplicateInFlightError reports that another request holding the same digest
// was still running after the bounded wait and one retry. The upload is not
// lost; retrying later converges on the row the other request created.
type DuplicateInFlightError struct {
	Digest string
}

func (e *DuplicateInFlightError) Error() string {
	return fmt.Sprintf("document %s is already being processed", e.Digest)
}

func (e *DuplicateInFlightError) Retryable() bool { return true }

// InvalidExtractionError reports extraction output too thin to derive a
// commitment from. The document row survives; reprocessing can retry once the
// extractor improves.
type InvalidExtractionError struct {
	Reason string
}

func (e *InvalidExtractionError) Error() string {
	return fmt.Sprintf("extraction output unusable: %s", e.Reason)
}
