package search

import "fmt"

// Status tags the result of a cursor navigation.
type Status int

const (
	// NotFound means there is no record in the requested direction
	// (or no record matching the filter). It is not an error.
	NotFound Status = iota

	// Found means the cursor moved, or a neighbor exists.
	Found

	// StoreError means a backing store failed; Err carries the cause.
	StoreError
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case StoreError:
		return "store_error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is the tagged result of every navigation operation.
type Outcome struct {
	Status Status
	Err    error
}

// OK reports whether the outcome is Found.
func (o Outcome) OK() bool {
	return o.Status == Found
}

func found() Outcome {
	return Outcome{Status: Found}
}

func notFound() Outcome {
	return Outcome{Status: NotFound}
}

func storeError(err error) Outcome {
	return Outcome{Status: StoreError, Err: err}
}
