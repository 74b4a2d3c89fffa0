package db

import "fmt"

// WriteError is a fatal failure while replacing the catalog. The destination
// store keeps its previously committed contents; a WriteError is never
// partially applied.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("catalog write failed (%s): %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
