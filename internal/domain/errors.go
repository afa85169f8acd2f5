package domain

import "fmt"

// ModelError wraps a failure from the language-model backend: transport,
// auth, or a malformed response. It aborts the current turn; the user may
// retry by sending again.
type ModelError struct {
	Err error
}

func (e *ModelError) Error() string { return fmt.Sprintf("model: %v", e.Err) }
func (e *ModelError) Unwrap() error { return e.Err }

// StoreError wraps a read/write failure against the message or entry
// stores.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store: %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }
