package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownChannel signals a request for a channel that is not registered.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrStoreUnavailable signals that a channel's archive cannot be opened or read.
	ErrStoreUnavailable = errors.New("archive store unavailable")
	// ErrRecordDecode signals a single malformed archive record.
	ErrRecordDecode = errors.New("record decode error")
	// ErrProviderTimeout signals that the language-model call exceeded its deadline.
	ErrProviderTimeout = errors.New("provider timeout")
	// ErrProviderError signals a language-model provider failure.
	ErrProviderError = errors.New("provider error")
)

// RecordDecodeError wraps ErrRecordDecode with the offending record id.
// Decode failures are skipped per record, never fatal to the whole query.
type RecordDecodeError struct {
	RecordID string
	Err      error
}

func (e *RecordDecodeError) Error() string {
	return fmt.Sprintf("%s: record %s: %v", ErrRecordDecode.Error(), e.RecordID, e.Err)
}

func (e *RecordDecodeError) Unwrap() error { return ErrRecordDecode }

// NewRecordDecode creates a record decode error for the given record id.
func NewRecordDecode(recordID string, err error) error {
	return &RecordDecodeError{RecordID: recordID, Err: err}
}
