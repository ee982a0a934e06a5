package account

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates no record exists for the client id.
	ErrNotFound = errors.New("client not found")

	// ErrAlreadyExists is returned by a store when a create hits an existing id.
	ErrAlreadyExists = errors.New("client already exists")

	// ErrVersionConflict means the record changed between read and conditional write.
	ErrVersionConflict = errors.New("client record modified concurrently")

	// ErrCorruptRecord matches every *CorruptRecordError.
	ErrCorruptRecord = errors.New("corrupt client record")
)

// CorruptRecordError describes a stored record that cannot be decoded.
type CorruptRecordError struct {
	ClientID string
	Field    string
	Err      error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt record for client %s: field %s: %v", e.ClientID, e.Field, e.Err)
}

func (e *CorruptRecordError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrCorruptRecord) match.
func (e *CorruptRecordError) Is(target error) bool { return target == ErrCorruptRecord }
