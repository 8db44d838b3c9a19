package repository

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrNotFound = errors.New("record not found")
	ErrDatabase = errors.New("database error")
	ErrConflict = errors.New("record conflict")
)

const uniqueViolation = pq.ErrorCode("23505")

// wrapError classifies a driver error into one of the package sentinels
func wrapError(err error) error {
	var pqErr *pq.Error

	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}

	return fmt.Errorf("%w: %v", ErrDatabase, err)
}
