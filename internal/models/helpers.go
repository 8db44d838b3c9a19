package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// GenerateID returns a short prefixed random id such as "evt-1a2b3c4d"
func GenerateID(prefix string) string {
	id := uuid.New().String()

	return fmt.Sprintf("%s-%s", prefix, id[:8])
}

// GetCurrentTime returns the current time in UTC
func GetCurrentTime() time.Time {
	return time.Now().UTC()
}
