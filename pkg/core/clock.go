package core

import (
	"time"

	"github.com/google/uuid"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// IDGenerator produces fresh document identifiers.
type IDGenerator func() uuid.UUID

// NewRandomID generates a version 4 UUID.
func NewRandomID() uuid.UUID { return uuid.New() }
