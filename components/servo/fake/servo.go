// Package fake implements a fake servo.
package fake

import (
	"context"
	"math"
	"sync"

	"github.com/ftcshooter/firecontrol/components/servo"
	"github.com/ftcshooter/firecontrol/logging"
)

var _ servo.Servo = &Servo{}

// A Servo allows setting and reading a single position.
type Servo struct {
	Name   string
	Logger logging.Logger

	mu       sync.Mutex
	position float64
	moves    int
}

// NewServo returns a fake servo at position zero.
func NewServo(name string, logger logging.Logger) *Servo {
	return &Servo{Name: name, Logger: logger}
}

// Move sets the given position.
func (s *Servo) Move(ctx context.Context, position float64) error {
	if math.IsNaN(position) || position < 0 || position > 1 {
		return servo.NewPositionOutOfRangeError(s.Name, position)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Logger.Debugf("Servo Move %f", position)
	s.position = position
	s.moves++
	return nil
}

// Position returns the set position.
func (s *Servo) Position(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position, nil
}

// Stop doesn't do anything for a fake servo.
func (s *Servo) Stop(ctx context.Context) error {
	return nil
}

// Moves returns how many successful Move calls the servo received.
func (s *Servo) Moves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.moves
}
