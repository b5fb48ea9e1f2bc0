package utils

import (
	"github.com/pkg/errors"
)

// NewUnexpectedTypeError is used when there is a type mismatch.
func NewUnexpectedTypeError[ExpectedT any](actual interface{}) error {
	var expected ExpectedT
	return errors.Errorf("expected %T but got %T", expected, actual)
}

// NewOutOfRangeError is used when a configured value lies outside its allowed range.
func NewOutOfRangeError(field string, value, lo, hi float64) error {
	return errors.Errorf("%s must be within [%v, %v], got %v", field, lo, hi, value)
}

// NewNonPositiveError is used when a configured value must be strictly positive.
func NewNonPositiveError(field string, value float64) error {
	return errors.Errorf("%s must be a finite value greater than zero, got %v", field, value)
}
