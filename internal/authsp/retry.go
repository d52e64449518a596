package authsp

import (
	"errors"
	"strconv"
)

var ErrBadRetryCounter = errors.New("malformed retry counter")

// The retry counter travels with the client between round trips, not in
// server state, so it is untrusted input: re-validated as an integer on
// every step.
//
// An absent counter is the first attempt.
func ParseRetryCounter(raw string) (int, error) {
	if raw == "" {
		return 1, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, ErrBadRetryCounter
	}
	return n, nil
}
