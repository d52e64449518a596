package authsp

import "context"

// Decision is the pass/fail/retry contract of a pluggable credential
// backend. How the backend validates (directory bind, SQL lookup) is its
// own business; only the verdict crosses this boundary.
type Decision int

const (
	// DecisionGranted authenticates the user at the backend's level.
	DecisionGranted Decision = iota
	// DecisionRetry rejects the credentials but allows another attempt.
	DecisionRetry
	// DecisionDenied rejects the user outright; no retry.
	DecisionDenied
)

// Verdict carries the decision plus the trust level a granting backend
// vouches for.
type Verdict struct {
	Decision Decision
	Level    int
}

type Authenticator interface {
	// Authenticate returns a non-nil error only when the backend itself
	// is unreachable or broken; a wrong password is a Verdict, not an
	// error.
	Authenticate(ctx context.Context, uid, password string) (Verdict, error)
}

// AuthenticatorFunc adapts a function to the Authenticator interface.
type AuthenticatorFunc func(ctx context.Context, uid, password string) (Verdict, error)

func (f AuthenticatorFunc) Authenticate(ctx context.Context, uid, password string) (Verdict, error) {
	return f(ctx, uid, password)
}
