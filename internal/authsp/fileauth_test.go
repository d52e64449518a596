package authsp_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fedauth/aselect/internal/assert"
	"github.com/fedauth/aselect/internal/authsp"
)

func writeUserFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.txt")
	assert.Err(t, os.WriteFile(path, []byte(contents), 0o600), nil)
	return path
}

func TestFileAuthenticatorGrantsAtConfiguredLevel(t *testing.T) {
	path := writeUserFile(t, "# test users\n\nalice:hunter2:5\nbob:swordfish:1\n")

	auth, err := authsp.NewFileAuthenticator(path)
	assert.Err(t, err, nil)

	verdict, err := auth.Authenticate(t.Context(), "alice", "hunter2")
	assert.Err(t, err, nil)
	assert.Equal(t, verdict.Decision, authsp.DecisionGranted)
	assert.Equal(t, verdict.Level, 5)
}

func TestFileAuthenticatorWrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	path := writeUserFile(t, "alice:hunter2:5\n")

	auth, err := authsp.NewFileAuthenticator(path)
	assert.Err(t, err, nil)

	wrongPassword, err := auth.Authenticate(t.Context(), "alice", "letmein")
	assert.Err(t, err, nil)

	unknownUser, err := auth.Authenticate(t.Context(), "mallory", "letmein")
	assert.Err(t, err, nil)

	assert.Equal(t, wrongPassword, unknownUser)
	assert.Equal(t, wrongPassword.Decision, authsp.DecisionRetry)
}

func TestFileAuthenticatorRejectsMalformedFile(t *testing.T) {
	tests := map[string]string{
		"missing level":  "alice:hunter2\n",
		"bad level":      "alice:hunter2:high\n",
		"negative level": "alice:hunter2:-1\n",
		"empty uid":      ":hunter2:5\n",
	}

	for name, contents := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := authsp.NewFileAuthenticator(writeUserFile(t, contents))
			assert.Err(t, err, authsp.ErrBadUserFile)
		})
	}
}

func TestFileAuthenticatorReload(t *testing.T) {
	path := writeUserFile(t, "alice:hunter2:5\n")

	auth, err := authsp.NewFileAuthenticator(path)
	assert.Err(t, err, nil)

	assert.Err(t, os.WriteFile(path, []byte("alice:rotated:5\n"), 0o600), nil)
	assert.Err(t, auth.Load(path), nil)

	verdict, err := auth.Authenticate(t.Context(), "alice", "rotated")
	assert.Err(t, err, nil)
	assert.Equal(t, verdict.Decision, authsp.DecisionGranted)

	stale, err := auth.Authenticate(t.Context(), "alice", "hunter2")
	assert.Err(t, err, nil)
	assert.Equal(t, stale.Decision, authsp.DecisionRetry)
}
