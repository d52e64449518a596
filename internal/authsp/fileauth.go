package authsp

import (
	"bufio"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

var ErrBadUserFile = errors.New("malformed user file")

type fileEntry struct {
	password string
	level    int
}

// FileAuthenticator verifies credentials against a flat user file, one
// `uid:password:level` entry per line. Blank lines and lines starting
// with '#' are skipped. It is a development backend; production
// deployments plug in their own Authenticator.
type FileAuthenticator struct {
	mu      sync.RWMutex
	entries map[string]fileEntry
}

var _ Authenticator = (*FileAuthenticator)(nil)

func NewFileAuthenticator(path string) (*FileAuthenticator, error) {
	a := &FileAuthenticator{entries: make(map[string]fileEntry)}
	if err := a.Load(path); err != nil {
		return nil, err
	}
	return a, nil
}

// Load replaces the entry set from path. Used at startup and safe to call
// again for a reload.
func (a *FileAuthenticator) Load(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open user file: %w", err)
	}
	defer f.Close()

	entries := make(map[string]fileEntry)

	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, ":", 3)
		if len(parts) != 3 || parts[0] == "" {
			return fmt.Errorf("%w: %s line %d", ErrBadUserFile, path, lineno)
		}
		level, err := strconv.Atoi(parts[2])
		if err != nil || level < 0 {
			return fmt.Errorf("%w: %s line %d: bad level %q", ErrBadUserFile, path, lineno, parts[2])
		}

		entries[parts[0]] = fileEntry{password: parts[1], level: level}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read user file: %w", err)
	}

	a.mu.Lock()
	a.entries = entries
	a.mu.Unlock()
	return nil
}

func (a *FileAuthenticator) Authenticate(_ context.Context, uid, password string) (Verdict, error) {
	a.mu.RLock()
	entry, ok := a.entries[uid]
	a.mu.RUnlock()

	// An unknown uid and a wrong password are indistinguishable to the
	// caller; both re-prompt.
	if !ok || subtle.ConstantTimeCompare([]byte(entry.password), []byte(password)) != 1 {
		return Verdict{Decision: DecisionRetry}, nil
	}
	return Verdict{Decision: DecisionGranted, Level: entry.level}, nil
}
