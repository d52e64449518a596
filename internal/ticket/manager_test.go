package ticket_test

import (
	"testing"
	"time"

	"github.com/fedauth/aselect/internal/assert"
	"github.com/fedauth/aselect/internal/clock"
	"github.com/fedauth/aselect/internal/crypto"
	"github.com/fedauth/aselect/internal/o11y/logging"
	"github.com/fedauth/aselect/internal/storage"
	"github.com/fedauth/aselect/internal/ticket"
)

type managerEnv struct {
	manager *ticket.Manager
	clock   *clock.TestClock
	tickets storage.Handler
	sso     storage.Handler
}

func newManagerEnv(t *testing.T, cfg ticket.Config) *managerEnv {
	t.Helper()

	logger := logging.Noop()
	clk := clock.NewTestClock()

	key, err := crypto.GenerateRandomKey(24)
	assert.Err(t, err, nil)

	svc, err := crypto.New(crypto.Config{}, logger, crypto.WithSealKey(key))
	assert.Err(t, err, nil)

	tickets := storage.NewMemory(logger,
		storage.WithSensor(ticket.NewSessionSensor(svc, logger)))
	sso := storage.NewMemory(logger)

	if cfg.ServerID == "" {
		cfg.ServerID = "as.example.org"
	}
	if cfg.Lifetime == 0 {
		cfg.Lifetime = time.Hour
	}

	return &managerEnv{
		manager: ticket.NewManager(tickets, sso, svc, clk, logger, cfg),
		clock:   clk,
		tickets: tickets,
		sso:     sso,
	}
}

func TestCreateAndGet(t *testing.T) {
	env := newManagerEnv(t, ticket.Config{})

	tk := mustTicket(t, "alice", 5, ticket.WithAppID("app1"))
	key, err := env.manager.Create(t.Context(), tk)
	assert.Err(t, err, nil)
	assert.Equal(t, len(key), 32)

	got, err := env.manager.Get(t.Context(), key)
	assert.Err(t, err, nil)
	assert.Equal(t, got.UID(), "alice")
	assert.Equal(t, got.Level(), 5)
	assert.Equal(t, got.AppID(), "app1")
	assert.Equal(t, got.FirstContact().Equal(env.clock.Now()), true)

	// The persisted payload is sealed, not the plain attribute JSON.
	sealed, err := env.tickets.Get(t.Context(), key)
	assert.Err(t, err, nil)
	assert.True(t, string(sealed) != `{"uid":"alice","level":5}`)

	_, err = env.manager.Get(t.Context(), "0000000000000000deadbeefdeadbeef")
	assert.Err(t, err, ticket.ErrNotFound)
}

func TestUpdateScenario(t *testing.T) {
	env := newManagerEnv(t, ticket.Config{})

	key, err := env.manager.Create(t.Context(), mustTicket(t, "alice", 5))
	assert.Err(t, err, nil)

	// Lower-assurance re-authentication must not downgrade the level.
	got, err := env.manager.Update(t.Context(), key, mustTicket(t, "alice", 3))
	assert.Err(t, err, nil)
	assert.Equal(t, got.UID(), "alice")
	assert.Equal(t, got.Level(), 5)

	// Identity change replaces the uid and takes the higher level.
	got, err = env.manager.Update(t.Context(), key, mustTicket(t, "bob", 8))
	assert.Err(t, err, nil)
	assert.Equal(t, got.UID(), "bob")
	assert.Equal(t, got.Level(), 8)

	stored, err := env.manager.Get(t.Context(), key)
	assert.Err(t, err, nil)
	assert.Equal(t, stored.UID(), "bob")
	assert.Equal(t, stored.Level(), 8)
}

func TestUpdatePreservesFirstContact(t *testing.T) {
	env := newManagerEnv(t, ticket.Config{})

	key, err := env.manager.Create(t.Context(), mustTicket(t, "alice", 5))
	assert.Err(t, err, nil)
	created := env.clock.Now()

	env.clock.Tick(30 * time.Minute)
	got, err := env.manager.Update(t.Context(), key, mustTicket(t, "alice", 7))
	assert.Err(t, err, nil)
	assert.Equal(t, got.FirstContact().Equal(created), true)

	// The refresh moved the storage timestamp, though.
	ts, err := env.tickets.GetTimestamp(t.Context(), key)
	assert.Err(t, err, nil)
	assert.Equal(t, ts.Equal(env.clock.Now()), true)
}

func TestUpdateInvalidatesSSOIndexOnIdentityChange(t *testing.T) {
	env := newManagerEnv(t, ticket.Config{SSOEnabled: true})

	key, err := env.manager.Create(t.Context(), mustTicket(t, "alice", 5))
	assert.Err(t, err, nil)

	got, ok := env.manager.LookupSSO(t.Context(), "alice")
	assert.True(t, ok)
	assert.Equal(t, got, key)

	_, err = env.manager.Update(t.Context(), key, mustTicket(t, "bob", 5))
	assert.Err(t, err, nil)

	_, ok = env.manager.LookupSSO(t.Context(), "alice")
	assert.False(t, ok)

	got, ok = env.manager.LookupSSO(t.Context(), "bob")
	assert.True(t, ok)
	assert.Equal(t, got, key)
}

func TestRemove(t *testing.T) {
	env := newManagerEnv(t, ticket.Config{SSOEnabled: true})

	key, err := env.manager.Create(t.Context(), mustTicket(t, "alice", 5))
	assert.Err(t, err, nil)

	err = env.manager.Remove(t.Context(), key)
	assert.Err(t, err, nil)

	_, err = env.manager.Get(t.Context(), key)
	assert.Err(t, err, ticket.ErrNotFound)
	_, ok := env.manager.LookupSSO(t.Context(), "alice")
	assert.False(t, ok)

	err = env.manager.Remove(t.Context(), key)
	assert.Err(t, err, ticket.ErrNotFound)
}

func TestCleanupExpiresOldTickets(t *testing.T) {
	env := newManagerEnv(t, ticket.Config{Lifetime: time.Hour})

	oldKey, err := env.manager.Create(t.Context(), mustTicket(t, "alice", 5))
	assert.Err(t, err, nil)

	env.clock.Tick(2 * time.Hour)
	freshKey, err := env.manager.Create(t.Context(), mustTicket(t, "bob", 3))
	assert.Err(t, err, nil)

	sweep, err := env.manager.Cleanup(t.Context())
	assert.Err(t, err, nil)
	assert.Equal(t, sweep.Removed, 1)
	assert.Equal(t, sweep.Remaining, 1)

	_, err = env.manager.Get(t.Context(), oldKey)
	assert.Err(t, err, ticket.ErrNotFound)
	_, err = env.manager.Get(t.Context(), freshKey)
	assert.Err(t, err, nil)
}

func TestCreateRespectsCapacity(t *testing.T) {
	env := newManagerEnv(t, ticket.Config{MaxTickets: 2})

	_, err := env.manager.Create(t.Context(), mustTicket(t, "u1", 1))
	assert.Err(t, err, nil)
	_, err = env.manager.Create(t.Context(), mustTicket(t, "u2", 1))
	assert.Err(t, err, nil)

	_, err = env.manager.Create(t.Context(), mustTicket(t, "u3", 1))
	assert.Err(t, err, storage.ErrMaxCapacityReached)
}

func TestCredential(t *testing.T) {
	env := newManagerEnv(t, ticket.Config{
		ServerID:     "as.example.org",
		SSOEnabled:   true,
		CookieDomain: ".example.org",
	})

	cred := env.manager.Credential("abc123", "alice")
	assert.Equal(t, cred, "tgt=abc123&uid=alice&a-select-server=as.example.org")

	cookie := env.manager.Cookie("abc123", "alice")
	assert.Equal(t, cookie.Name, "aselect_credentials")
	assert.Equal(t, cookie.Domain, ".example.org")
	assert.Equal(t, cookie.Value, cred)
}

func TestCookieNilWithoutSSO(t *testing.T) {
	env := newManagerEnv(t, ticket.Config{SSOEnabled: false})

	var nilCookie = env.manager.Cookie("abc", "alice")
	if nilCookie != nil {
		t.Fatalf("expected nil cookie, got %v", nilCookie)
	}
}
