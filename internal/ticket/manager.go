package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fedauth/aselect/internal/clock"
	"github.com/fedauth/aselect/internal/crypto"
	"github.com/fedauth/aselect/internal/o11y/logging"
	"github.com/fedauth/aselect/internal/storage"
)

var (
	ErrNotFound  = errors.New("ticket not found")
	ErrExhausted = errors.New("could not allocate a fresh ticket key")
)

const keyBytes = 16 // 128-bit random keys, rendered as 32 hex chars

type Config struct {
	ServerID     string
	Lifetime     time.Duration
	MaxTickets   int // 0 disables the capacity bound
	CookieDomain string
	SSOEnabled   bool
}

// Manager owns the ticket lifecycle: absent -> active -> refreshed* ->
// expired or removed. Payloads are sealed through the crypto service
// before they reach the storage handler.
type Manager struct {
	tickets storage.Handler
	sso     storage.Handler
	crypto  *crypto.Service
	clock   clock.Clock
	logger  *logging.Logger
	cfg     Config
}

func NewManager(
	tickets storage.Handler,
	sso storage.Handler,
	svc *crypto.Service,
	clk clock.Clock,
	logger *logging.Logger,
	cfg Config,
) *Manager {
	if cfg.Lifetime == 0 {
		cfg.Lifetime = 4 * time.Hour
	}

	return &Manager{
		tickets: tickets,
		sso:     sso,
		crypto:  svc,
		clock:   clk,
		logger:  logger,
		cfg:     cfg,
	}
}

// Create seals t and stores it under a fresh unguessable key. InsertOnly
// semantics: an existing ticket is never silently overwritten, a key
// collision allocates a new key instead.
func (m *Manager) Create(ctx context.Context, t Ticket) (string, error) {
	if m.cfg.MaxTickets > 0 && m.tickets.IsMaximum(ctx, m.cfg.MaxTickets) {
		return "", storage.ErrMaxCapacityReached
	}

	now := m.clock.Now()
	t.firstContact = now

	sealed, err := m.seal(t)
	if err != nil {
		return "", err
	}

	for range 3 {
		key, err := crypto.RandomID(keyBytes)
		if err != nil {
			return "", err
		}

		err = m.tickets.Put(ctx, key, sealed, now, storage.InsertOnly)
		if errors.Is(err, storage.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return "", err
		}

		if m.cfg.SSOEnabled {
			m.indexSSO(ctx, t.uid, key)
		}

		m.logger.Info("ticket created",
			"uid", t.uid,
			"level", t.level,
			"app_id", t.appID,
		)
		return key, nil
	}

	return "", ErrExhausted
}

func (m *Manager) Get(ctx context.Context, key string) (Ticket, error) {
	sealed, err := m.tickets.Get(ctx, key)
	if errors.Is(err, storage.ErrNoSuchKey) {
		return Ticket{}, ErrNotFound
	}
	if err != nil {
		return Ticket{}, err
	}
	return m.unseal(sealed)
}

// Update merges proposed into the ticket under key. The trust level never
// drops below its stored value; an identity change replaces the uid and
// invalidates the single-sign-on index entry of the previous identity.
func (m *Manager) Update(ctx context.Context, key string, proposed Ticket) (Ticket, error) {
	old, err := m.Get(ctx, key)
	if err != nil {
		return Ticket{}, err
	}

	ov := MergeOverrides(old, proposed)

	merged := proposed
	merged.firstContact = old.firstContact
	if ov.KeepLevel {
		merged.level = ov.Level
	}

	sealed, err := m.seal(merged)
	if err != nil {
		return Ticket{}, err
	}

	if err := m.tickets.Put(ctx, key, sealed, m.clock.Now(), storage.UpdateFirst); err != nil {
		return Ticket{}, err
	}

	if ov.UIDChanged {
		m.dropSSO(ctx, ov.PreviousUID)
		if m.cfg.SSOEnabled {
			m.indexSSO(ctx, merged.uid, key)
		}
		m.logger.Info("ticket identity changed",
			"previous_uid", ov.PreviousUID,
			"uid", merged.uid,
		)
	}

	return merged, nil
}

func (m *Manager) Remove(ctx context.Context, key string) error {
	// Best effort: drop the SSO index entry when the ticket still decodes.
	if t, err := m.Get(ctx, key); err == nil {
		m.dropSSO(ctx, t.uid)
	}

	err := m.tickets.Remove(ctx, key)
	if errors.Is(err, storage.ErrNoSuchKey) {
		return ErrNotFound
	}
	return err
}

// LookupSSO resolves a uid to its live ticket key, if any.
func (m *Manager) LookupSSO(ctx context.Context, uid string) (string, bool) {
	key, err := m.sso.Get(ctx, uid)
	if err != nil {
		return "", false
	}

	// The index may outlive the ticket; treat a dangling entry as a miss.
	if !m.tickets.ContainsKey(ctx, string(key)) {
		m.dropSSO(ctx, uid)
		return "", false
	}
	return string(key), true
}

// Cleanup sweeps every ticket whose refresh timestamp is older than the
// configured lifetime, and prunes the matching SSO index entries.
func (m *Manager) Cleanup(ctx context.Context) (storage.Sweep, error) {
	cutoff := m.clock.Now().Add(-m.cfg.Lifetime)

	sweep, err := m.tickets.Cleanup(ctx, cutoff)
	if err != nil {
		return sweep, err
	}

	if _, err := m.sso.Cleanup(ctx, cutoff); err != nil {
		m.logger.Warn("sso index sweep failed", "error", err.Error())
	}
	return sweep, nil
}

// Credential renders the cookie credential string for an issued ticket.
func (m *Manager) Credential(key, uid string) string {
	return fmt.Sprintf("tgt=%s&uid=%s&a-select-server=%s", key, uid, m.cfg.ServerID)
}

// Cookie builds the SSO credential cookie; nil when SSO is disabled.
func (m *Manager) Cookie(key, uid string) *http.Cookie {
	if !m.cfg.SSOEnabled {
		return nil
	}

	return &http.Cookie{
		Name:     "aselect_credentials",
		Value:    m.Credential(key, uid),
		Domain:   m.cfg.CookieDomain,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(m.cfg.Lifetime.Seconds()),
	}
}

func (m *Manager) seal(t Ticket) ([]byte, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}

	sealed, err := m.crypto.EncryptTicket(raw)
	if err != nil {
		return nil, err
	}
	return []byte(sealed), nil
}

func (m *Manager) unseal(sealed []byte) (Ticket, error) {
	raw, err := m.crypto.DecryptTicket(string(sealed))
	if err != nil {
		return Ticket{}, err
	}

	var t Ticket
	if err := json.Unmarshal(raw, &t); err != nil {
		return Ticket{}, err
	}
	return t, nil
}

func (m *Manager) indexSSO(ctx context.Context, uid, key string) {
	if err := m.sso.Put(ctx, uid, []byte(key), m.clock.Now(), storage.UpdateFirst); err != nil {
		m.logger.Warn("sso index update failed", "uid", uid, "error", err.Error())
	}
}

func (m *Manager) dropSSO(ctx context.Context, uid string) {
	err := m.sso.Remove(ctx, uid)
	if err != nil && !errors.Is(err, storage.ErrNoSuchKey) {
		m.logger.Warn("sso index removal failed", "uid", uid, "error", err.Error())
	}
}
