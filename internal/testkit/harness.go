package testkit

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/fedauth/aselect/internal/assert"
	"github.com/fedauth/aselect/internal/authsp"
	"github.com/fedauth/aselect/internal/clock"
	"github.com/fedauth/aselect/internal/crypto"
	"github.com/fedauth/aselect/internal/o11y/logging"
	"github.com/fedauth/aselect/internal/server"
	"github.com/fedauth/aselect/internal/storage"
	"github.com/fedauth/aselect/internal/ticket"
)

const ServerID = "as.test.example.org"

// Harness wires the whole core against in-memory fakes: test clock,
// memory storage, a crypto service whose RSA pair is registered under the
// test server id so exchanges can both sign and verify.
type Harness struct {
	t *testing.T

	Clock   *clock.TestClock
	Logger  *logging.Logger
	Crypto  *crypto.Service
	Tickets *ticket.Manager

	TicketStore storage.Handler
	SSOStore    storage.Handler

	serverKey *rsa.PrivateKey
}

func NewHarness(t *testing.T) *Harness {
	t.Helper()

	logger := logging.Noop()
	testClock := clock.NewTestClock()

	serverKey, err := rsa.GenerateKey(rand.Reader, 2048)
	assert.Err(t, err, nil)

	sealKey, err := crypto.GenerateRandomKey(24)
	assert.Err(t, err, nil)

	svc, err := crypto.New(crypto.Config{}, logger,
		crypto.WithServerKey(serverKey),
		crypto.WithPrivateKey(ServerID, serverKey),
		crypto.WithPublicKey(ServerID, &serverKey.PublicKey),
		crypto.WithSealKey(sealKey),
	)
	assert.Err(t, err, nil)

	ticketStore := storage.NewMemory(logger,
		storage.WithSensor(ticket.NewSessionSensor(svc, logger)))
	ssoStore := storage.NewMemory(logger)

	manager := ticket.NewManager(ticketStore, ssoStore, svc, testClock, logger, ticket.Config{
		ServerID:     ServerID,
		Lifetime:     time.Hour,
		SSOEnabled:   true,
		CookieDomain: ".test.example.org",
	})

	return &Harness{
		t:           t,
		Clock:       testClock,
		Logger:      logger,
		Crypto:      svc,
		Tickets:     manager,
		TicketStore: ticketStore,
		SSOStore:    ssoStore,
		serverKey:   serverKey,
	}
}

// NewExchange builds a protocol exchange over the harness components.
func (h *Harness) NewExchange(auth authsp.Authenticator, cfg authsp.Config) *authsp.Exchange {
	if cfg.ServerID == "" {
		cfg.ServerID = ServerID
	}
	return authsp.NewExchange(h.Crypto, h.Tickets, auth, h.Logger, cfg)
}

// SignedRequest renders req as wire parameters with a valid signature,
// plus any extra parameters (password, retry_counter, tgt).
func (h *Harness) SignedRequest(req authsp.AuthnRequest, extra url.Values) url.Values {
	h.t.Helper()

	params := req.Values()
	sig, err := h.Crypto.Sign(ServerID, req.SignablePayload())
	assert.Err(h.t, err, nil)
	params.Set("signature", sig)

	for k, vs := range extra {
		for _, v := range vs {
			params.Set(k, v)
		}
	}
	return params
}

func (h *Harness) NewServer() *server.Server {
	return server.New(h.Logger)
}

// CallForm posts url-encoded parameters at a registered route and returns
// the raw recorder, for handlers that answer with redirects.
func CallForm(t *testing.T, srv *server.Server, r server.Route, params url.Values) *httptest.ResponseRecorder {
	t.Helper()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(r.Method(), r.Path(), strings.NewReader(params.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	srv.Mux().ServeHTTP(rr, req)
	return rr
}

// StaticAuthenticator grants when the supplied password matches, asks for
// a retry otherwise, and surfaces Err as a backend failure when set.
type StaticAuthenticator struct {
	Password string
	Level    int
	Err      error
}

var _ authsp.Authenticator = StaticAuthenticator{}

func (s StaticAuthenticator) Authenticate(_ context.Context, _, password string) (authsp.Verdict, error) {
	if s.Err != nil {
		return authsp.Verdict{}, s.Err
	}
	if password == s.Password {
		return authsp.Verdict{Decision: authsp.DecisionGranted, Level: s.Level}, nil
	}
	return authsp.Verdict{Decision: authsp.DecisionRetry}, nil
}
