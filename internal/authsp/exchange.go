package authsp

import (
	"context"
	"net/url"
	"strings"

	"github.com/fedauth/aselect/internal/crypto"
	"github.com/fedauth/aselect/internal/o11y/logging"
	"github.com/fedauth/aselect/internal/ticket"
)

type Config struct {
	ServerID       string
	AllowedRetries int
	// DefaultLevel is vouched for when a granting backend reports none.
	DefaultLevel int
	Organization string
}

// Outcome is what one protocol step produced. Retry outcomes re-prompt
// with the incremented counter; terminal outcomes are delivered as a
// signed redirect by the HTTP handler.
type Outcome struct {
	Code         string
	TicketKey    string
	UID          string
	Retry        bool
	RetryCounter int

	// Request is zero when parsing or signature verification failed; no
	// redirect can be built then.
	Request AuthnRequest
}

// Exchange runs the signature-authenticated request/response protocol and
// drives the ticket lifecycle on success.
type Exchange struct {
	crypto  *crypto.Service
	tickets *ticket.Manager
	auth    Authenticator
	logger  *logging.Logger
	cfg     Config
}

func NewExchange(
	svc *crypto.Service,
	tickets *ticket.Manager,
	auth Authenticator,
	logger *logging.Logger,
	cfg Config,
) *Exchange {
	if cfg.AllowedRetries == 0 {
		cfg.AllowedRetries = 3
	}
	if cfg.DefaultLevel == 0 {
		cfg.DefaultLevel = 1
	}

	return &Exchange{
		crypto:  svc,
		tickets: tickets,
		auth:    auth,
		logger:  logger,
		cfg:     cfg,
	}
}

// Handle processes one protocol step. A missing mandatory field and a bad
// signature both come back as ResultInvalidRequest: the peer must not be
// able to tell which check failed.
func (e *Exchange) Handle(ctx context.Context, params url.Values) Outcome {
	req, err := ParseAuthnRequest(params)
	if err != nil {
		e.logger.Warn("rejected malformed authentication request")
		return Outcome{Code: ResultInvalidRequest}
	}

	alias := strings.ToLower(req.ServerID())
	if !e.crypto.Verify(alias, req.SignablePayload(), params.Get("signature")) {
		e.logger.Warn("rejected authentication request", "rid", req.RequestID())
		return Outcome{Code: ResultInvalidRequest}
	}

	counter, err := ParseRetryCounter(params.Get("retry_counter"))
	if err != nil {
		return Outcome{Code: ResultInvalidRequest, Request: req}
	}
	if counter > e.cfg.AllowedRetries {
		e.logger.Info("retry budget exhausted",
			"rid", req.RequestID(),
			"uid", req.UID(),
			"attempt", counter,
		)
		return Outcome{Code: ResultAccessDenied, Request: req}
	}

	verdict, err := e.auth.Authenticate(ctx, req.UID(), params.Get("password"))
	if err != nil {
		e.logger.Error("authentication backend failed",
			"rid", req.RequestID(),
			"err", err,
		)
		return Outcome{Code: ResultBackendUnreachable, Request: req}
	}

	switch verdict.Decision {
	case DecisionGranted:
		return e.grant(ctx, req, params.Get("tgt"), verdict)
	case DecisionRetry:
		return Outcome{
			Code:         ResultInvalidPassword,
			Retry:        true,
			RetryCounter: counter + 1,
			Request:      req,
		}
	default:
		return Outcome{Code: ResultAccessDenied, Request: req}
	}
}

// grant issues a fresh ticket, or upgrades the presented one when the
// peer carried a live TGT into the exchange (single sign-on).
func (e *Exchange) grant(ctx context.Context, req AuthnRequest, existing string, verdict Verdict) Outcome {
	level := verdict.Level
	if level == 0 {
		level = e.cfg.DefaultLevel
	}

	t, err := ticket.New(req.UID(), level,
		ticket.WithOrganization(e.cfg.Organization),
		ticket.WithRequestID(req.RequestID()),
	)
	if err != nil {
		return Outcome{Code: ResultInternalError, Request: req}
	}

	if existing != "" {
		if _, err := e.tickets.Update(ctx, existing, t); err == nil {
			return Outcome{Code: ResultOK, TicketKey: existing, UID: req.UID(), Request: req}
		}
		// A dead TGT is not an error; fall through to a fresh issue.
	}

	key, err := e.tickets.Create(ctx, t)
	if err != nil {
		e.logger.Error("ticket issue failed", "rid", req.RequestID(), "err", err)
		return Outcome{Code: ResultInternalError, Request: req}
	}

	return Outcome{Code: ResultOK, TicketKey: key, UID: req.UID(), Request: req}
}

// SignResult signs the redirect-delivered result with the key material of
// the requesting principal, never with anything derived from the ticket.
func (e *Exchange) SignResult(req AuthnRequest, code string) (Result, string, error) {
	res := NewResult(req.RequestID(), req.ASURL(), code, req.ServerID())

	sig, err := e.crypto.Sign(strings.ToLower(req.ServerID()), res.SignablePayload())
	if err != nil {
		return Result{}, "", err
	}
	return res, sig, nil
}
