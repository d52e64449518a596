package authsp

import (
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidRequest = errors.New("invalid authentication request")

// AuthnRequest is the signed inbound challenge of one authentication
// exchange. The signature covers the concatenation of (rid, asURL, uid,
// serverID, [country], [language]) in exactly that order; optional fields
// join the payload only when present.
type AuthnRequest struct {
	rid      string
	asURL    string
	uid      string
	serverID string
	country  string
	language string
}

func NewAuthnRequest(rid, asURL, uid, serverID string) (AuthnRequest, error) {
	if rid == "" || asURL == "" || uid == "" || serverID == "" {
		return AuthnRequest{}, ErrInvalidRequest
	}

	return AuthnRequest{
		rid:      rid,
		asURL:    asURL,
		uid:      uid,
		serverID: serverID,
	}, nil
}

// NewRequestID mints an opaque request id for an outbound exchange.
func NewRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (r *AuthnRequest) SetLocale(country, language string) {
	r.country = country
	r.language = language
}

func (r AuthnRequest) RequestID() string { return r.rid }
func (r AuthnRequest) ASURL() string     { return r.asURL }
func (r AuthnRequest) UID() string       { return r.uid }
func (r AuthnRequest) ServerID() string  { return r.serverID }
func (r AuthnRequest) Country() string   { return r.country }
func (r AuthnRequest) Language() string  { return r.language }

// SignablePayload renders the byte sequence both sides sign and verify.
func (r AuthnRequest) SignablePayload() []byte {
	var b strings.Builder
	b.WriteString(r.rid)
	b.WriteString(r.asURL)
	b.WriteString(r.uid)
	b.WriteString(r.serverID)
	b.WriteString(r.country)
	b.WriteString(r.language)
	return []byte(b.String())
}

// Values renders the request as wire parameters, minus the signature.
func (r AuthnRequest) Values() url.Values {
	v := url.Values{}
	v.Set("rid", r.rid)
	v.Set("as_url", r.asURL)
	v.Set("uid", r.uid)
	v.Set("a-select-server", r.serverID)
	if r.country != "" {
		v.Set("country", r.country)
	}
	if r.language != "" {
		v.Set("language", r.language)
	}
	return v
}

// ParseAuthnRequest validates the mandatory wire parameters. Which field
// is missing is deliberately not reported; the caller maps every parse
// failure to the same invalid-request result code.
func ParseAuthnRequest(params url.Values) (AuthnRequest, error) {
	req, err := NewAuthnRequest(
		params.Get("rid"),
		params.Get("as_url"),
		params.Get("uid"),
		params.Get("a-select-server"),
	)
	if err != nil {
		return AuthnRequest{}, err
	}

	req.SetLocale(params.Get("country"), params.Get("language"))
	return req, nil
}
