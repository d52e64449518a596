package authsp_test

import (
	"net/url"
	"testing"

	"github.com/fedauth/aselect/internal/assert"
	"github.com/fedauth/aselect/internal/authsp"
)

func validParams() url.Values {
	return url.Values{
		"rid":             {"rid123"},
		"as_url":          {"https://sp.example.org/return?authsp=db"},
		"uid":             {"alice"},
		"a-select-server": {"as.example.org"},
	}
}

func TestParseAuthnRequest(t *testing.T) {
	req, err := authsp.ParseAuthnRequest(validParams())
	assert.Err(t, err, nil)
	assert.Equal(t, req.RequestID(), "rid123")
	assert.Equal(t, req.ASURL(), "https://sp.example.org/return?authsp=db")
	assert.Equal(t, req.UID(), "alice")
	assert.Equal(t, req.ServerID(), "as.example.org")
}

func TestParseAuthnRequestMissingField(t *testing.T) {
	for _, field := range []string{"rid", "as_url", "uid", "a-select-server"} {
		t.Run(field, func(t *testing.T) {
			params := validParams()
			params.Del(field)

			_, err := authsp.ParseAuthnRequest(params)
			assert.Err(t, err, authsp.ErrInvalidRequest)
		})
	}
}

func TestSignablePayloadOrder(t *testing.T) {
	req, err := authsp.NewAuthnRequest("rid1", "https://sp/", "alice", "as1")
	assert.Err(t, err, nil)
	assert.Equal(t, string(req.SignablePayload()), "rid1https://sp/aliceas1")

	// Optional fields join the payload in country-then-language order.
	req.SetLocale("NL", "nl")
	assert.Equal(t, string(req.SignablePayload()), "rid1https://sp/aliceas1NLnl")
}

func TestResultSignableAndRedirect(t *testing.T) {
	res := authsp.NewResult("rid1", "https://sp.example.org/return?authsp=db", "0000", "as1")
	assert.Equal(t, string(res.SignablePayload()), "rid1https://sp.example.org/return?authsp=db0000as1")

	got := res.RedirectURL("c2ln+x/y=")
	want := "https://sp.example.org/return?authsp=db" +
		"&rid=rid1&result_code=0000&a-select-server=as1&signature=c2ln%2Bx%2Fy%3D"
	assert.Equal(t, got, want)
}

func TestRedirectURLWithoutQuery(t *testing.T) {
	res := authsp.NewResult("r", "https://sp.example.org/return", "0030", "as1")
	got := res.RedirectURL("sig")
	assert.Equal(t, got, "https://sp.example.org/return?rid=r&result_code=0030&a-select-server=as1&signature=sig")
}

func TestParseRetryCounter(t *testing.T) {
	n, err := authsp.ParseRetryCounter("")
	assert.Err(t, err, nil)
	assert.Equal(t, n, 1)

	n, err = authsp.ParseRetryCounter("2")
	assert.Err(t, err, nil)
	assert.Equal(t, n, 2)

	for _, raw := range []string{"0", "-1", "two", "2.5", "2; DROP"} {
		_, err := authsp.ParseRetryCounter(raw)
		assert.Err(t, err, authsp.ErrBadRetryCounter)
	}
}

func TestNewRequestID(t *testing.T) {
	a := authsp.NewRequestID()
	b := authsp.NewRequestID()

	assert.Equal(t, len(a), 32)
	assert.True(t, a != b)
}
