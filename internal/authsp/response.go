package authsp

import (
	"net/url"
	"strings"
)

// Result is the redirect-delivered outcome of an exchange. Its signature
// is separate from the inbound one and covers (rid, asURL, resultCode,
// serverID) in that order.
type Result struct {
	rid        string
	asURL      string
	resultCode string
	serverID   string
}

func NewResult(rid, asURL, resultCode, serverID string) Result {
	return Result{
		rid:        rid,
		asURL:      asURL,
		resultCode: resultCode,
		serverID:   serverID,
	}
}

func (r Result) RequestID() string  { return r.rid }
func (r Result) ResultCode() string { return r.resultCode }

func (r Result) SignablePayload() []byte {
	var b strings.Builder
	b.WriteString(r.rid)
	b.WriteString(r.asURL)
	b.WriteString(r.resultCode)
	b.WriteString(r.serverID)
	return []byte(b.String())
}

// RedirectURL appends the result parameters to the origin URL. The origin
// is taken as-is; it already carries its own query when the requester
// included one.
func (r Result) RedirectURL(signature string) string {
	sep := "?"
	if strings.Contains(r.asURL, "?") {
		sep = "&"
	}

	return r.asURL + sep +
		"rid=" + url.QueryEscape(r.rid) +
		"&result_code=" + url.QueryEscape(r.resultCode) +
		"&a-select-server=" + url.QueryEscape(r.serverID) +
		"&signature=" + url.QueryEscape(signature)
}
