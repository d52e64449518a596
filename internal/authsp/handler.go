package authsp

import (
	"net/http"

	"github.com/fedauth/aselect/internal/o11y/logging"
	"github.com/fedauth/aselect/internal/server"
	"github.com/fedauth/aselect/internal/ticket"
)

// Handler exposes the exchange over HTTP. Terminal outcomes leave as a
// signed redirect to the origin URL; retry outcomes re-prompt the client
// with the incremented counter (form rendering is the caller's concern).
type Handler struct {
	exchange *Exchange
	tickets  *ticket.Manager
	log      *logging.Logger
}

func NewHandler(exchange *Exchange, tickets *ticket.Manager, log *logging.Logger) *Handler {
	return &Handler{exchange: exchange, tickets: tickets, log: log}
}

func (h *Handler) Method() string { return http.MethodPost }
func (h *Handler) Path() string   { return "/authenticate" }

type retryResponse struct {
	ResultCode   string `json:"result_code"`
	RetryCounter int    `json:"retry_counter"`
}

func (h *Handler) Handle() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		params, err := server.DecodeForm(req)
		if err != nil {
			server.EncodeError(w, http.StatusBadRequest, ErrInvalidRequest)
			return
		}

		outcome := h.exchange.Handle(req.Context(), params)

		// Nothing to redirect to when the request never parsed or its
		// signature did not verify.
		if outcome.Request == (AuthnRequest{}) {
			server.EncodeError(w, http.StatusBadRequest, ErrInvalidRequest)
			return
		}

		if outcome.Retry {
			if err := server.Encode(w, http.StatusUnauthorized, retryResponse{
				ResultCode:   outcome.Code,
				RetryCounter: outcome.RetryCounter,
			}); err != nil {
				server.EncodeError(w, http.StatusInternalServerError, err)
			}
			return
		}

		res, sig, err := h.exchange.SignResult(outcome.Request, outcome.Code)
		if err != nil {
			h.log.Error("failed to sign result", "rid", outcome.Request.RequestID(), "err", err)
			server.EncodeError(w, http.StatusInternalServerError, ErrInvalidRequest)
			return
		}

		if outcome.Code == ResultOK {
			if cookie := h.tickets.Cookie(outcome.TicketKey, outcome.UID); cookie != nil {
				http.SetCookie(w, cookie)
			}
		}

		http.Redirect(w, req, res.RedirectURL(sig), http.StatusFound)
	}
}
