package authsp

import (
	"errors"
	"net/http"

	"github.com/fedauth/aselect/internal/o11y/logging"
	"github.com/fedauth/aselect/internal/server"
	"github.com/fedauth/aselect/internal/ticket"
)

// LogoutHandler destroys a ticket on explicit application logout.
type LogoutHandler struct {
	tickets *ticket.Manager
	log     *logging.Logger
}

func NewLogoutHandler(tickets *ticket.Manager, log *logging.Logger) *LogoutHandler {
	return &LogoutHandler{tickets: tickets, log: log}
}

func (h *LogoutHandler) Method() string { return http.MethodPost }
func (h *LogoutHandler) Path() string   { return "/logout" }

type logoutResponse struct {
	ResultCode string `json:"result_code"`
}

func (h *LogoutHandler) Handle() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		params, err := server.DecodeForm(req)
		if err != nil {
			server.EncodeError(w, http.StatusBadRequest, ErrInvalidRequest)
			return
		}

		key := params.Get("tgt")
		if key == "" {
			server.EncodeError(w, http.StatusBadRequest, ErrInvalidRequest)
			return
		}

		err = h.tickets.Remove(req.Context(), key)
		switch {
		case errors.Is(err, ticket.ErrNotFound):
			// Logging out an already-dead ticket is not an error worth
			// reporting to the peer.
		case err != nil:
			h.log.Error("logout failed", "err", err)
			server.EncodeError(w, http.StatusInternalServerError, ErrInvalidRequest)
			return
		}

		_ = server.Encode(w, http.StatusOK, logoutResponse{ResultCode: ResultOK})
	}
}
