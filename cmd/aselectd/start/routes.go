package start

import (
	"github.com/fedauth/aselect/internal/authsp"
	"github.com/fedauth/aselect/internal/o11y/logging"
	"github.com/fedauth/aselect/internal/server"
	"github.com/fedauth/aselect/internal/ticket"
)

func register(
	srv *server.Server,
	exchange *authsp.Exchange,
	tickets *ticket.Manager,
	logger *logging.Logger,
) {
	logged := server.WithLogging(logger)

	srv.Register(authsp.NewHandler(exchange, tickets, logger), logged)
	srv.Register(authsp.NewLogoutHandler(tickets, logger), logged)
}
