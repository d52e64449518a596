package start

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"time"

	"github.com/fedauth/aselect/cmd/aselectd/setup"
	"github.com/fedauth/aselect/internal/authsp"
	"github.com/fedauth/aselect/internal/clock"
	"github.com/fedauth/aselect/internal/crypto"
	"github.com/fedauth/aselect/internal/o11y/logging"
	"github.com/fedauth/aselect/internal/server"
	"github.com/fedauth/aselect/internal/shutdown"
	"github.com/fedauth/aselect/internal/storage"
	"github.com/fedauth/aselect/internal/ticket"
)

func Run(ctx context.Context, cfg Config) error {
	logger := logging.New()

	clk := clock.New()
	keygen := crypto.NewKeyGenerator()

	shutdowns := shutdown.New()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	svc, err := crypto.New(crypto.Config{
		SignatureAlgorithm: cfg.SignatureAlg,
		CipherAlgorithm:    cfg.Cipher,
		KeyDir:             cfg.KeyDir,
		Passphrase:         cfg.Passphrase,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to build crypto service: %w", err)
	}

	stores, err := buildStores(cfg, svc, logger, shutdowns)
	if err != nil {
		return fmt.Errorf("failed to open storage backend %q: %w", cfg.Backend, err)
	}

	if err := svc.BootstrapSealKey(ctx, stores.seal, clk, keygen); err != nil {
		return fmt.Errorf("failed to bootstrap seal key: %w", err)
	}

	tickets := ticket.NewManager(stores.tickets, stores.sso, svc, clk, logger, ticket.Config{
		ServerID:     cfg.ServerID,
		Lifetime:     cfg.TicketLifetime,
		MaxTickets:   cfg.MaxTickets,
		CookieDomain: cfg.CookieDomain,
		SSOEnabled:   cfg.SSOEnabled,
	})

	auth, err := authsp.NewFileAuthenticator(cfg.UsersFile)
	if err != nil {
		return fmt.Errorf("failed to load user file: %w", err)
	}

	exchange := authsp.NewExchange(svc, tickets, auth, logger, authsp.Config{
		ServerID:       cfg.ServerID,
		AllowedRetries: cfg.AllowedRetries,
		Organization:   cfg.Organization,
	})

	srv := server.New(logger)
	shutdowns.RegisterCtx(srv.Shutdown)

	register(srv, exchange, tickets, logger)

	startSweeper(ctx, cfg, tickets, logger, shutdowns)

	ln, err := net.Listen("tcp", cfg.Port)
	if err != nil {
		logger.Error("failed to listen on port",
			"error", err,
		)
		return err
	}

	go func() {
		if err := srv.Listen(ctx, ln); err != nil {
			panic(err)
		}
	}()

	logger.Info("Press Ctrl+C to shut down")
	if err := shutdowns.WaitForSignal(ctx); err != nil {
		logger.Error("shutdown failed", "error", err)
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("Server shutdown complete")
	return nil
}

type stores struct {
	tickets storage.Handler
	sso     storage.Handler
	seal    storage.Handler
}

// buildStores opens the ticket, single sign-on index and seal-key stores
// on the configured backend. The seal-key store is separate so the crypto
// service can bootstrap through it before any ticket exists.
func buildStores(
	cfg Config,
	svc *crypto.Service,
	logger *logging.Logger,
	shutdowns *shutdown.Shutdowns,
) (stores, error) {
	sensor := ticket.NewSessionSensor(svc, logger)

	switch cfg.Backend {
	case "memory":
		return stores{
			tickets: storage.NewMemory(logger, storage.WithSensor(sensor)),
			sso:     storage.NewMemory(logger),
			seal:    storage.NewMemory(logger),
		}, nil

	case "basic":
		return stores{
			tickets: storage.NewBasic(logger, 1024, storage.WithBasicSensor(sensor)),
			sso:     storage.NewBasic(logger, 1024),
			seal:    storage.NewBasic(logger, 1),
		}, nil

	case "sql":
		var out stores
		for _, bind := range []struct {
			table  string
			sensor storage.Sensor
			dst    *storage.Handler
		}{
			{setup.TicketsTable, sensor, &out.tickets},
			{setup.SSOTable, nil, &out.sso},
			{setup.SealKeyTable, nil, &out.seal},
		} {
			store, err := storage.NewSQL(storage.SQLConfig{
				DSN:    cfg.DBPath,
				Table:  bind.table,
				Logger: logger,
				Sensor: bind.sensor,
			})
			if err != nil {
				return stores{}, err
			}
			shutdowns.Register(store.Destroy)
			*bind.dst = store
		}
		return out, nil

	default:
		return stores{}, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// startSweeper expires idle tickets in the background. The manager itself
// never sweeps; expiry is driven from here.
func startSweeper(
	ctx context.Context,
	cfg Config,
	tickets *ticket.Manager,
	logger *logging.Logger,
	shutdowns *shutdown.Shutdowns,
) {
	sweepCtx, cancel := context.WithCancel(ctx)
	shutdowns.Register(func() error {
		cancel()
		return nil
	})

	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				sweep, err := tickets.Cleanup(sweepCtx)
				if err != nil {
					logger.Error("ticket sweep failed", "error", err)
					continue
				}
				if sweep.Removed > 0 {
					logger.Info("ticket sweep",
						"scanned", sweep.Scanned,
						"removed", sweep.Removed,
						"remaining", sweep.Remaining,
					)
				}
			}
		}
	}()
}
