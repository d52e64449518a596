package ticket

import (
	"encoding/json"
	"time"

	"github.com/fedauth/aselect/internal/crypto"
	"github.com/fedauth/aselect/internal/o11y/logging"
	"github.com/fedauth/aselect/internal/storage"
)

// SessionSensor summarizes the lifetime of sessions the expiration sweep
// evicts. Records without the first-contact marker, and records that do
// not decode, are ignored: telemetry never fails a sweep.
type SessionSensor struct {
	crypto *crypto.Service
	logger *logging.Logger
}

var _ storage.Sensor = (*SessionSensor)(nil)

func NewSessionSensor(svc *crypto.Service, logger *logging.Logger) *SessionSensor {
	return &SessionSensor{crypto: svc, logger: logger}
}

func (s *SessionSensor) OnExpired(value []byte, age time.Duration) {
	raw, err := s.crypto.DecryptTicket(string(value))
	if err != nil {
		return
	}

	var t Ticket
	if err := json.Unmarshal(raw, &t); err != nil {
		return
	}
	if t.FirstContact().IsZero() {
		return
	}

	s.logger.Info("session expired",
		"uid", t.UID(),
		"app_id", t.AppID(),
		"level", t.Level(),
		"idle", age.String(),
		"session_lifetime", time.Since(t.FirstContact()).String(),
	)
}
