package ticket

import (
	"encoding/json"
	"errors"
	"maps"
	"time"
)

var (
	ErrEmptyUID      = errors.New("ticket uid cannot be empty")
	ErrNegativeLevel = errors.New("ticket level cannot be negative")
)

// Ticket is the attribute set sealed into a TGT. Mutated only through the
// Manager's Update; the key it is stored under is not part of the ticket.
type Ticket struct {
	uid          string
	organization string
	level        int
	appID        string
	rid          string
	firstContact time.Time
	extras       map[string]string
}

type Option func(*Ticket)

func WithOrganization(org string) Option {
	return func(t *Ticket) { t.organization = org }
}

func WithAppID(appID string) Option {
	return func(t *Ticket) { t.appID = appID }
}

func WithRequestID(rid string) Option {
	return func(t *Ticket) { t.rid = rid }
}

// WithExtra attaches a backend-supplied attribute outside the known set.
func WithExtra(key, value string) Option {
	return func(t *Ticket) {
		if t.extras == nil {
			t.extras = make(map[string]string)
		}
		t.extras[key] = value
	}
}

func New(uid string, level int, opts ...Option) (Ticket, error) {
	if uid == "" {
		return Ticket{}, ErrEmptyUID
	}
	if level < 0 {
		return Ticket{}, ErrNegativeLevel
	}

	t := Ticket{uid: uid, level: level}
	for _, opt := range opts {
		opt(&t)
	}
	return t, nil
}

func (t Ticket) UID() string          { return t.uid }
func (t Ticket) Organization() string { return t.organization }
func (t Ticket) Level() int           { return t.level }
func (t Ticket) AppID() string        { return t.appID }
func (t Ticket) RequestID() string    { return t.rid }

// FirstContact is the session start marker; zero on a ticket that has not
// been through Create yet.
func (t Ticket) FirstContact() time.Time { return t.firstContact }

func (t Ticket) Extra(key string) (string, bool) {
	v, ok := t.extras[key]
	return v, ok
}

func (t Ticket) Extras() map[string]string {
	if t.extras == nil {
		return nil
	}
	return maps.Clone(t.extras)
}

type ticket struct {
	UID          string            `json:"uid"`
	Organization string            `json:"organization,omitempty"`
	Level        int               `json:"level"`
	AppID        string            `json:"app_id,omitempty"`
	RequestID    string            `json:"rid,omitempty"`
	FirstContact time.Time         `json:"first_contact,omitzero"`
	Extras       map[string]string `json:"extras,omitempty"`
}

func (t Ticket) MarshalJSON() ([]byte, error) {
	return json.Marshal(ticket{
		UID:          t.uid,
		Organization: t.organization,
		Level:        t.level,
		AppID:        t.appID,
		RequestID:    t.rid,
		FirstContact: t.firstContact,
		Extras:       t.extras,
	})
}

func (t *Ticket) UnmarshalJSON(data []byte) error {
	var tmp ticket
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	parsed, err := New(tmp.UID, tmp.Level)
	if err != nil {
		return err
	}
	parsed.organization = tmp.Organization
	parsed.appID = tmp.AppID
	parsed.rid = tmp.RequestID
	parsed.firstContact = tmp.FirstContact
	parsed.extras = tmp.Extras

	*t = parsed
	return nil
}
