package notifier

import (
	"time"

	"go-threatguard/internal/models"
)

// Notice is one human-readable security notification for a community.
type Notice struct {
	Community    string
	LogChannelID string
	Actor        string
	Score        int
	Punishment   models.Punishment
	Applied      string
	Reason       string
	Timestamp    time.Time
}

// Sink receives notices. Notify must not block the caller.
type Sink interface {
	Notify(n Notice)
}

// Multi fans a notice out to every sink.
type Multi []Sink

func (m Multi) Notify(n Notice) {
	for _, s := range m {
		s.Notify(n)
	}
}

type nop struct{}

func (nop) Notify(Notice) {}

// Nop drops every notice.
func Nop() Sink { return nop{} }
