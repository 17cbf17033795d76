package models

import "time"

// EventType names a scored platform event. Values double as config keys.
type EventType string

const (
	EventTypeUnknown       EventType = "UNKNOWN"
	EventTypeChannelCreate EventType = "CHANNEL_CREATE"
	EventTypeChannelDelete EventType = "CHANNEL_DELETE"
	EventTypeRoleCreate    EventType = "ROLE_CREATE"
	EventTypeRoleDelete    EventType = "ROLE_DELETE"
	EventTypeMemberBan     EventType = "MEMBER_BAN"
	EventTypeMemberKick    EventType = "MEMBER_KICK"
	EventTypeWebhookCreate EventType = "WEBHOOK_CREATE"
	EventTypeMemberJoin    EventType = "MEMBER_JOIN"
	EventTypeMessageCreate EventType = "MESSAGE_CREATE"
)

// Event is one inbound platform event. Actor is empty when the gateway does
// not say who did it and the audit trail has to be consulted.
type Event struct {
	Type      EventType
	Community string
	Actor     string
	Channel   string
	Role      string
	Target    string
	// AccountCreated is only set for joins.
	AccountCreated time.Time
	Timestamp      time.Time
}

func (e *Event) IsDestructive() bool {
	switch e.Type {
	case EventTypeChannelDelete, EventTypeRoleDelete, EventTypeMemberBan, EventTypeMemberKick:
		return true
	}
	return false
}

// IsAdministrative reports whether the event is scored by the threat engine.
func (e *Event) IsAdministrative() bool {
	switch e.Type {
	case EventTypeMemberJoin, EventTypeMessageCreate:
		return false
	}
	return true
}

func (e *Event) NeedsAttribution() bool {
	return e.Actor == "" && e.IsAdministrative()
}
