package models

// Punishment is the outcome of escalation, ordered by severity.
type Punishment uint8

const (
	PunishmentNone Punishment = iota
	PunishmentWarn
	PunishmentTimeout
	PunishmentRoleStrip
	PunishmentKick
	PunishmentBan
	PunishmentLockdown
	// PunishmentExempt is returned for trusted actors and never escalates.
	PunishmentExempt
)

func (p Punishment) String() string {
	switch p {
	case PunishmentNone:
		return "NONE"
	case PunishmentWarn:
		return "WARN"
	case PunishmentTimeout:
		return "TIMEOUT"
	case PunishmentRoleStrip:
		return "ROLE_STRIP"
	case PunishmentKick:
		return "KICK"
	case PunishmentBan:
		return "BAN"
	case PunishmentLockdown:
		return "LOCKDOWN"
	case PunishmentExempt:
		return "EXEMPT"
	default:
		return "UNKNOWN"
	}
}

func ParsePunishment(s string) Punishment {
	for p := PunishmentNone; p <= PunishmentExempt; p++ {
		if p.String() == s {
			return p
		}
	}
	return PunishmentNone
}

// Severer returns whichever punishment is more severe. Exempt always wins.
func (p Punishment) Severer(other Punishment) Punishment {
	if p == PunishmentExempt || other == PunishmentExempt {
		return PunishmentExempt
	}
	if other > p {
		return other
	}
	return p
}

// Color is the embed color used for log channel notices.
func (p Punishment) Color() int {
	switch p {
	case PunishmentLockdown:
		return 0xff0000
	case PunishmentBan:
		return 0xff3300
	case PunishmentKick:
		return 0xff6600
	case PunishmentRoleStrip:
		return 0xff9900
	case PunishmentTimeout:
		return 0xffcc00
	case PunishmentWarn:
		return 0xffff00
	default:
		return 0x2f3136
	}
}
