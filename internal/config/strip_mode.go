package config

// RoleStripMode selects which roles ROLE_STRIP removes.
type RoleStripMode string

const (
	// StripElevated removes roles granting administrative capabilities.
	StripElevated RoleStripMode = "elevated"
	// StripEditable removes every role below the bot's highest role.
	StripEditable RoleStripMode = "editable"
)

func (m RoleStripMode) String() string {
	return string(m)
}

func ParseRoleStripMode(s string) RoleStripMode {
	switch RoleStripMode(s) {
	case StripEditable:
		return StripEditable
	default:
		return StripElevated
	}
}
