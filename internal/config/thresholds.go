package config

import (
	"errors"
	"fmt"
)

var ErrInvalidLadder = errors.New("threshold ladder must be strictly increasing")

// Ladder holds the escalation thresholds. Scores are compared inclusively,
// most severe step first.
type Ladder struct {
	Warn      int `json:"warn" yaml:"warn"`
	RoleStrip int `json:"role_strip" yaml:"role_strip"`
	Kick      int `json:"kick" yaml:"kick"`
	Ban       int `json:"ban" yaml:"ban"`
	Lockdown  int `json:"lockdown" yaml:"lockdown"`
}

var DefaultLadder = Ladder{
	Warn:      5,
	RoleStrip: 10,
	Kick:      15,
	Ban:       20,
	Lockdown:  30,
}

func (l Ladder) Validate() error {
	steps := []int{l.Warn, l.RoleStrip, l.Kick, l.Ban, l.Lockdown}
	if steps[0] <= 0 {
		return fmt.Errorf("%w: warn threshold %d is not positive", ErrInvalidLadder, steps[0])
	}
	for i := 1; i < len(steps); i++ {
		if steps[i] <= steps[i-1] {
			return fmt.Errorf("%w: %v", ErrInvalidLadder, steps)
		}
	}
	return nil
}

// BurstTier scales a window's sum once the window holds at least MinCount
// entries.
type BurstTier struct {
	MinCount int     `json:"min_count" yaml:"min_count"`
	Factor   float64 `json:"factor" yaml:"factor"`
}

var DefaultBurstTiers = []BurstTier{
	{MinCount: 3, Factor: 1.5},
	{MinCount: 5, Factor: 2.0},
}
