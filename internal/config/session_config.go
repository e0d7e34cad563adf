package config

import (
	"time"

	"github.com/spf13/viper"
)

const gracePeriodKey = "session.grace_period"

type SessionConfig interface {
	GetStartupGracePeriod() time.Duration
}

type Session struct {
	v *viper.Viper
}

var _ SessionConfig = Session{}

// GetStartupGracePeriod bounds how long the startup check waits for the
// identity provider before reading its current user.
func (s Session) GetStartupGracePeriod() time.Duration {
	return s.v.GetDuration(gracePeriodKey)
}
