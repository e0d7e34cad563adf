package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	portKey               = "server.port"
	tokenSecretKey        = "server.token_secret"
	accessTokenExpiryKey  = "server.access_token_expiry"
	idTokenExpiryKey      = "server.id_token_expiry"
	refreshTokenExpiryKey = "server.refresh_token_expiry"
)

// ServerConfig configures the development API server.
type ServerConfig interface {
	GetPort() string
	GetTokenSecret() string
	GetAccessTokenExpiry() time.Duration
	GetIDTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
}

type Server struct {
	v *viper.Viper
}

var _ ServerConfig = Server{}

func (s Server) GetPort() string {
	port := s.v.GetString(portKey)
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (s Server) GetTokenSecret() string {
	return s.v.GetString(tokenSecretKey)
}

func (s Server) GetAccessTokenExpiry() time.Duration {
	return s.v.GetDuration(accessTokenExpiryKey)
}

func (s Server) GetIDTokenExpiry() time.Duration {
	return s.v.GetDuration(idTokenExpiryKey)
}

func (s Server) GetRefreshTokenExpiry() time.Duration {
	return s.v.GetDuration(refreshTokenExpiryKey)
}
