package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	baseURLKey        = "api.base_url"
	connectTimeoutKey = "api.connect_timeout"
	readTimeoutKey    = "api.read_timeout"
	writeTimeoutKey   = "api.write_timeout"
	publicPathsKey    = "api.public_paths"
)

type APIConfig interface {
	GetBaseURL() string
	GetConnectTimeout() time.Duration
	GetReadTimeout() time.Duration
	GetWriteTimeout() time.Duration
	GetPublicPaths() []string
}

type API struct {
	v *viper.Viper
}

var _ APIConfig = API{}

func (a API) GetBaseURL() string {
	return strings.TrimRight(a.v.GetString(baseURLKey), "/")
}

// Timeouts are configured in whole seconds.
func (a API) GetConnectTimeout() time.Duration {
	return time.Duration(a.v.GetInt(connectTimeoutKey)) * time.Second
}

func (a API) GetReadTimeout() time.Duration {
	return time.Duration(a.v.GetInt(readTimeoutKey)) * time.Second
}

func (a API) GetWriteTimeout() time.Duration {
	return time.Duration(a.v.GetInt(writeTimeoutKey)) * time.Second
}

// GetPublicPaths returns extra public path fragments on top of the built in
// auth endpoints.
func (a API) GetPublicPaths() []string {
	return a.v.GetStringSlice(publicPathsKey)
}
