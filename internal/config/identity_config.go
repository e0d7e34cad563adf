package config

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	issuerURLKey = "identity.issuer_url"
	clientIDKey  = "identity.client_id"
)

type IdentityConfig interface {
	GetIssuerURL() string
	GetClientID() string
}

type Identity struct {
	v *viper.Viper
}

var _ IdentityConfig = Identity{}

// GetIssuerURL defaults to the API base URL, which is where the development
// server publishes its discovery document.
func (i Identity) GetIssuerURL() string {
	if issuer := i.v.GetString(issuerURLKey); issuer != "" {
		return strings.TrimRight(issuer, "/")
	}
	return strings.TrimRight(i.v.GetString(baseURLKey), "/")
}

func (i Identity) GetClientID() string {
	return i.v.GetString(clientIDKey)
}
