package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const envPrefix = "AILAB"

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
	IdentityConfig
	SessionConfig
	ServerConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDataFolder() string
}

type mainConfig struct {
	EnvVars
	API
	Storage
	Identity
	Session
	Server
}

// New loads configuration from AILAB_* environment variables and, when present,
// an ailab.yaml file. configFile overrides the search path.
func New(configFile string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("ailab")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.ailab")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("[config New] read config: %w", err)
		}
	}
	return FromViper(v), nil
}

// FromViper wraps an already populated viper instance. Missing keys fall back
// to the package defaults.
func FromViper(v *viper.Viper) Config {
	setDefaults(v)
	return mainConfig{
		EnvVars:  EnvVars{v: v},
		API:      API{v: v},
		Storage:  Storage{v: v},
		Identity: Identity{v: v},
		Session:  Session{v: v},
		Server:   Server{v: v},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(appNameKey, "AI Lab")
	v.SetDefault(envKey, "DEV")
	v.SetDefault(logLevelKey, "info")
	v.SetDefault(dataFolderKey, "./data")

	v.SetDefault(baseURLKey, "http://localhost:8080")
	v.SetDefault(connectTimeoutKey, 30)
	v.SetDefault(readTimeoutKey, 30)
	v.SetDefault(writeTimeoutKey, 30)
	v.SetDefault(publicPathsKey, []string{})

	v.SetDefault(storageBackendKey, BackendFile)
	v.SetDefault(storageFileKey, "preferences.yaml")
	v.SetDefault(identityFileKey, "identity.yaml")
	v.SetDefault(redisAddrKey, "localhost:6379")
	v.SetDefault(redisPasswordKey, "")
	v.SetDefault(redisDBKey, 0)
	v.SetDefault(redisPrefixKey, "ailab:prefs")

	v.SetDefault(issuerURLKey, "")
	v.SetDefault(clientIDKey, "ailab-mobile")

	v.SetDefault(gracePeriodKey, "500ms")

	v.SetDefault(portKey, "8080")
	v.SetDefault(tokenSecretKey, "")
	v.SetDefault(accessTokenExpiryKey, "15m")
	v.SetDefault(idTokenExpiryKey, "1h")
	v.SetDefault(refreshTokenExpiryKey, "168h")
}
