package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

const (
	storageBackendKey = "storage.backend"
	storageFileKey    = "storage.file"
	identityFileKey   = "storage.identity_file"
	redisAddrKey      = "storage.redis_addr"
	redisPasswordKey  = "storage.redis_password"
	redisDBKey        = "storage.redis_db"
	redisPrefixKey    = "storage.redis_prefix"
)

type StorageConfig interface {
	GetStorageBackend() string
	GetPreferencesFile() string
	GetIdentityFile() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
}

type Storage struct {
	v *viper.Viper
}

var _ StorageConfig = Storage{}

func (s Storage) GetStorageBackend() string {
	return s.v.GetString(storageBackendKey)
}

// GetPreferencesFile resolves the preference file relative to the data folder.
func (s Storage) GetPreferencesFile() string {
	return s.inDataFolder(s.v.GetString(storageFileKey))
}

func (s Storage) GetIdentityFile() string {
	return s.inDataFolder(s.v.GetString(identityFileKey))
}

func (s Storage) GetRedisAddr() string {
	return s.v.GetString(redisAddrKey)
}

func (s Storage) GetRedisPassword() string {
	return s.v.GetString(redisPasswordKey)
}

func (s Storage) GetRedisDB() int {
	return s.v.GetInt(redisDBKey)
}

func (s Storage) GetRedisKeyPrefix() string {
	return s.v.GetString(redisPrefixKey)
}

func (s Storage) inDataFolder(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.v.GetString(dataFolderKey), name)
}
