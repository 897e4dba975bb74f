package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestFromViperRequiresEncryptionKey(t *testing.T) {
	_, err := fromViper(newTestViper())
	assert.ErrorIs(t, err, ErrMissingEncryptionKey)
}

func TestFromViperDefaults(t *testing.T) {
	v := newTestViper()
	v.Set("PHONE_ENCRYPTION_KEY", "k")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, StoreDriverPostgres, cfg.Database.Driver)
	assert.Equal(t, GuardBackendLocal, cfg.Guard.Backend)
	assert.Equal(t, 5*time.Second, cfg.Guard.LockTTL)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 4, cfg.Migration.Workers)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := newTestViper()
	v.Set("PHONE_ENCRYPTION_KEY", "k")
	v.Set("LEGACY_PHONE_PASSPHRASE", "old")
	v.Set("STORE_DRIVER", "MEMORY")
	v.Set("GUARD_BACKEND", "Redis")
	v.Set("GUARD_LOCK_WAIT", "750ms")
	v.Set("JWT_EXPIRATION", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.Database.Driver)
	assert.Equal(t, GuardBackendRedis, cfg.Guard.Backend)
	assert.Equal(t, 750*time.Millisecond, cfg.Guard.LockWait)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "old", cfg.Phone.LegacyPassphrase)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}
