package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":5000", cfg.HTTPAddr)
	require.Equal(t, 24*time.Hour, cfg.JWTTTL)
	require.Equal(t, 10, cfg.BcryptCost)
	require.Equal(t, StorageLocal, cfg.StorageBackend)
	require.Equal(t, int64(10<<20), cfg.UploadMaxBytes)
	require.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	require.Empty(t, cfg.TrustedProxies)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("JWT_TTL", "90m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("AUDIT_WRITE_TIMEOUT", "2s")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 90*time.Minute, cfg.JWTTTL)
	require.Equal(t, 2*time.Second, cfg.AuditWriteTimeout)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	require.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.TrustedProxies)
}

func TestLoadRejectsBadTrustedProxy(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,proxy.internal")
	_, err := Load()
	require.ErrorContains(t, err, "TRUSTED_PROXIES")
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	require.Error(t, err)
}

func TestValidateStorage(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	cfg, err := Load()
	require.NoError(t, err)

	cfg.StorageBackend = StorageS3
	require.Error(t, cfg.Validate())

	cfg.S3Bucket = "clinic"
	cfg.S3Endpoint = "https://s3.example"
	require.NoError(t, cfg.Validate())

	cfg.StorageBackend = "ftp"
	require.Error(t, cfg.Validate())
}
