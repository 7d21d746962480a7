package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:5432", cfg.Listen.Address)
	assert.Equal(t, "cleartext", cfg.Auth.Method)
	assert.Equal(t, int32(1), cfg.Session.MinConnID)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pgcored.yaml")
	contents := []byte("listen:\n  address: \"127.0.0.1:6543\"\nauth:\n  method: scram-sha-256\n  credentials:\n    alice: s3cret\n")
	require.NoError(t, os.WriteFile(path, contents, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6543", cfg.Listen.Address)
	assert.Equal(t, "scram-sha-256", cfg.Auth.Method)
	assert.Equal(t, "s3cret", cfg.Auth.Credentials["alice"])
}

func TestValidateRejectsUnknownAuthMethod(t *testing.T) {
	cfg := Config{
		Listen:  ListenConfig{Address: "0.0.0.0:5432"},
		Auth:    AuthConfig{Method: "bogus"},
		Session: SessionConfig{MinConnID: 1, MaxConnID: 10},
	}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsGSSAPIWithoutKeytab(t *testing.T) {
	cfg := Config{
		Listen:  ListenConfig{Address: "0.0.0.0:5432"},
		Auth:    AuthConfig{Method: "gssapi"},
		Session: SessionConfig{MinConnID: 1, MaxConnID: 10},
	}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptySessionRange(t *testing.T) {
	cfg := Config{
		Listen:  ListenConfig{Address: "0.0.0.0:5432"},
		Auth:    AuthConfig{Method: "cleartext"},
		Session: SessionConfig{MinConnID: 5, MaxConnID: 5},
	}
	require.Error(t, cfg.Validate())
}
