package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCredentials(t *testing.T, dir, address, password string) string {
	t.Helper()
	path := filepath.Join(dir, credentialsFileName)
	content := "address = \"" + address + "\"\npassword = \"" + password + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadCredentials(t *testing.T) {
	path := writeCredentials(t, t.TempDir(), "user@example.com", "hunter2")

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", creds.Address)
	assert.Equal(t, "hunter2", creds.Password)
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoadCredentialsIncomplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), credentialsFileName)
	require.NoError(t, os.WriteFile(path, []byte("address = \"user@example.com\"\n"), 0o600))

	_, err := LoadCredentials(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "address and password")
}

func TestFindCredentialsPrefersEnvironment(t *testing.T) {
	t.Setenv(envAddress, "env@example.com")
	t.Setenv(envPassword, "secret")

	creds, err := FindCredentials("does-not-exist.toml")
	require.NoError(t, err)
	assert.Equal(t, "env@example.com", creds.Address)
	assert.Equal(t, "secret", creds.Password)
}

func TestFindCredentialsFallsBackToFile(t *testing.T) {
	t.Setenv(envAddress, "")
	t.Setenv(envPassword, "")
	path := writeCredentials(t, t.TempDir(), "file@example.com", "pw")

	creds, err := FindCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "file@example.com", creds.Address)
}

func TestFindCredentialsNothingFound(t *testing.T) {
	t.Setenv(envAddress, "")
	t.Setenv(envPassword, "")

	_, err := FindCredentials(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := expandHome(filepath.Join("~", ".config", "ymd", credentialsFileName))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "ymd", credentialsFileName), expanded)

	plain, err := expandHome("credentials.toml")
	require.NoError(t, err)
	assert.Equal(t, "credentials.toml", plain)
}
