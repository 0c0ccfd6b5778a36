// Package config loads the account credentials and runtime defaults of
// the CLI. Credentials live in a small TOML file searched at well-known
// locations; environment variables take precedence so the tool also runs
// without any file at all.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

const (
	// DefaultTargetFolder is the backend folder used when no other folder
	// is requested.
	DefaultTargetFolder = "ymd"

	// DefaultConnections is the number of pooled sessions dialed when no
	// other count is requested.
	DefaultConnections = 1

	credentialsFileName = "credentials.toml"

	envAddress  = "YMD_ADDRESS"
	envPassword = "YMD_PASSWORD"
)

// Credentials holds the account the drive logs in with.
type Credentials struct {
	Address  string `toml:"address"`
	Password string `toml:"password"`
}

// DefaultCredentialsLocations returns the candidate credential file paths
// in search order: the working directory first, then the user config
// directory.
func DefaultCredentialsLocations() []string {
	return []string{
		credentialsFileName,
		filepath.Join("~", ".config", "ymd", credentialsFileName),
	}
}

// LoadCredentials parses the TOML credentials file at the given path. A
// leading "~" in the path expands to the user home directory.
func LoadCredentials(path string) (Credentials, error) {
	var creds Credentials

	expanded, err := expandHome(path)
	if err != nil {
		return creds, err
	}
	if _, err := toml.DecodeFile(expanded, &creds); err != nil {
		return creds, errors.Wrapf(err, "could not read credentials file %q", path)
	}
	if creds.Address == "" || creds.Password == "" {
		return creds, errors.Errorf("credentials file %q must set both address and password", path)
	}
	return creds, nil
}

// FindCredentials resolves the account to use. The environment variables
// YMD_ADDRESS and YMD_PASSWORD win when both are set. Otherwise the
// explicit path is tried, then the remaining default locations; the first
// file that parses wins.
func FindCredentials(explicit string) (Credentials, error) {
	if address, password := os.Getenv(envAddress), os.Getenv(envPassword); address != "" && password != "" {
		return Credentials{Address: address, Password: password}, nil
	}

	candidates := []string{explicit}
	for _, location := range DefaultCredentialsLocations() {
		if location != explicit {
			candidates = append(candidates, location)
		}
	}

	var firstErr error
	for _, candidate := range candidates {
		creds, err := LoadCredentials(candidate)
		if err == nil {
			return creds, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return Credentials{}, errors.Wrapf(firstErr, "no usable credentials among %s, and %s/%s are not set",
		strings.Join(candidates, ", "), envAddress, envPassword)
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~"+string(os.PathSeparator)) {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "could not resolve the user home directory")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
