package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	apiKeyPrefix        = "skz_"
	credentialsFileName = "credentials.json"
)

var apiKeyHexPattern = regexp.MustCompile("^[0-9a-fA-F]{64}$")

// Credentials is what `skimzy auth` persists between runs.
type Credentials struct {
	APIKey  string    `json:"api_key"`
	APIURL  string    `json:"api_url"`
	Email   string    `json:"email,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

var credentialsDirFunc = func() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "skimzy"), nil
}

func CredentialsPath() (string, error) {
	dir, err := credentialsDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, credentialsFileName), nil
}

// LoadCredentials returns nil without error when nothing is saved.
func LoadCredentials() (*Credentials, error) {
	path, err := CredentialsPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}
	return &creds, nil
}

// SaveCredentials replaces the credentials file atomically. The file is
// readable by the owner only.
func SaveCredentials(creds Credentials) error {
	if creds.APIKey == "" || creds.APIURL == "" {
		return errors.New("api key and url are required")
	}
	if creds.SavedAt.IsZero() {
		creds.SavedAt = time.Now().UTC()
	}

	dir, err := credentialsDirFunc()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, credentialsFileName)); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// DeleteCredentials is a no-op when nothing is saved.
func DeleteCredentials() error {
	path, err := CredentialsPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// IsValidAPIKey checks the skz_ + 64 hex chars format.
func IsValidAPIKey(key string) bool {
	hexPart, ok := strings.CutPrefix(key, apiKeyPrefix)
	return ok && apiKeyHexPattern.MatchString(hexPart)
}

type CredentialSource string

const (
	SourceFlag CredentialSource = "flag"
	SourceEnv  CredentialSource = "env"
	SourceFile CredentialSource = "file"
	SourceNone CredentialSource = "none"
)

// Resolved holds the credentials a command will use. Source names where the
// API key came from.
type Resolved struct {
	Source CredentialSource
	APIKey string
	APIURL string
}

// ResolveCredentials picks the API key and the URL independently, each from
// the first of flag, environment, then saved credentials that sets it. The
// URL falls back to the local default.
func ResolveCredentials(flagKey, flagURL string) (Resolved, error) {
	saved, err := LoadCredentials()
	if err != nil {
		return Resolved{}, err
	}
	if saved == nil {
		saved = &Credentials{}
	}

	res := Resolved{Source: SourceNone}
	switch {
	case flagKey != "":
		res.Source, res.APIKey = SourceFlag, flagKey
	case os.Getenv(envAPIKey) != "":
		res.Source, res.APIKey = SourceEnv, os.Getenv(envAPIKey)
	case saved.APIKey != "":
		res.Source, res.APIKey = SourceFile, saved.APIKey
	}

	res.APIURL = firstNonEmpty(flagURL, os.Getenv(envAPIURL), saved.APIURL, defaultAPIURL)
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
