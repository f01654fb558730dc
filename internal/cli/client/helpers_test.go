package client

import (
	"path/filepath"
	"testing"
)

const testAPIKey = "skz_a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2c3d4e5f6a1b2"

// useTempCredentials points the credentials store at a fresh directory and
// clears the credential environment variables. It returns the file path.
func useTempCredentials(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	orig := credentialsDirFunc
	credentialsDirFunc = func() (string, error) { return dir, nil }
	t.Cleanup(func() { credentialsDirFunc = orig })

	t.Setenv(envAPIKey, "")
	t.Setenv(envAPIURL, "")
	return filepath.Join(dir, credentialsFileName)
}
