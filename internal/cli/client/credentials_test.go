package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialsPath(t *testing.T) {
	path, err := CredentialsPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.Equal(t, "skimzy", filepath.Base(filepath.Dir(path)))
	assert.Equal(t, credentialsFileName, filepath.Base(path))
}

func TestLoadCredentials_NothingSaved(t *testing.T) {
	useTempCredentials(t)

	creds, err := LoadCredentials()
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestLoadCredentials_Corrupt(t *testing.T) {
	path := useTempCredentials(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := LoadCredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse credentials file")

	_, err = ResolveCredentials("", "")
	assert.Error(t, err, "a corrupt file is reported, not ignored")
}

func TestSaveCredentials_RoundTrip(t *testing.T) {
	path := useTempCredentials(t)
	before := time.Now().UTC().Add(-time.Second)

	require.NoError(t, SaveCredentials(Credentials{
		APIKey: testAPIKey,
		APIURL: "https://skimzy.example.com",
		Email:  "ada@example.com",
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, testAPIKey, raw["api_key"])

	got, err := LoadCredentials()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, testAPIKey, got.APIKey)
	assert.Equal(t, "https://skimzy.example.com", got.APIURL)
	assert.Equal(t, "ada@example.com", got.Email)
	assert.True(t, got.SavedAt.After(before))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestSaveCredentials_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not enforced on windows")
	}
	path := useTempCredentials(t)

	require.NoError(t, SaveCredentials(Credentials{APIKey: testAPIKey, APIURL: defaultAPIURL}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveCredentials_RequiresKeyAndURL(t *testing.T) {
	useTempCredentials(t)
	assert.Error(t, SaveCredentials(Credentials{APIURL: defaultAPIURL}))
	assert.Error(t, SaveCredentials(Credentials{APIKey: testAPIKey}))
}

func TestDeleteCredentials(t *testing.T) {
	path := useTempCredentials(t)
	require.NoError(t, SaveCredentials(Credentials{APIKey: testAPIKey, APIURL: defaultAPIURL}))

	require.NoError(t, DeleteCredentials())
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, DeleteCredentials(), "deleting twice")
}

func TestIsValidAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"valid lowercase", testAPIKey, true},
		{"valid uppercase hex", "skz_" + strings.Repeat("AB", 32), true},
		{"wrong prefix", "key_" + strings.Repeat("ab", 32), false},
		{"too short", "skz_abc", false},
		{"too long", testAPIKey + "0", false},
		{"non hex", "skz_" + strings.Repeat("zz", 32), false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidAPIKey(tt.key))
		})
	}
}

func TestResolveCredentials(t *testing.T) {
	saved := Credentials{APIKey: testAPIKey, APIURL: "http://saved"}

	tests := []struct {
		name       string
		save       bool
		envKey     string
		envURL     string
		flagKey    string
		flagURL    string
		wantSource CredentialSource
		wantKey    string
		wantURL    string
	}{
		{
			name: "flags win", save: true, envKey: "env-key", envURL: "http://env",
			flagKey: "flag-key", flagURL: "http://flag",
			wantSource: SourceFlag, wantKey: "flag-key", wantURL: "http://flag",
		},
		{
			name: "env over file", save: true, envKey: "env-key", envURL: "http://env",
			wantSource: SourceEnv, wantKey: "env-key", wantURL: "http://env",
		},
		{
			name: "env key with saved url", save: true, envKey: "env-key",
			wantSource: SourceEnv, wantKey: "env-key", wantURL: "http://saved",
		},
		{
			name: "flag url with saved key", save: true, flagURL: "http://flag",
			wantSource: SourceFile, wantKey: testAPIKey, wantURL: "http://flag",
		},
		{
			name:       "nothing configured",
			wantSource: SourceNone, wantURL: defaultAPIURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useTempCredentials(t)
			if tt.save {
				require.NoError(t, SaveCredentials(saved))
			}
			t.Setenv(envAPIKey, tt.envKey)
			t.Setenv(envAPIURL, tt.envURL)

			got, err := ResolveCredentials(tt.flagKey, tt.flagURL)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, got.Source)
			assert.Equal(t, tt.wantKey, got.APIKey)
			assert.Equal(t, tt.wantURL, got.APIURL)
		})
	}
}
