package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".credentials.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadCredentials(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantErr  bool
		username string
		secret   string
	}{
		{name: "single line", content: "12345 hunter2\n", username: "12345", secret: "hunter2"},
		{name: "extra whitespace", content: "  12345\t hunter2  \nignored line", username: "12345", secret: "hunter2"},
		{name: "missing secret", content: "12345\n", wantErr: true},
		{name: "empty file", content: "", wantErr: true},
		{name: "too many tokens", content: "a b c\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := LoadCredentials(writeFile(t, tt.content))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsError(err), "want *config.Error, got %T", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.username, creds.Username)
			assert.Equal(t, tt.secret, creds.Secret)
		})
	}
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	_, err := LoadCredentials(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, IsError(err))
}

func TestCredentialsStringHidesSecret(t *testing.T) {
	c := Credentials{Username: "12345", Secret: "hunter2"}
	assert.NotContains(t, c.String(), "hunter2")
	assert.Contains(t, c.String(), "12345")
}

func TestSplitList(t *testing.T) {
	got := SplitList("Amor, Joe| Crovitz, Mat ||Wagner, Robert|", "|")
	assert.Equal(t, []string{"Amor, Joe", "Crovitz, Mat", "Wagner, Robert"}, got)
	assert.Nil(t, SplitList("", "|"))
}

func TestEnv(t *testing.T) {
	t.Setenv("TEETIME_TEST_KEY", " value ")
	assert.Equal(t, "value", Env("TEETIME_TEST_KEY", "def"))
	t.Setenv("TEETIME_TEST_KEY", "")
	assert.Equal(t, "def", Env("TEETIME_TEST_KEY", "def"))
}
