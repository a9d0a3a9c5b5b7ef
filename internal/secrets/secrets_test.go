// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		want   map[string]string
		errMsg string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "smtp-password", "  hunter2  \n")
				writeFile(t, dir, "smtp-user", "digest-bot")
				writeFile(t, dir, "openalex-email", "user@example.com\n")
				return dir
			},
			want: map[string]string{
				"smtp-password":  "hunter2",
				"smtp-user":      "digest-bot",
				"openalex-email": "user@example.com",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "smtp-password", "valid-password")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				"smtp-password": "valid-password",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, "smtp-password", "pw_real")
				return dir
			},
			want: map[string]string{
				"smtp-password": "pw_real",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "smtp-password", "pw_123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"smtp-password": "pw_123",
			},
		},
		{
			name: "returns empty map for empty directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	// Create a file then remove read permission.
	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir)
	require.NoError(t, err)
	// The good file should still be returned; the bad file is skipped with a warning.
	assert.Equal(t, "value123", got["good-key"])
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "SMTP_PASSWORD=from-dotenv\n# comment\nOTHER=\"quoted value\"\n")

	got, err := LoadDotenv(filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"SMTP_PASSWORD": "from-dotenv", "OTHER": "quoted value"}, got)

	got, err = LoadDotenv(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreLookupPriority(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		dotenv map[string]string
		files  map[string]string
		want   string
		found  bool
	}{
		{
			name:   "environment wins",
			env:    map[string]string{SMTPPasswordEnv: "env"},
			dotenv: map[string]string{SMTPPasswordEnv: "dotenv"},
			files:  map[string]string{SMTPPasswordFile: "file"},
			want:   "env", found: true,
		},
		{
			name:   "dotenv before secrets dir",
			dotenv: map[string]string{SMTPPasswordEnv: "dotenv"},
			files:  map[string]string{SMTPPasswordFile: "file"},
			want:   "dotenv", found: true,
		},
		{
			name:  "secrets dir last",
			env:   map[string]string{SMTPPasswordEnv: "  "},
			files: map[string]string{SMTPPasswordFile: "file"},
			want:  "file", found: true,
		},
		{
			name: "not configured",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Store{
				getenv: func(k string) (string, bool) { v, ok := tt.env[k]; return v, ok },
				dotenv: tt.dotenv,
				files:  tt.files,
			}
			got, ok := s.SMTPPassword()
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	secretsDir := filepath.Join(dir, ".secrets")
	require.NoError(t, os.Mkdir(secretsDir, 0o700))
	writeFile(t, secretsDir, SMTPPasswordFile, "file-pw")
	writeFile(t, dir, ".env", "SMTP_USER=bot\n")

	s, err := Open(secretsDir, filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, []string{"SMTP_USER", SMTPPasswordFile}, s.Keys())
}
