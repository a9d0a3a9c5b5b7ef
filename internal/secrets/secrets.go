// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves credentials such as the SMTP password. A value is
// looked up in the process environment first, then in a .env file, then in a
// directory of plain-text files where the filename is the key name and the
// trimmed file contents are the value.
//
// Supported keys: SMTP_PASSWORD (env and .env) / smtp-password (.secrets/).
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
)

// SMTP password key names.
const (
	SMTPPasswordEnv  = "SMTP_PASSWORD"
	SMTPPasswordFile = "smtp-password"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged as warnings but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadDotenv parses a .env file without touching the process environment.
// A missing file yields an empty map.
func LoadDotenv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return values, nil
}

// Store layers the three secret sources.
type Store struct {
	getenv func(string) (string, bool)
	dotenv map[string]string
	files  map[string]string
}

// Open loads dotenvPath and secretsDir. Either may be missing.
func Open(secretsDir, dotenvPath string) (*Store, error) {
	files, err := Load(secretsDir)
	if err != nil {
		return nil, err
	}
	dotenv, err := LoadDotenv(dotenvPath)
	if err != nil {
		return nil, err
	}
	return &Store{getenv: os.LookupEnv, dotenv: dotenv, files: files}, nil
}

// Lookup returns the first non-empty value for envKey in the environment or
// .env file, or for fileKey in the secrets directory.
func (s *Store) Lookup(envKey, fileKey string) (string, bool) {
	if v, ok := s.getenv(envKey); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), true
	}
	if v := strings.TrimSpace(s.dotenv[envKey]); v != "" {
		return v, true
	}
	if v := s.files[fileKey]; v != "" {
		return v, true
	}
	return "", false
}

// SMTPPassword returns the SMTP password, if configured anywhere.
func (s *Store) SMTPPassword() (string, bool) {
	return s.Lookup(SMTPPasswordEnv, SMTPPasswordFile)
}

// Keys lists the key names loaded from the .env file and secrets directory,
// sorted. Values are never exposed.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.dotenv)+len(s.files))
	for k := range s.dotenv {
		keys = append(keys, k)
	}
	for k := range s.files {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}
