// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package storage writes per-run digest artifacts and keeps the SQLite run
// ledger.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/paper-digest/internal/ingest"
	"github.com/pdiddy/paper-digest/internal/selector"
	"github.com/pdiddy/paper-digest/pkg/types"
)

// artifactLayout is the UTC timestamp in artifact file names.
const artifactLayout = "20060102_150405"

// Payload is the JSON artifact body.
type Payload struct {
	ConfigSnapshot types.DigestConfig    `json:"config_snapshot"`
	WindowStart    string                `json:"window_start"`
	WindowEnd      string                `json:"window_end"`
	Counts         ingest.Counts         `json:"counts"`
	ScoringDebug   selector.ScoringDebug `json:"scoring_debug"`
	Selected       []*types.Candidate    `json:"selected"`
}

// Artifacts holds the paths written for one run.
type Artifacts struct {
	JSON string `json:"json"`
	HTML string `json:"html"`
	Text string `json:"text"`
}

// WriteArtifacts writes digest_<UTC yyyymmdd_hhmmss>.{json,html,txt} under
// runsDir, creating it when needed. The payload's Selected is replaced by
// selected.
func WriteArtifacts(runsDir string, now time.Time, selected []*types.Candidate, html, text string, payload Payload) (Artifacts, error) {
	if err := os.MkdirAll(runsDir, 0o755); err != nil {
		return Artifacts{}, fmt.Errorf("creating runs directory: %w", err)
	}

	base := filepath.Join(runsDir, "digest_"+now.UTC().Format(artifactLayout))
	out := Artifacts{JSON: base + ".json", HTML: base + ".html", Text: base + ".txt"}

	payload.Selected = selected
	if payload.Selected == nil {
		payload.Selected = []*types.Candidate{}
	}
	data, err := encodePayload(payload)
	if err != nil {
		return Artifacts{}, err
	}

	for path, body := range map[string][]byte{
		out.JSON: data,
		out.HTML: []byte(html),
		out.Text: []byte(text),
	} {
		if err := os.WriteFile(path, body, 0o644); err != nil {
			return Artifacts{}, fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return out, nil
}

// ReadPayload loads a JSON artifact written by WriteArtifacts.
func ReadPayload(path string) (Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, err
	}
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return p, nil
}

func encodePayload(p Payload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("marshaling JSON: %w", err)
	}
	return buf.Bytes(), nil
}
