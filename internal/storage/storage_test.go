// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-digest/internal/config"
	"github.com/pdiddy/paper-digest/internal/ingest"
	"github.com/pdiddy/paper-digest/internal/selector"
	"github.com/pdiddy/paper-digest/pkg/types"
)

var testNow = time.Date(2026, 10, 17, 9, 30, 5, 0, time.UTC)

func candidates() (selected, pool []*types.Candidate) {
	a := &types.Candidate{
		PaperID:          "arxiv:2610.00001",
		Title:            "Sparse <Attention>",
		Role:             types.RoleTrending,
		Scores:           map[string]float64{types.ScoreTrending: 0.92},
		SelectionReasons: []string{"on the trending feed"},
	}
	b := &types.Candidate{
		PaperID:          "openreview:abc",
		Title:            "Calibrated Reviews",
		Role:             types.RoleQuality,
		Scores:           map[string]float64{types.ScoreQuality: 7.3},
		SelectionReasons: []string{"mean rating: 6.50"},
	}
	c := &types.Candidate{
		PaperID: "arxiv:2610.00003",
		Title:   "Rejected Paper",
		Scores:  map[string]float64{types.ScoreFallback: 0.4},
	}
	return []*types.Candidate{a, b}, []*types.Candidate{c, b, a}
}

func TestWriteArtifacts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")
	selected, _ := candidates()

	payload := Payload{
		WindowStart: "2026-10-10T09:30:05Z",
		WindowEnd:   "2026-10-17T09:30:05Z",
		Counts:      ingest.Counts{Arxiv: 12, OpenReview: 3, HFHits: 7},
		ScoringDebug: selector.ScoringDebug{
			Trending: []selector.DebugEntry{{PaperID: "arxiv:2610.00001", Score: 0.92}},
		},
	}
	paths, err := WriteArtifacts(dir, testNow, selected, "<html></html>", "plain", payload)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "digest_20261017_093005.json"), paths.JSON)
	assert.Equal(t, filepath.Join(dir, "digest_20261017_093005.html"), paths.HTML)
	assert.Equal(t, filepath.Join(dir, "digest_20261017_093005.txt"), paths.Text)

	html, err := os.ReadFile(paths.HTML)
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(html))

	raw, err := os.ReadFile(paths.JSON)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"Sparse <Attention>"`, "html characters are not escaped")
	assert.Contains(t, string(raw), `"hf_hits_count": 7`)

	got, err := ReadPayload(paths.JSON)
	require.NoError(t, err)
	assert.Equal(t, payload.Counts, got.Counts)
	assert.Equal(t, payload.WindowEnd, got.WindowEnd)
	require.Len(t, got.Selected, 2)
	assert.Equal(t, "openreview:abc", got.Selected[1].PaperID)
	require.Len(t, got.ScoringDebug.Trending, 1)
}

func TestReadPayloadConfigSnapshot(t *testing.T) {
	snapshot := config.Masked(config.Default())
	paths, err := WriteArtifacts(t.TempDir(), testNow, nil, "", "", Payload{ConfigSnapshot: snapshot})
	require.NoError(t, err)

	got, err := ReadPayload(paths.JSON)
	require.NoError(t, err)
	assert.Equal(t, snapshot, got.ConfigSnapshot)
	require.NotEmpty(t, got.ConfigSnapshot.Topics.Buckets)
	assert.Equal(t, "llm", got.ConfigSnapshot.Topics.Buckets[0].Name)
}

func TestWriteArtifactsEmptySelection(t *testing.T) {
	paths, err := WriteArtifacts(t.TempDir(), testNow, nil, "", "", Payload{})
	require.NoError(t, err)

	raw, err := os.ReadFile(paths.JSON)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"selected": []`)
}

func TestReadPayloadMissing(t *testing.T) {
	_, err := ReadPayload(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenLedger(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLedgerRecordAndQuery(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()
	selected, pool := candidates()

	id, err := l.RecordRun(ctx, Run{
		StartedAt:   testNow,
		WindowStart: "2026-10-10T09:30:05Z",
		WindowEnd:   "2026-10-17T09:30:05Z",
		Counts:      ingest.Counts{Arxiv: 2, OpenReview: 1, HFHits: 4},
		Artifact:    "runs/digest_20261017_093005.json",
		DryRun:      true,
	}, selected, pool)
	require.NoError(t, err)
	assert.Len(t, id, 36, "uuid assigned")

	runs, err := l.RecentRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	r := runs[0]
	assert.Equal(t, id, r.ID)
	assert.True(t, testNow.Equal(r.StartedAt))
	assert.Equal(t, ingest.Counts{Arxiv: 2, OpenReview: 1, HFHits: 4}, r.Counts)
	assert.True(t, r.DryRun)
	assert.False(t, r.Emailed)
	assert.Equal(t, 2, r.Selected)
	assert.Equal(t, 3, r.PoolSize)

	sel, err := l.Selections(ctx, id)
	require.NoError(t, err)
	require.Len(t, sel, 2)
	assert.Equal(t, "arxiv:2610.00001", sel[0].PaperID)
	assert.Equal(t, types.RoleTrending, sel[0].Role)
	assert.Equal(t, 0.92, sel[0].Scores[types.ScoreTrending])
	assert.Equal(t, []string{"on the trending feed"}, sel[0].Reasons)
	assert.Equal(t, types.RoleQuality, sel[1].Role)

	all, err := l.Papers(ctx, id)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "arxiv:2610.00003", all[2].PaperID)
	assert.False(t, all[2].Selected)
	assert.Empty(t, all[2].Role)
	assert.Nil(t, all[2].Reasons)
}

func TestLedgerRecentRunsOrder(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	var ids []string
	for i := range 3 {
		id, err := l.RecordRun(ctx, Run{StartedAt: testNow.Add(time.Duration(i) * time.Hour)}, nil, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := l.RecentRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Equal(t, 0, runs[0].PoolSize)

	runs, err = l.RecentRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestLedgerMarkEmailed(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	id, err := l.RecordRun(ctx, Run{ID: "fixed-id", StartedAt: testNow}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", id)

	require.NoError(t, l.MarkEmailed(ctx, id))
	runs, err := l.RecentRuns(ctx, 1)
	require.NoError(t, err)
	assert.True(t, runs[0].Emailed)

	assert.Error(t, l.MarkEmailed(ctx, "missing"))
}

func TestLedgerDuplicateRunID(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	_, err := l.RecordRun(ctx, Run{ID: "dup"}, nil, nil)
	require.NoError(t, err)
	_, err = l.RecordRun(ctx, Run{ID: "dup"}, nil, nil)
	assert.Error(t, err)
}

func TestLedgerPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	l, err := OpenLedger(path)
	require.NoError(t, err)
	id, err := l.RecordRun(context.Background(), Run{StartedAt: testNow}, nil, nil)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = OpenLedger(path)
	require.NoError(t, err)
	defer l.Close()
	runs, err := l.RecentRuns(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
}
