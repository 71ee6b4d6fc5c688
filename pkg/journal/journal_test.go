package journal_test

import (
	"path/filepath"
	"testing"

	"github.com/blackroad/gateway/pkg/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_FirstEntryChainsFromGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := journal.Open(path)
	require.NoError(t, err)

	hash, err := j.Record(journal.Entry{"type": "agent_call", "agent": "planner", "status": "ok"})
	require.NoError(t, err)
	assert.Len(t, hash, 16)

	recent, err := j.Recent(1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, journal.Genesis, recent[0].Prev)
	assert.Equal(t, hash, recent[0].Hash)
}

func TestRecord_ChainLinksSequentialHashes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := journal.Open(path)
	require.NoError(t, err)

	h1, err := j.Record(journal.Entry{"type": "agent_call", "agent": "planner"})
	require.NoError(t, err)
	h2, err := j.Record(journal.Entry{"type": "agent_call", "agent": "cipher"})
	require.NoError(t, err)

	recent, err := j.Recent(0)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	// Recent returns newest first.
	assert.Equal(t, h2, recent[0].Hash)
	assert.Equal(t, h1, recent[0].Prev)
	assert.Equal(t, h1, recent[1].Hash)
	assert.Equal(t, journal.Genesis, recent[1].Prev)
}

func TestRecord_IndependentJournalsBothChainFromGenesis(t *testing.T) {
	path1 := filepath.Join(t.TempDir(), "a.jsonl")
	path2 := filepath.Join(t.TempDir(), "b.jsonl")

	j1, err := journal.Open(path1)
	require.NoError(t, err)
	j2, err := journal.Open(path2)
	require.NoError(t, err)

	entry := journal.Entry{"type": "verify", "agent": "prism", "verdict": "false"}
	_, err = j1.Record(entry)
	require.NoError(t, err)
	_, err = j2.Record(entry)
	require.NoError(t, err)

	// Both journals start at Genesis and record the same entry. The hash
	// also covers the record timestamp, so two independently-clocked
	// Record calls are not guaranteed to match exactly — the chain
	// structure (prev) is what must agree here; the pure hash function's
	// determinism is covered directly in journal_internal_test.go.
	r1, err := j1.Recent(1)
	require.NoError(t, err)
	r2, err := j2.Recent(1)
	require.NoError(t, err)
	assert.Equal(t, journal.Genesis, r1[0].Prev)
	assert.Equal(t, r1[0].Prev, r2[0].Prev)
}

func TestOpen_RecoversLastHashAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j1, err := journal.Open(path)
	require.NoError(t, err)

	_, err = j1.Record(journal.Entry{"type": "agent_call", "agent": "planner"})
	require.NoError(t, err)
	h2, err := j1.Record(journal.Entry{"type": "agent_call", "agent": "planner"})
	require.NoError(t, err)

	j2, err := journal.Open(path)
	require.NoError(t, err)
	h3, err := j2.Record(journal.Entry{"type": "agent_call", "agent": "planner"})
	require.NoError(t, err)

	recent, err := j2.Recent(1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, h2, recent[0].Prev)
	assert.Equal(t, h3, recent[0].Hash)
}

func TestStats_CountsEntriesAndSessions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := journal.Open(path)
	require.NoError(t, err)

	_, err = j.Record(journal.Entry{"type": "agent_call", "agent": "planner"})
	require.NoError(t, err)
	_, err = j.Record(journal.Entry{"type": "agent_call", "agent": "planner"})
	require.NoError(t, err)
	_, err = j.Record(journal.Entry{"type": "verify", "agent": "prism"})
	require.NoError(t, err)

	stats := j.Stats(4)
	assert.Equal(t, 3, stats.EntryCount)
	assert.Equal(t, 4, stats.ContextKeyCount)
	assert.Equal(t, 2, stats.SessionCounts["planner"])
	assert.Equal(t, 0, stats.SessionCounts["prism"], "verify entries do not count as sessions")
}

func TestRecent_LimitZeroReturnsAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	j, err := journal.Open(path)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := j.Record(journal.Entry{"type": "agent_call", "agent": "planner"})
		require.NoError(t, err)
	}

	recent, err := j.Recent(0)
	require.NoError(t, err)
	assert.Len(t, recent, 5)
}

func TestOpen_MissingFileStartsAtGenesis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist.jsonl")
	j, err := journal.Open(path)
	require.NoError(t, err)

	stats := j.Stats(0)
	assert.Equal(t, 0, stats.EntryCount)
	assert.Equal(t, journal.Genesis, stats.LastHash)
}
