// Package journal implements the gateway's tamper-evident memory journal
// (spec.md §4.8): an append-only, hash-chained, line-delimited JSON log of
// every agent call and verify result.
package journal

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Genesis is the literal predecessor hash for the journal's first record.
const Genesis = "GENESIS"

const hashLen = 16

// Entry is the caller-supplied payload for one journal record: at minimum
// a "type" ("agent_call" or "verify") plus whatever fields describe the
// call (agent, provider, intent, status/verdict, and so on).
type Entry map[string]any

// Record is one persisted journal line.
type Record struct {
	Ts   string `json:"ts"`
	Prev string `json:"prev"`
	Hash string `json:"hash"`
	rest map[string]any
}

// MarshalJSON flattens Record's fixed fields together with its caller
// fields into one JSON object, matching the on-disk line shape.
func (r Record) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.rest)+3)
	for k, v := range r.rest {
		m[k] = v
	}
	m["ts"] = r.Ts
	m["prev"] = r.Prev
	m["hash"] = r.Hash
	return json.Marshal(m)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	m := make(map[string]any)
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if ts, ok := m["ts"].(string); ok {
		r.Ts = ts
	}
	if prev, ok := m["prev"].(string); ok {
		r.Prev = prev
	}
	if h, ok := m["hash"].(string); ok {
		r.Hash = h
	}
	delete(m, "ts")
	delete(m, "prev")
	delete(m, "hash")
	r.rest = m
	return nil
}

// Field returns a caller-supplied field from the record (not ts/prev/hash).
func (r Record) Field(key string) (any, bool) {
	v, ok := r.rest[key]
	return v, ok
}

// Journal serializes record() calls globally: the hash chain requires that
// computing record n's hash and advancing lastHash happen atomically
// relative to record n+1 reading prev, and the file append stays inside
// that same critical section so line order matches hash order.
type Journal struct {
	mu            sync.Mutex
	path          string
	lastHash      string
	sessionCounts map[string]int
	entryCount    int
}

// Open loads (or creates) the journal at path, recovering lastHash from the
// file's final line if one exists, and rebuilds per-agent session counts
// from every existing agent_call record.
func Open(path string) (*Journal, error) {
	j := &Journal{
		path:          path,
		lastHash:      Genesis,
		sessionCounts: make(map[string]int),
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return j, nil
		}
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		j.entryCount++
		j.lastHash = rec.Hash
		if t, _ := rec.Field("type"); t == "agent_call" {
			if agent, ok := rec.Field("agent"); ok {
				if name, ok := agent.(string); ok {
					j.sessionCounts[name]++
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("journal: scan %s: %w", path, err)
	}
	return j, nil
}

// computeHash is the pure hash-chain function: it is deterministic in
// (ts, prev, entry), so equal inputs always produce equal output hashes.
func computeHash(ts, prev string, entry Entry) (string, error) {
	unhashed := map[string]any{"ts": ts, "prev": prev}
	for k, v := range entry {
		unhashed[k] = v
	}
	canonical, err := canonicalJSON(unhashed)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(append([]byte(prev), canonical...))
	return hex.EncodeToString(sum[:])[:hashLen], nil
}

// Record appends entry as a new chained record and returns its hash.
func (j *Journal) Record(entry Entry) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rec := Record{
		Ts:   time.Now().UTC().Format(time.RFC3339Nano),
		Prev: j.lastHash,
		rest: map[string]any(entry),
	}

	hash, err := computeHash(rec.Ts, rec.Prev, entry)
	if err != nil {
		return "", fmt.Errorf("journal: canonicalize: %w", err)
	}
	rec.Hash = hash

	if err := j.appendLine(rec); err != nil {
		return "", err
	}

	j.lastHash = rec.Hash
	j.entryCount++
	if t, ok := entry["type"]; ok && t == "agent_call" {
		if agent, ok := entry["agent"].(string); ok {
			j.sessionCounts[agent]++
		}
	}
	return rec.Hash, nil
}

func (j *Journal) appendLine(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(j.path), 0o755); err != nil {
		return fmt.Errorf("journal: mkdir: %w", err)
	}
	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("journal: open for append: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("journal: marshal: %w", err)
	}
	line = append(line, '\n')
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return nil
}

// Recent returns up to limit of the most recent records, newest first.
func (j *Journal) Recent(limit int) ([]Record, error) {
	j.mu.Lock()
	path := j.path
	j.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	defer f.Close()

	var all []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		all = append(all, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("journal: scan %s: %w", path, err)
	}

	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]Record, limit)
	for i := 0; i < limit; i++ {
		out[i] = all[len(all)-1-i]
	}
	return out, nil
}

// Stats summarizes the journal state. contextKeyCount is supplied by the
// caller (the gateway wires it from the context store) since the journal
// has no knowledge of that file's contents.
type Stats struct {
	EntryCount      int            `json:"entry_count"`
	LastHash        string         `json:"last_hash"`
	ContextKeyCount int            `json:"context_key_count"`
	SessionCounts   map[string]int `json:"session_counts"`
}

func (j *Journal) Stats(contextKeyCount int) Stats {
	j.mu.Lock()
	defer j.mu.Unlock()

	sessions := make(map[string]int, len(j.sessionCounts))
	for k, v := range j.sessionCounts {
		sessions[k] = v
	}
	return Stats{
		EntryCount:      j.entryCount,
		LastHash:        j.lastHash,
		ContextKeyCount: contextKeyCount,
		SessionCounts:   sessions,
	}
}

// canonicalJSON renders v with map keys sorted at every level, so that two
// calls with the same logical content always produce the same bytes.
func canonicalJSON(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var buf []byte
		buf = append(buf, '{')
		for i, k := range keys {
			if i > 0 {
				buf = append(buf, ',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf = append(buf, kb...)
			buf = append(buf, ':')
			vb, err := canonicalJSON(val[k])
			if err != nil {
				return nil, err
			}
			buf = append(buf, vb...)
		}
		buf = append(buf, '}')
		return buf, nil
	case []any:
		var buf []byte
		buf = append(buf, '[')
		for i, e := range val {
			if i > 0 {
				buf = append(buf, ',')
			}
			eb, err := canonicalJSON(e)
			if err != nil {
				return nil, err
			}
			buf = append(buf, eb...)
		}
		buf = append(buf, ']')
		return buf, nil
	default:
		return json.Marshal(val)
	}
}
