package engine

import (
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/p-hoffmann/trextest/pkg/threadsafe"
)

// kvEntry is one gossip-replicated key/value pair, namespaced by the node
// that wrote it. Deletes tombstone the entry instead of removing it so the
// removal propagates the same way a write does.
type kvEntry struct {
	Origin  string `json:"origin"`
	Key     string `json:"key"`
	Value   string `json:"value"`
	Version uint64 `json:"version"`
	Deleted bool   `json:"deleted"`
	SetAt   int64  `json:"set_at"`
}

func (e *kvEntry) id() string {
	return e.Origin + "/" + e.Key
}

// kvStore is this node's view of the replicated cluster state. Only the
// origin node writes under its own namespace, so last-writer-wins on the
// per-store version counter is a total order per entry.
type kvStore struct {
	entries *threadsafe.Map[string, *kvEntry]
	version atomic.Uint64
}

func newKVStore() *kvStore {
	return &kvStore{entries: threadsafe.NewMap[string, *kvEntry]()}
}

// set records a local write and returns the entry for broadcast.
func (s *kvStore) set(origin, key, value string) *kvEntry {
	e := &kvEntry{
		Origin:  origin,
		Key:     key,
		Value:   value,
		Version: s.version.Add(1),
		SetAt:   time.Now().Unix(),
	}
	s.entries.Set(e.id(), e)

	return e
}

// tombstone records a local delete and returns the entry for broadcast.
func (s *kvStore) tombstone(origin, key string) *kvEntry {
	e := &kvEntry{
		Origin:  origin,
		Key:     key,
		Version: s.version.Add(1),
		Deleted: true,
		SetAt:   time.Now().Unix(),
	}
	s.entries.Set(e.id(), e)

	return e
}

// merge applies a remote entry and reports whether it was newer than what
// we had. Stale entries are dropped so gossip echoes cannot roll back.
func (s *kvStore) merge(e *kvEntry) bool {
	applied := false
	s.entries.Update(e.id(), func(cur *kvEntry, ok bool) (*kvEntry, bool) {
		if ok && cur.Version >= e.Version {
			return cur, false
		}

		applied = true
		return e, true
	})

	return applied
}

// snapshot returns every entry, tombstones included, sorted by id. Used
// for full-state sync between nodes.
func (s *kvStore) snapshot() []*kvEntry {
	var entries []*kvEntry
	s.entries.Range(func(_ string, e *kvEntry) bool {
		entries = append(entries, e)
		return true
	})

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].id() < entries[j].id()
	})

	return entries
}

// live returns non-tombstoned entries whose key starts with prefix, sorted
// by origin then key.
func (s *kvStore) live(prefix string) []*kvEntry {
	var entries []*kvEntry
	s.entries.Range(func(_ string, e *kvEntry) bool {
		if !e.Deleted && strings.HasPrefix(e.Key, prefix) {
			entries = append(entries, e)
		}
		return true
	})

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].id() < entries[j].id()
	})

	return entries
}

// originsWithTables reports which nodes currently announce tables.
func (s *kvStore) originsWithTables() map[string]bool {
	origins := make(map[string]bool)
	s.entries.Range(func(_ string, e *kvEntry) bool {
		if !e.Deleted && strings.HasPrefix(e.Key, "table:") {
			origins[e.Origin] = true
		}
		return true
	})

	return origins
}
