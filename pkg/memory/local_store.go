package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

type localEntry struct {
	Content   string
	CreatedAt time.Time
}

// LocalStore is the in-process fallback backend used when no database is
// configured. One cache bucket per (user, scope) pair; ranking is word
// overlap with recency as tiebreaker.
type LocalStore struct {
	cache *cache.Cache
	mu    sync.Mutex
}

func NewLocalStore() *LocalStore {
	// Memories live for a day locally; purge sweep every hour
	return &LocalStore{
		cache: cache.New(24*time.Hour, 1*time.Hour),
	}
}

func bucketKey(userId, scope string) string {
	return userId + "|" + scope
}

func (s *LocalStore) Append(ctx context.Context, userId, scope string, entries []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := bucketKey(userId, scope)
	var bucket []localEntry
	if x, found := s.cache.Get(key); found {
		bucket = x.([]localEntry)
	}
	now := time.Now()
	for _, e := range entries {
		if strings.TrimSpace(e) == "" {
			continue
		}
		bucket = append(bucket, localEntry{Content: e, CreatedAt: now})
	}
	s.cache.Set(key, bucket, cache.DefaultExpiration)
	return nil
}

func (s *LocalStore) Search(ctx context.Context, userId, scope, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 3
	}

	s.mu.Lock()
	x, found := s.cache.Get(bucketKey(userId, scope))
	s.mu.Unlock()
	if !found {
		return []string{}, nil
	}
	bucket := x.([]localEntry)

	type scored struct {
		entry localEntry
		score int
	}
	queryWords := tokenize(query)
	ranked := make([]scored, 0, len(bucket))
	for _, e := range bucket {
		ranked = append(ranked, scored{entry: e, score: overlap(queryWords, tokenize(e.Content))})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].entry.CreatedAt.After(ranked[j].entry.CreatedAt)
	})

	out := make([]string, 0, limit)
	for _, r := range ranked {
		if len(out) >= limit {
			break
		}
		out = append(out, r.entry.Content)
	}
	return out, nil
}

func tokenize(text string) map[string]bool {
	words := strings.Fields(strings.ToLower(text))
	set := make(map[string]bool, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) > 2 {
			set[w] = true
		}
	}
	return set
}

func overlap(a, b map[string]bool) int {
	count := 0
	for w := range a {
		if b[w] {
			count++
		}
	}
	return count
}
