package build

import (
	"context"
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hoclieu/examgen/internal/exam"
)

// Summary is the list view of a stored build.
type Summary struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Scope     exam.Scope `json:"scope"`
	Warnings  int        `json:"warnings"`
	CreatedAt time.Time  `json:"created_at"`
}

// Store persists finished builds so an exam can be re-exported later
// with the exact numbering and assignment it was generated with.
type Store interface {
	SaveBuild(ctx context.Context, res *Result) (string, error)
	GetBuild(ctx context.Context, id string) (*Result, error)
	ListBuilds(ctx context.Context, limit int) ([]Summary, error)
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	builds map[string]*Result
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory build store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		builds: make(map[string]*Result),
	}
}

func (s *MemoryStore) SaveBuild(_ context.Context, res *Result) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := res.ID
	if id == "" {
		id = generateID()
	}
	stored := *res
	stored.ID = id
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	s.builds[id] = &stored
	return id, nil
}

func (s *MemoryStore) GetBuild(_ context.Context, id string) (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, ok := s.builds[id]
	if !ok {
		return nil, fmt.Errorf("build not found: %s", id)
	}
	return res, nil
}

func (s *MemoryStore) ListBuilds(_ context.Context, limit int) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]Summary, 0, len(s.builds))
	for _, res := range s.builds {
		summaries = append(summaries, Summary{
			ID:        res.ID,
			Title:     res.Title,
			Scope:     res.Scope,
			Warnings:  len(res.Warnings),
			CreatedAt: res.CreatedAt,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func generateID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
