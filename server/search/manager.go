package search

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	qerrors "github.com/usebloggy/bloggy/server/internal/errors"
	"github.com/usebloggy/bloggy/store"
)

// Status is the lifecycle state of the full-text index.
type Status string

const (
	// StatusAbsent means no index has ever been built.
	StatusAbsent Status = "absent"
	// StatusBuilding means a rebuild is in flight. Reads fall back to the
	// previously published index, or to substring search if none exists.
	StatusBuilding Status = "building"
	// StatusReady means the index reflects content as of BuiltAt.
	StatusReady Status = "ready"
	// StatusStale means content changed after the last build. A full
	// rebuild is required; the manager does not update incrementally.
	StatusStale Status = "stale"
)

// Descriptor describes the current index.
type Descriptor struct {
	TokenizerName       string    `json:"tokenizerName"`
	TokenizerModulePath string    `json:"tokenizerModulePath,omitempty"`
	BuiltAt             time.Time `json:"builtAt"`
	Status              Status    `json:"status"`
	DocumentCount       int       `json:"documentCount"`
}

// Match is a scored index hit.
type Match struct {
	PostID int32
	Score  float64
}

// Field boosts for the inverted index. A term hit in the title weighs
// more than the same hit in the body.
const (
	titleBoost    = 3
	subtitleBoost = 2
	bodyBoost     = 1
)

// index is an immutable posting-list snapshot. It is published through an
// atomic pointer swap so readers never observe a half-built index.
type index struct {
	postings  map[string]map[int32]float64 // token -> postID -> weight
	tokenizer Tokenizer
	builtAt   time.Time
	docCount  int
}

// PostLister is the slice of the store the manager needs for rebuilds.
type PostLister interface {
	ListPosts(ctx context.Context, find *store.FindPost) ([]*store.Post, error)
}

// Manager owns the full-text index lifecycle. Rebuilds run without
// holding any lock that blocks concurrent reads; the chosen trade-off is
// full rebuilds over incremental updates, so any content change marks the
// index stale until the next rebuild.
type Manager struct {
	store PostLister

	// mu guards the descriptor fields. The published index itself is
	// behind the atomic pointer and needs no lock to read.
	mu                  sync.RWMutex
	status              Status
	tokenizerName       string
	tokenizerModulePath string
	builtAt             time.Time
	docCount            int
	// fresh is true while the published snapshot reflects every
	// acknowledged content change. It survives the ready -> building
	// transition so reads keep hitting the prior snapshot during a
	// rebuild.
	fresh bool
	// dirty records a content change that arrived while a rebuild was
	// reading the old content; the snapshot it publishes is already
	// behind.
	dirty bool

	current atomic.Pointer[index]

	// rebuildMu serializes rebuilds.
	rebuildMu sync.Mutex
}

// NewManager creates an index manager. The index starts absent; call
// Rebuild to populate it.
func NewManager(store PostLister) *Manager {
	return &Manager{
		store:  store,
		status: StatusAbsent,
	}
}

// Descriptor returns a snapshot of the index state.
func (m *Manager) Descriptor() Descriptor {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Descriptor{
		TokenizerName:       m.tokenizerName,
		TokenizerModulePath: m.tokenizerModulePath,
		BuiltAt:             m.builtAt,
		Status:              m.status,
		DocumentCount:       m.docCount,
	}
}

// Ready reports whether full-text queries can be served from the index:
// a snapshot is published and no content change has outrun it. During a
// rebuild of a ready index this stays true, so reads keep hitting the
// prior snapshot.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fresh
}

// OnContentChanged marks the index stale. The manager does not apply
// incremental updates; a full Rebuild is required to return to ready.
// A change arriving while a rebuild is in flight is recorded so the
// snapshot that rebuild publishes is not reported ready.
func (m *Manager) OnContentChanged(postID int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fresh = false
	switch m.status {
	case StatusReady:
		m.status = StatusStale
		slog.Debug("full-text index marked stale", "postID", postID)
	case StatusBuilding:
		m.dirty = true
		slog.Debug("content changed during index rebuild", "postID", postID)
	}
}

// Rebuild fully re-derives the index from current content and publishes
// it atomically. An unknown tokenizer fails the rebuild and leaves the
// prior index untouched and servable. Safe to invoke while reads are in
// flight: they keep hitting the previously published snapshot.
func (m *Manager) Rebuild(ctx context.Context, tokenizerName, tokenizerModulePath string) error {
	m.rebuildMu.Lock()
	defer m.rebuildMu.Unlock()

	tokenizer, err := LookupTokenizer(tokenizerName)
	if err != nil {
		return err
	}

	m.mu.Lock()
	prevStatus := m.status
	m.status = StatusBuilding
	m.dirty = false
	m.mu.Unlock()

	restore := func() {
		m.mu.Lock()
		if m.dirty && prevStatus == StatusReady {
			m.status = StatusStale
		} else {
			m.status = prevStatus
		}
		m.dirty = false
		m.mu.Unlock()
	}

	normal := store.Normal
	posts, err := m.store.ListPosts(ctx, &store.FindPost{RowStatus: &normal})
	if err != nil {
		restore()
		return qerrors.StoreUnavailable("failed to load posts for index rebuild", err)
	}

	next := &index{
		postings:  make(map[string]map[int32]float64),
		tokenizer: tokenizer,
		builtAt:   time.Now(),
		docCount:  len(posts),
	}
	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			restore()
			return errors.Wrap(err, "index rebuild canceled")
		}
		next.add(post.ID, post.Title, titleBoost)
		next.add(post.ID, post.Subtitle, subtitleBoost)
		next.add(post.ID, post.Body, bodyBoost)
	}

	m.current.Store(next)
	m.mu.Lock()
	if m.dirty {
		// Content changed while the build was reading it; the snapshot
		// just published already misses that change.
		m.status = StatusStale
	} else {
		m.status = StatusReady
		m.fresh = true
	}
	m.dirty = false
	m.tokenizerName = tokenizer.Name()
	m.tokenizerModulePath = tokenizerModulePath
	m.builtAt = next.builtAt
	m.docCount = next.docCount
	m.mu.Unlock()

	slog.Info("full-text index rebuilt",
		"tokenizer", tokenizer.Name(),
		"documents", next.docCount,
	)
	return nil
}

// Search runs the given terms against the published index. All terms must
// match (AND semantics); matches are ordered by score descending with the
// post ID descending as tie-break. The second return value is false when
// the index cannot serve the query and the caller should degrade to
// substring search.
func (m *Manager) Search(terms []string) ([]Match, bool) {
	if !m.Ready() {
		return nil, false
	}
	idx := m.current.Load()
	if idx == nil {
		return nil, false
	}

	var tokens []string
	for _, term := range terms {
		tokens = append(tokens, idx.tokenizer.Segment(term)...)
	}
	if len(tokens) == 0 {
		return nil, true
	}

	scores := map[int32]float64{}
	for i, token := range tokens {
		hits := idx.postings[token]
		if len(hits) == 0 {
			return []Match{}, true
		}
		if i == 0 {
			for id, w := range hits {
				scores[id] = w
			}
			continue
		}
		for id := range scores {
			if w, ok := hits[id]; ok {
				scores[id] += w
			} else {
				delete(scores, id)
			}
		}
	}

	matches := make([]Match, 0, len(scores))
	for id, score := range scores {
		matches = append(matches, Match{PostID: id, Score: score})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].PostID > matches[j].PostID
	})
	return matches, true
}

func (idx *index) add(postID int32, text string, boost float64) {
	for _, token := range idx.tokenizer.Segment(text) {
		hits := idx.postings[token]
		if hits == nil {
			hits = make(map[int32]float64)
			idx.postings[token] = hits
		}
		hits[postID] += boost
	}
}
