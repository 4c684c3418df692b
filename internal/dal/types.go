package dal

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Document kinds. Each aggregate is stored as an independent JSON document.
const (
	KindPlayerPools  = "player_pools"
	KindDrafts       = "drafts"
	KindDraftPools   = "draft_pools"
	KindDraftTeams   = "draft_teams"
	KindDraftHistory = "draft_history"
	KindPickTasks    = "pick_tasks"
)

// ErrNotFound is returned by Store.Get and Store.Latest for a missing document.
var ErrNotFound = errors.New("document not found")

// Document is one JSON blob under (Kind, Key).
type Document struct {
	Kind string
	Key  string
	Data []byte
}

// Store is a key to JSON document store. Keys are lowercased by every
// implementation.
type Store interface {
	// Get returns the document data or ErrNotFound.
	Get(ctx context.Context, kind, key string) ([]byte, error)
	// Put writes all docs atomically: either every document is stored or none is.
	Put(ctx context.Context, docs ...Document) error
	// Latest returns the most recently created document of kind or ErrNotFound.
	Latest(ctx context.Context, kind string) (Document, error)
	// List returns every document of kind in creation order.
	List(ctx context.Context, kind string) ([]Document, error)
	Close() error
}

// NormalizeKey lowercases and trims a document key.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func checkDocs(docs []Document) error {
	for _, d := range docs {
		if d.Kind == "" || NormalizeKey(d.Key) == "" {
			return fmt.Errorf("document needs kind and key (kind=%q key=%q)", d.Kind, d.Key)
		}
	}
	return nil
}
