package index

import (
	"context"

	"github.com/starford/quire/internal/content"
	"github.com/starford/quire/internal/models"
)

// PostIndex is the storage side of search. Consumers depend on it rather
// than on *DB.
type PostIndex interface {
	UpsertPost(row PostRow, body string) error
	DeletePost(slug string) error
	GetChecksum(slug string) (string, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

var _ PostIndex = (*DB)(nil)

// Posts is what the indexer needs from the content service.
type Posts interface {
	Sources() ([]content.Source, error)
	GetPost(ctx context.Context, slug string) (*models.Post, error)
	Listed(p *models.Post) bool
	SlugFor(path string) (string, bool)
	Invalidate(slug string)
}

var _ Posts = (*content.Service)(nil)

// EventCallback is called after the index changed for slug. kind is one of
// "created", "updated" or "deleted".
type EventCallback func(kind, slug string)
