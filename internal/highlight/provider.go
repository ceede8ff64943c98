package highlight

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Provider builds a Highlighter on first use and hands the same instance to
// every later caller. Concurrent first calls share a single construction.
type Provider struct {
	theme     string
	languages []string

	group  singleflight.Group
	mu     sync.RWMutex
	h      *Highlighter
	builds atomic.Int64
}

// NewProvider returns a provider for the given theme and languages.
func NewProvider(theme string, languages []string) *Provider {
	return &Provider{theme: theme, languages: languages}
}

// Get returns the shared Highlighter. A failed build is not memoised; the
// next call retries.
func (p *Provider) Get(ctx context.Context) (*Highlighter, error) {
	p.mu.RLock()
	h := p.h
	p.mu.RUnlock()
	if h != nil {
		return h, nil
	}

	ch := p.group.DoChan("highlighter", func() (any, error) {
		p.mu.RLock()
		h := p.h
		p.mu.RUnlock()
		if h != nil {
			return h, nil
		}
		p.builds.Add(1)
		h, err := New(p.theme, p.languages)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.h = h
		p.mu.Unlock()
		return h, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Highlighter), nil
	}
}

// Builds reports how many times the highlighter has been constructed.
func (p *Provider) Builds() int64 { return p.builds.Load() }
