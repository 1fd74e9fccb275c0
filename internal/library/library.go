// Package library resolves library node keywords to resource URLs.
//
// Resolution scans loaded packages that have a file path, trying a
// recursive traversal first and a flat one when the recursive traversal
// fails or is empty. Only compositing graph resources count. The first
// identifier containing the keyword (case-folded) wins.
//
// Hits are cached for the life of the Resolver under the keyword and under
// the matched identifier. The cache is never invalidated; a library that
// moves while the gateway runs keeps resolving to its old URL.
package library

import (
	"path"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/roach88/graphgate/internal/gwerr"
	"github.com/roach88/graphgate/internal/host"
)

// Entry is one discoverable library resource.
type Entry struct {
	Identifier string `json:"identifier"`
	URL        string `json:"url"`
	Package    string `json:"package"`
}

// Resolver finds and caches library resource URLs.
//
// Resolver calls the host and must therefore only be used on the bridge's
// owning context. The mutex only guards the cache and counters, which
// diagnostics read.
type Resolver struct {
	host host.Host

	mu       sync.Mutex
	cache    map[string]string // folded keyword or identifier -> URL
	searches int
}

// New returns a Resolver over h.
func New(h host.Host) *Resolver {
	return &Resolver{host: h, cache: make(map[string]string)}
}

// Resolve returns the URL of the first library graph whose identifier
// contains keyword.
func (r *Resolver) Resolve(keyword string) (string, error) {
	fold := cases.Fold()
	key := fold.String(keyword)

	r.mu.Lock()
	url, ok := r.cache[key]
	r.mu.Unlock()
	if ok {
		return url, nil
	}

	r.mu.Lock()
	r.searches++
	r.mu.Unlock()

	for _, p := range r.host.Packages() {
		if p.FilePath() == "" {
			continue
		}
		for _, res := range children(p) {
			if res.ClassName() != host.ClassCompGraph {
				continue
			}
			id := fold.String(res.Identifier())
			if !strings.Contains(id, key) {
				continue
			}
			u := res.URL()
			if u == "" {
				continue
			}
			r.mu.Lock()
			r.cache[key] = u
			r.cache[id] = u
			r.mu.Unlock()
			return u, nil
		}
	}
	return "", notFound(keyword)
}

// Resource returns the resource at url in any loaded package, or nil.
func (r *Resolver) Resource(url string) host.Resource {
	for _, p := range r.host.Packages() {
		if res := p.FindResource(url); res != nil {
			return res
		}
	}
	return nil
}

// Instance resolves keyword and instances the matched resource into g.
func (r *Resolver) Instance(g host.Graph, keyword string) (host.Node, string, error) {
	url, err := r.Resolve(keyword)
	if err != nil {
		return nil, "", err
	}
	res := r.Resource(url)
	if res == nil {
		return nil, url, gwerr.NotFound("The library may have been unloaded",
			"Resource URL not found: %s", url)
	}
	n, err := g.NewInstanceNode(res)
	if err != nil {
		return nil, url, gwerr.Host("newInstanceNode", err)
	}
	return n, url, nil
}

// List enumerates library graphs whose identifier contains filter, up to
// limit entries. Every listed identifier is cached. truncated reports that
// the limit was reached.
func (r *Resolver) List(filter string, limit int) (entries []Entry, truncated bool) {
	fold := cases.Fold()
	key := fold.String(filter)
	entries = []Entry{}
	if limit <= 0 {
		return entries, true
	}

	for _, p := range r.host.Packages() {
		fp := p.FilePath()
		if fp == "" {
			continue
		}
		for _, res := range children(p) {
			if res.ClassName() != host.ClassCompGraph {
				continue
			}
			id := fold.String(res.Identifier())
			if key != "" && !strings.Contains(id, key) {
				continue
			}
			u := res.URL()
			if u == "" {
				continue
			}
			r.mu.Lock()
			r.cache[id] = u
			r.mu.Unlock()

			entries = append(entries, Entry{Identifier: res.Identifier(), URL: u, Package: path.Base(fp)})
			if len(entries) >= limit {
				return entries, true
			}
		}
	}
	return entries, false
}

// Len returns the number of cache entries.
func (r *Resolver) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cache)
}

// Searches returns how many times Resolve scanned the host. A cache hit
// does not count.
func (r *Resolver) Searches() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.searches
}

// children lists the first non-empty traversal of p, recursive first.
func children(p host.Package) []host.Resource {
	for _, recursive := range []bool{true, false} {
		c, err := p.Children(recursive)
		if err == nil && len(c) > 0 {
			return c
		}
	}
	return nil
}

func notFound(keyword string) *gwerr.Error {
	return gwerr.NotFound(
		"Use get_library_nodes(filter_text='"+keyword+"') to verify.",
		"Library node '%s' not found", keyword)
}
