package source

import (
	"context"
	"sort"
	"strings"

	oasgraph "github.com/erraggy/oasgraph"
	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/resourceid"
)

// Registry routes URI requests to sources by longest matching URI prefix
// and remembers the URL each URI was actually loaded from.
type Registry struct {
	entries    []registryEntry
	urls       map[string]resourceid.Identifier
	sourceMaps map[string]SourceMap
	logger     oasgraph.Logger
}

type registryEntry struct {
	prefix string
	source Source
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used for load tracing.
func WithLogger(logger oasgraph.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		urls:       map[string]resourceid.Identifier{},
		sourceMaps: map[string]SourceMap{},
		logger:     oasgraph.NopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddSource registers a source under a URI prefix. The prefix must be
// absolute, fragmentless, and must end with "/" so that it bounds a URI
// subtree.
func (r *Registry) AddSource(prefix resourceid.Identifier, src Source) error {
	if !prefix.IsAbsolute() {
		return &oaserrors.MalformedIdentifierError{
			Value: prefix.String(), Rule: "source prefix",
			Message: "prefix must be an absolute URI",
		}
	}
	if _, has := prefix.Fragment(); has {
		return &oaserrors.MalformedIdentifierError{
			Value: prefix.String(), Rule: "source prefix",
			Message: "prefix must not carry a fragment",
		}
	}
	if !strings.HasSuffix(prefix.Path(), "/") {
		return &oaserrors.MalformedIdentifierError{
			Value: prefix.String(), Rule: "source prefix",
			Message: "prefix path must end with '/'",
		}
	}
	r.entries = append(r.entries, registryEntry{prefix: prefix.String(), source: src})
	sort.SliceStable(r.entries, func(i, j int) bool {
		return len(r.entries[i].prefix) > len(r.entries[j].prefix)
	})
	r.logger.Debug("registered source", "prefix", prefix.String())
	return nil
}

// Load fetches the resource identified by uri (which must be fragmentless)
// through the longest matching prefix. On success the retrieval URL is
// recorded for later lookup via URLFor.
func (r *Registry) Load(ctx context.Context, uri resourceid.Identifier) (*Content, error) {
	if _, has := uri.Fragment(); has {
		return nil, &oaserrors.MalformedIdentifierError{
			Value: uri.String(), Rule: "resource URI",
			Message: "resource URIs must not carry a fragment",
		}
	}

	key := uri.String()
	for _, e := range r.entries {
		if !strings.HasPrefix(key, e.prefix) {
			continue
		}
		r.logger.Debug("loading resource", "uri", key, "prefix", e.prefix)
		content, err := e.source.Load(ctx, key[len(e.prefix):])
		if err != nil {
			return nil, err
		}
		if content.URL.IsZero() {
			content.URL = uri
		}
		r.urls[key] = content.URL
		r.logger.Info("loaded resource", "uri", key, "url", content.URL.String())
		return content, nil
	}
	return nil, &oaserrors.ContentLoadError{Location: key}
}

// URLFor returns the URL a previously loaded URI was retrieved from.
func (r *Registry) URLFor(uri resourceid.Identifier) (resourceid.Identifier, bool) {
	url, ok := r.urls[uri.String()]
	return url, ok
}

// RecordSourceMap associates a position map with a loaded URI so it survives
// cache hits that bypass the loader.
func (r *Registry) RecordSourceMap(uri resourceid.Identifier, sm SourceMap) {
	r.sourceMaps[uri.String()] = sm
}

// SourceMapFor returns the position map recorded for a URI, if any.
func (r *Registry) SourceMapFor(uri resourceid.Identifier) (SourceMap, bool) {
	sm, ok := r.sourceMaps[uri.String()]
	return sm, ok
}

// FindSuffix probes whether uri would load if one of the default suffixes
// were appended, returning the first suffix that works. It is used to
// produce actionable errors for references that omit a required suffix.
// Probes go straight to the matching source, so no retrieval URL or source
// map is recorded for them.
func (r *Registry) FindSuffix(ctx context.Context, uri resourceid.Identifier) (string, bool) {
	for _, suffix := range DefaultSuffixes {
		probe, err := uri.CopyWith(resourceid.Parts{
			Path: resourceid.Set(uri.Path() + suffix),
		})
		if err != nil {
			continue
		}
		key := probe.String()
		for _, e := range r.entries {
			if !strings.HasPrefix(key, e.prefix) {
				continue
			}
			if _, err := e.source.Load(ctx, key[len(e.prefix):]); err == nil {
				return suffix, true
			}
			break
		}
	}
	return "", false
}
