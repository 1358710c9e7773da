package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/resourceid"
)

// DefaultSuffixes is the suffix search order used when none is configured.
var DefaultSuffixes = []string{".json", ".yaml", ".yml"}

// Source fetches and parses the resource named by a path relative to the
// prefix the source is registered under.
type Source interface {
	Load(ctx context.Context, resourcePath string) (*Content, error)
}

// DirectMapSource serves an explicit resource-path to filesystem-path map.
// It performs no suffix searching: every servable resource is listed.
type DirectMapSource struct {
	locations map[string]string
}

// NewDirectMapSource builds a source from resource paths to file paths.
func NewDirectMapSource(locations map[string]string) *DirectMapSource {
	m := make(map[string]string, len(locations))
	for k, v := range locations {
		m[k] = v
	}
	return &DirectMapSource{locations: m}
}

// Add maps one resource path to a file path.
func (s *DirectMapSource) Add(resourcePath, filePath string) {
	s.locations[resourcePath] = filePath
}

// Load implements Source.
func (s *DirectMapSource) Load(_ context.Context, resourcePath string) (*Content, error) {
	filePath, ok := s.locations[resourcePath]
	if !ok {
		return nil, &oaserrors.ContentLoadError{Location: resourcePath}
	}
	return loadFile(filePath)
}

// FileMultiSuffixSource serves documents from a directory, trying each
// configured suffix in order when the resource path itself does not exist.
type FileMultiSuffixSource struct {
	dir      string
	suffixes []string
}

// NewFileMultiSuffixSource builds a directory source. A nil suffix list
// means [DefaultSuffixes].
func NewFileMultiSuffixSource(dir string, suffixes []string) *FileMultiSuffixSource {
	if suffixes == nil {
		suffixes = DefaultSuffixes
	}
	return &FileMultiSuffixSource{dir: dir, suffixes: suffixes}
}

// Load implements Source.
func (s *FileMultiSuffixSource) Load(_ context.Context, resourcePath string) (*Content, error) {
	loadErr := &oaserrors.ContentLoadError{Location: resourcePath}
	for _, suffix := range append([]string{""}, s.suffixes...) {
		full := filepath.Join(s.dir, filepath.FromSlash(resourcePath)+suffix)
		if !strings.HasPrefix(full, filepath.Clean(s.dir)+string(filepath.Separator)) {
			return nil, &oaserrors.ContentLoadError{
				Location: resourcePath,
				Causes:   []error{fmt.Errorf("path escapes source directory")},
			}
		}
		content, err := loadFile(full)
		if err == nil {
			return content, nil
		}
		if suffix != "" {
			loadErr.Suffixes = append(loadErr.Suffixes, suffix)
		}
		loadErr.Causes = append(loadErr.Causes, err)
	}
	return nil, loadErr
}

func loadFile(path string) (*Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content, err := ParseContent(data, FormatForSuffix(filepath.Ext(path)))
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	url, err := resourceid.FileURI(filepath.ToSlash(abs))
	if err != nil {
		return nil, err
	}
	content.URL = url
	return content, nil
}

// HTTPMultiSuffixSource serves documents from a base URL, trying each
// configured suffix in order.
type HTTPMultiSuffixSource struct {
	base      resourceid.Identifier
	suffixes  []string
	client    *http.Client
	userAgent string
}

// NewHTTPMultiSuffixSource builds an HTTP source rooted at base. A nil
// client means http.DefaultClient; a nil suffix list means
// [DefaultSuffixes].
func NewHTTPMultiSuffixSource(
	base resourceid.Identifier,
	suffixes []string,
	client *http.Client,
	userAgent string,
) *HTTPMultiSuffixSource {
	if suffixes == nil {
		suffixes = DefaultSuffixes
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPMultiSuffixSource{
		base: base, suffixes: suffixes, client: client, userAgent: userAgent,
	}
}

// Load implements Source.
func (s *HTTPMultiSuffixSource) Load(ctx context.Context, resourcePath string) (*Content, error) {
	loadErr := &oaserrors.ContentLoadError{Location: resourcePath}
	for _, suffix := range append([]string{""}, s.suffixes...) {
		ref, err := resourceid.Parse(resourcePath+suffix, resourceid.RuleURIReference)
		if err != nil {
			return nil, err
		}
		url, err := ref.Resolve(s.base)
		if err != nil {
			return nil, err
		}
		content, err := s.fetch(ctx, url)
		if err == nil {
			return content, nil
		}
		if suffix != "" {
			loadErr.Suffixes = append(loadErr.Suffixes, suffix)
		}
		loadErr.Causes = append(loadErr.Causes, err)
	}
	return nil, loadErr
}

func (s *HTTPMultiSuffixSource) fetch(ctx context.Context, url resourceid.Identifier) (*Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url.String(), nil)
	if err != nil {
		return nil, err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	format := FormatForSuffix(strings.ToLower(filepath.Ext(url.Path())))
	if format == FormatUnknown {
		switch {
		case strings.Contains(resp.Header.Get("Content-Type"), "json"):
			format = FormatJSON
		case strings.Contains(resp.Header.Get("Content-Type"), "yaml"):
			format = FormatYAML
		}
	}
	content, err := ParseContent(data, format)
	if err != nil {
		return nil, fmt.Errorf("parsing <%s>: %w", url, err)
	}
	content.URL = url
	return content, nil
}
