package apidesc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	oasgraph "github.com/erraggy/oasgraph"
	"github.com/erraggy/oasgraph/catalog"
	"github.com/erraggy/oasgraph/graph"
	"github.com/erraggy/oasgraph/oaserrors"
	"github.com/erraggy/oasgraph/oasschema"
	"github.com/erraggy/oasgraph/resourceid"
	"github.com/erraggy/oasgraph/serializer"
	"github.com/erraggy/oasgraph/source"
)

// APIDescription drives validation and graph construction for one API
// description: the entry document plus every document reached through its
// references.
type APIDescription struct {
	catalog   *catalog.Catalog
	entry     *catalog.Document
	base      resourceid.Identifier
	g         *graph.Graph
	builder   *graph.Builder
	evaluator *oasschema.Evaluator
	logger    oasgraph.Logger

	sourceMaps       bool
	validateExamples bool

	validated map[string]bool
	order     []string
	resources map[string]bool
}

type config struct {
	logger           oasgraph.Logger
	testMode         bool
	sourceMaps       bool
	hasSourceMaps    bool
	validateExamples bool
}

// Option configures an APIDescription.
type Option func(*config)

// WithLogger sets the orchestrator logger.
func WithLogger(logger oasgraph.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTestMode suppresses environment-dependent graph triples and limits
// serialization to sorted N-Triples, so output compares byte for byte.
func WithTestMode(enabled bool) Option {
	return func(c *config) { c.testMode = enabled }
}

// WithSourceMaps toggles line/column triples. The default follows the
// catalog's source map setting.
func WithSourceMaps(enabled bool) Option {
	return func(c *config) {
		c.sourceMaps = enabled
		c.hasSourceMaps = true
	}
}

// WithValidateExamples toggles validation of examples and defaults against
// their governing schemas.
func WithValidateExamples(enabled bool) Option {
	return func(c *config) { c.validateExamples = enabled }
}

// New loads the entry document through the catalog and prepares the graph.
// The entry URI must identify a whole document, not a fragment, and the
// document must declare a supported openapi version.
func New(ctx context.Context, cat *catalog.Catalog, entryURI resourceid.Identifier, opts ...Option) (*APIDescription, error) {
	cfg := config{
		logger:           oasgraph.NopLogger{},
		validateExamples: true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.hasSourceMaps {
		cfg.sourceMaps = cat.SourceMapsEnabled()
	}

	if _, has := entryURI.Fragment(); has {
		return nil, fmt.Errorf("%w: entry document URI <%s> must not carry a fragment",
			oaserrors.ErrConfig, entryURI)
	}

	d, err := cat.GetDocument(ctx, entryURI)
	if err != nil {
		return nil, err
	}

	g, err := graph.New(d.Version(),
		graph.WithTestMode(cfg.testMode), graph.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	b, err := graph.NewBuilder(g,
		graph.WithBuilderLogger(cfg.logger),
		graph.WithValidateExamples(cfg.validateExamples))
	if err != nil {
		return nil, err
	}
	e, err := oasschema.NewEvaluator()
	if err != nil {
		return nil, err
	}

	base, err := directoryBase(d.URI())
	if err != nil {
		return nil, err
	}

	a := &APIDescription{
		catalog:          cat,
		entry:            d,
		base:             base,
		g:                g,
		builder:          b,
		evaluator:        e,
		logger:           cfg.logger,
		sourceMaps:       cfg.sourceMaps,
		validateExamples: cfg.validateExamples,
		validated:        map[string]bool{},
		resources:        map[string]bool{},
	}
	if err := a.registerResource(d); err != nil {
		return nil, err
	}
	return a, nil
}

// directoryBase truncates a non-directory path to its containing directory.
// Prefixed-name output shortens far more IRIs when the base is a directory,
// especially across multi-document descriptions.
func directoryBase(uri resourceid.Identifier) (resourceid.Identifier, error) {
	path := uri.Path()
	if !strings.Contains(path, "/") || strings.HasSuffix(path, "/") {
		return uri, nil
	}
	return uri.CopyWith(resourceid.Parts{
		Path: resourceid.Set(path[:strings.LastIndex(path, "/")+1]),
	})
}

// Graph returns the description's RDF graph.
func (a *APIDescription) Graph() *graph.Graph { return a.g }

// BaseIRI returns the base used for structured serialization.
func (a *APIDescription) BaseIRI() resourceid.Identifier { return a.base }

// Entry returns the entry document.
func (a *APIDescription) Entry() *catalog.Document { return a.entry }

// ValidatedResources returns the resource URIs in validation order.
func (a *APIDescription) ValidatedResources() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}

// Validate walks the whole description starting at the entry document: each
// resource is validated against its OAS type, its annotations are applied to
// the graph, and every cross-document reference target is validated in turn
// before example checks run. A schema validation failure is fatal and
// returned as the error; graph and example problems accumulate and are
// returned as the slice.
func (a *APIDescription) Validate(ctx context.Context) ([]error, error) {
	return a.validateResource(ctx, a.entry.URI(), "OpenAPI")
}

func (a *APIDescription) validateResource(ctx context.Context, uri resourceid.Identifier, oasType string) ([]error, error) {
	node, err := a.catalog.GetResource(ctx, uri)
	if err != nil {
		return nil, a.classifyTargetError(ctx, uri, err)
	}
	d := node.Document()
	if err := a.registerResource(d); err != nil {
		return nil, err
	}

	anns, err := a.evaluator.Evaluate(node, oasType)
	if err != nil {
		return nil, err
	}
	a.validated[uri.String()] = true
	a.order = append(a.order, uri.String())
	a.logger.Info("validated resource", "uri", uri.String(), "oasType", oasType)

	var sm source.SourceMap
	if a.sourceMaps {
		sm = d.SourceMap()
	}

	// Examples are held back until every resource reachable from here has
	// validated, so referenced schemas exist before instances are checked.
	structural := anns[:0:0]
	var examples []oasschema.Annotation
	for _, ann := range anns {
		if ann.Keyword == "oasExamples" {
			examples = append(examples, ann)
			continue
		}
		structural = append(structural, ann)
	}

	targets, errs := a.builder.Apply(structural, sm)
	out := errs
	for _, target := range targets {
		key := target.URI.String()
		if a.validated[key] {
			continue
		}
		nested, fatal := a.validateResource(ctx, target.URI, target.OASType)
		out = append(out, nested...)
		if fatal != nil {
			return out, fatal
		}
	}

	if len(examples) > 0 {
		_, exErrs := a.builder.Apply(examples, sm)
		out = append(out, exErrs...)
	}
	return out, nil
}

// classifyTargetError turns a failed reference target load into its
// actionable form: a target that would load with a known suffix appended
// names that suffix, any other load failure marks the target unresolvable.
func (a *APIDescription) classifyTargetError(ctx context.Context, uri resourceid.Identifier, err error) error {
	if !errors.Is(err, oaserrors.ErrLoad) {
		return err
	}
	base, baseErr := uri.ToAbsolute()
	if baseErr != nil {
		return err
	}
	if suffix, found := a.catalog.Registry().FindSuffix(ctx, base); found {
		return &oaserrors.SuffixConfigurationError{URI: uri.String(), Suffix: suffix}
	}
	return &oaserrors.UnresolvableReferenceError{URI: uri.String(), Cause: err}
}

// ValidateGraph runs the deferred reference target type check over the
// finished graph.
func (a *APIDescription) ValidateGraph() []error {
	return a.g.ValidateReferences()
}

// Serialize writes the graph to w. Structured formats shorten IRIs against
// the description's base.
func (a *APIDescription) Serialize(w io.Writer, format serializer.Format) error {
	return serializer.Serialize(w, a.g, format, serializer.WithBase(a.base))
}

// registerResource records a document in the graph once: its root edge plus,
// outside test mode, its retrieval location.
func (a *APIDescription) registerResource(d *catalog.Document) error {
	key := d.URI().String()
	if a.resources[key] {
		return nil
	}
	if err := a.g.AddResource(d.URI(), d.URL()); err != nil {
		return err
	}
	a.resources[key] = true
	return nil
}
