package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	oasgraph "github.com/erraggy/oasgraph"
	"github.com/erraggy/oasgraph/apidesc"
	"github.com/erraggy/oasgraph/catalog"
	"github.com/erraggy/oasgraph/resourceid"
	"github.com/erraggy/oasgraph/serializer"
	"github.com/erraggy/oasgraph/source"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version", "-v", "--version":
		fmt.Printf("oasgraph v%s\n", oasgraph.Version())
	case "help", "-h", "--help":
		printUsage()
	case "validate":
		if err := handleValidate(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("oasgraph - OpenAPI 3.0 validation and RDF graph projection\n\n")
	fmt.Printf("Usage: oasgraph <command> [flags]\n\n")
	fmt.Printf("Commands:\n")
	fmt.Printf("  validate    Validate an API description and build its graph\n")
	fmt.Printf("  version     Print version information\n")
	fmt.Printf("  help        Print this help\n\n")
	fmt.Printf("Run 'oasgraph <command> -h' for command flags.\n")
}

// repeatedArg collects every occurrence of a repeatable flag. Each value is
// either a location or "location,uri".
type repeatedArg []string

func (r *repeatedArg) String() string { return strings.Join(*r, " ") }

func (r *repeatedArg) Set(value string) error {
	*r = append(*r, value)
	return nil
}

// validateFlags contains flags for the validate command
type validateFlags struct {
	initial       string
	files         repeatedArg
	urls          repeatedArg
	dirs          repeatedArg
	urlPrefixes   repeatedArg
	dirSuffixes   string
	urlSuffixes   string
	stripSuffixes string
	numberLines   bool
	examples      bool
	output        string
	testMode      bool
	verbose       bool
}

func setupValidateFlags() (*flag.FlagSet, *validateFlags) {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	flags := &validateFlags{}

	fs.StringVar(&flags.initial, "i", "", "URI of the initial (entry) document; defaults to the first -f or -u document")
	fs.Var(&flags.files, "f", "load a file, optionally 'path,uri'; repeatable")
	fs.Var(&flags.urls, "u", "load a URL, optionally 'url,uri'; repeatable")
	fs.Var(&flags.dirs, "d", "serve a directory tree as 'dir,uri-prefix'; repeatable")
	fs.Var(&flags.urlPrefixes, "p", "serve a URL tree as 'url-prefix,uri-prefix'; repeatable")
	fs.StringVar(&flags.dirSuffixes, "D", ".json,.yaml,.yml", "suffix search order for -d sources, comma-separated")
	fs.StringVar(&flags.urlSuffixes, "P", ".json,.yaml,.yml", "suffix search order for -p sources, comma-separated")
	fs.StringVar(&flags.stripSuffixes, "x", ".json,.yaml,.yml", "suffixes stripped from -f and -u locations when deriving URIs; pass '' to disable")
	fs.BoolVar(&flags.numberLines, "n", false, "record line and column numbers in the graph")
	fs.BoolVar(&flags.examples, "e", true, "validate examples and defaults against their schemas")
	fs.StringVar(&flags.output, "o", "", "serialize the graph in this format (nt, nt11, ttl, turtle, toml)")
	fs.BoolVar(&flags.testMode, "test-mode", false, "reproducible output: no file locations, sorted N-Triples only")
	fs.BoolVar(&flags.verbose, "verbose", false, "log progress to stderr")

	fs.Usage = func() {
		output := fs.Output()
		_, _ = fmt.Fprintf(output, "Usage: oasgraph validate [flags]\n\n")
		_, _ = fmt.Fprintf(output, "Load and validate an API description: the entry document plus every\n")
		_, _ = fmt.Fprintf(output, "document reached through its references. Each document's URI is either\n")
		_, _ = fmt.Fprintf(output, "given on the command line or derived from its location.\n\n")
		_, _ = fmt.Fprintf(output, "Flags:\n")
		fs.PrintDefaults()
		_, _ = fmt.Fprintf(output, "\nExamples:\n")
		_, _ = fmt.Fprintf(output, "  oasgraph validate -f openapi.yaml\n")
		_, _ = fmt.Fprintf(output, "  oasgraph validate -f 'openapi.yaml,https://example.com/apis/petstore' -o ttl\n")
		_, _ = fmt.Fprintf(output, "  oasgraph validate -d 'apis,https://example.com/apis/' -i https://example.com/apis/petstore\n")
	}

	return fs, flags
}

func handleValidate(args []string) error {
	fs, flags := setupValidateFlags()

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return err
	}
	if fs.NArg() != 0 {
		fs.Usage()
		return fmt.Errorf("validate takes no positional arguments, got %q", fs.Args())
	}
	if flags.initial == "" && len(flags.files) == 0 && len(flags.urls) == 0 {
		fs.Usage()
		return fmt.Errorf("no documents given: pass -f, -u, or -i with -d/-p")
	}

	logger := oasgraph.Logger(oasgraph.NopLogger{})
	if flags.verbose {
		logger = oasgraph.NewSlogAdapter(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	}

	ctx := context.Background()
	registry := source.NewRegistry(source.WithLogger(logger))
	cat := catalog.New(
		catalog.WithRegistry(registry),
		catalog.WithLogger(logger),
		catalog.WithSourceMaps(flags.numberLines),
	)

	dirSuffixes := splitSuffixes(flags.dirSuffixes)
	urlSuffixes := splitSuffixes(flags.urlSuffixes)
	strip := splitSuffixes(flags.stripSuffixes)

	for _, arg := range flags.dirs {
		dir, prefix, err := splitLocation(arg)
		if err != nil || prefix == "" {
			return fmt.Errorf("-d needs 'dir,uri-prefix', got %q", arg)
		}
		prefixURI, err := resourceid.Parse(prefix, resourceid.RuleURI)
		if err != nil {
			return err
		}
		if err := registry.AddSource(prefixURI, source.NewFileMultiSuffixSource(dir, dirSuffixes)); err != nil {
			return err
		}
	}
	for _, arg := range flags.urlPrefixes {
		urlPrefix, prefix, err := splitLocation(arg)
		if err != nil || prefix == "" {
			return fmt.Errorf("-p needs 'url-prefix,uri-prefix', got %q", arg)
		}
		base, err := resourceid.Parse(urlPrefix, resourceid.RuleURI)
		if err != nil {
			return err
		}
		prefixURI, err := resourceid.Parse(prefix, resourceid.RuleURI)
		if err != nil {
			return err
		}
		src := source.NewHTTPMultiSuffixSource(base, urlSuffixes, nil, oasgraph.UserAgent())
		if err := registry.AddSource(prefixURI, src); err != nil {
			return err
		}
	}

	var entry resourceid.Identifier
	for _, arg := range flags.files {
		path, uriArg, err := splitLocation(arg)
		if err != nil {
			return err
		}
		d, err := loadFileDocument(path, uriArg, strip)
		if err != nil {
			return err
		}
		cat.AddDocument(d)
		if entry.IsZero() {
			entry = d.URI()
		}
	}
	for _, arg := range flags.urls {
		url, uriArg, err := splitLocation(arg)
		if err != nil {
			return err
		}
		d, err := loadURLDocument(ctx, url, uriArg, strip)
		if err != nil {
			return err
		}
		cat.AddDocument(d)
		if entry.IsZero() {
			entry = d.URI()
		}
	}
	if flags.initial != "" {
		var err error
		entry, err = resourceid.Parse(flags.initial, resourceid.RuleURI)
		if err != nil {
			return err
		}
	}

	a, err := apidesc.New(ctx, cat, entry,
		apidesc.WithLogger(logger),
		apidesc.WithTestMode(flags.testMode),
		apidesc.WithSourceMaps(flags.numberLines),
		apidesc.WithValidateExamples(flags.examples),
	)
	if err != nil {
		return err
	}

	errs, fatal := a.Validate(ctx)
	if fatal != nil {
		return fatal
	}
	errs = append(errs, a.ValidateGraph()...)
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  - %v\n", e)
		}
		return fmt.Errorf("%d validation problem(s) found", len(errs))
	}

	if flags.output == "" {
		fmt.Println("API description is valid")
		return nil
	}
	format, err := serializer.ParseFormat(flags.output)
	if err != nil {
		return err
	}
	return a.Serialize(os.Stdout, format)
}

// splitLocation splits a repeatable flag value into its location and
// optional URI, separated by the first comma.
func splitLocation(arg string) (string, string, error) {
	location, uri, _ := strings.Cut(arg, ",")
	if location == "" {
		return "", "", fmt.Errorf("empty location in %q", arg)
	}
	return location, uri, nil
}

func splitSuffixes(arg string) []string {
	if arg == "" {
		return []string{}
	}
	return strings.Split(arg, ",")
}

func loadFileDocument(path, uriArg string, strip []string) (*catalog.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content, err := source.ParseContent(data, source.FormatForSuffix(filepath.Ext(path)))
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

	uri, err := documentURI(url, uriArg, strip)
	if err != nil {
		return nil, err
	}
	return catalog.NewDocument(content, uri)
}

func loadURLDocument(ctx context.Context, rawURL, uriArg string, strip []string) (*catalog.Document, error) {
	url, err := resourceid.Parse(rawURL, resourceid.RuleURI)
	if err != nil {
		return nil, err
	}
	// Fetch through an HTTP source rooted at the URL's directory so content
	// negotiation and format detection stay in one place.
	path := url.Path()
	slash := strings.LastIndex(path, "/")
	if slash < 0 {
		return nil, fmt.Errorf("URL <%s> has no path to load", rawURL)
	}
	base, err := url.CopyWith(resourceid.Parts{Path: resourceid.Set(path[:slash+1])})
	if err != nil {
		return nil, err
	}
	src := source.NewHTTPMultiSuffixSource(base, []string{}, nil, oasgraph.UserAgent())
	content, err := src.Load(ctx, path[slash+1:])
	if err != nil {
		return nil, err
	}

	uri, err := documentURI(url, uriArg, strip)
	if err != nil {
		return nil, err
	}
	return catalog.NewDocument(content, uri)
}

// documentURI returns the explicit URI when one was given, otherwise the
// document's URL with any configured suffix stripped.
func documentURI(url resourceid.Identifier, uriArg string, strip []string) (resourceid.Identifier, error) {
	if uriArg != "" {
		return resourceid.Parse(uriArg, resourceid.RuleURI)
	}
	s := url.String()
	for _, suffix := range strip {
		if strings.HasSuffix(s, suffix) {
			s = s[:len(s)-len(suffix)]
			break
		}
	}
	return resourceid.Parse(s, resourceid.RuleURI)
}
