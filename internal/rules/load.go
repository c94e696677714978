package rules

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dwsmith1983/guardian/internal/fetch"
	"github.com/dwsmith1983/guardian/pkg/types"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// EmbeddedSource names the built-in default catalog.
const EmbeddedSource = "embedded:defaults.yaml"

// Source selects where a catalog is loaded from. URL takes precedence over
// Path; with neither set the embedded defaults are used.
type Source struct {
	Path     string // YAML/JSON file or directory of YAML files
	URL      string // remote YAML/JSON document
	TextPath string // optional plain-text step overlay, see ParseText
	Timeout  time.Duration

	// Fallback substitutes the embedded defaults when the configured source
	// fails. The substitution is logged and the catalog reports Degraded.
	Fallback bool

	Client *fetch.Client
	Logger *slog.Logger
}

// Load builds a validated catalog from src. Failures are *RuleSourceError.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	logger := src.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cat, err := load(ctx, src)
	if err == nil {
		return cat, nil
	}
	if !src.Fallback {
		return nil, err
	}

	logger.Warn("rule source unavailable, using embedded defaults",
		"degraded", true,
		"source", src.name(),
		"error", err,
	)
	cat = Defaults()
	cat.degraded = true
	return cat, nil
}

func load(ctx context.Context, src Source) (*Catalog, error) {
	var (
		doc types.RuleDocument
		err error
	)
	switch {
	case src.URL != "":
		doc, err = fetchDocument(ctx, src)
	case src.Path != "":
		doc, err = readPath(src.Path)
	default:
		doc, err = decode(defaultsYAML)
	}
	if err != nil {
		return nil, sourceErr(src.name(), err)
	}

	if src.TextPath != "" {
		f, err := os.Open(src.TextPath)
		if err != nil {
			return nil, sourceErr(src.TextPath, fmt.Errorf("opening rule text: %w", err))
		}
		steps, err := ParseText(f)
		_ = f.Close()
		if err != nil {
			return nil, sourceErr(src.TextPath, err)
		}
		doc = Overlay(doc, steps)
	}

	cat, err := New(doc)
	if err != nil {
		var rse *RuleSourceError
		if errors.As(err, &rse) {
			rse.Source = src.name()
		}
		return nil, err
	}
	cat.source = src.name()
	return cat, nil
}

func (s Source) name() string {
	switch {
	case s.URL != "":
		return s.URL
	case s.Path != "":
		return s.Path
	default:
		return EmbeddedSource
	}
}

// Defaults returns the embedded default catalog.
func Defaults() *Catalog {
	doc, err := decode(defaultsYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rule defaults: %v", err))
	}
	cat, err := New(doc)
	if err != nil {
		panic(fmt.Sprintf("embedded rule defaults: %v", err))
	}
	cat.source = EmbeddedSource
	return cat
}

// DefaultDocument returns the raw embedded defaults, for scaffolding.
func DefaultDocument() []byte {
	return append([]byte(nil), defaultsYAML...)
}

func fetchDocument(ctx context.Context, src Source) (types.RuleDocument, error) {
	client := src.Client
	if client == nil {
		client = fetch.New("rules", fetch.WithTimeout(src.Timeout), fetch.WithLogger(src.Logger))
	}
	body, err := client.Get(ctx, src.URL, nil)
	if err != nil {
		return types.RuleDocument{}, fmt.Errorf("fetching rules: %w", err)
	}
	return decode(body)
}

func readPath(path string) (types.RuleDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.RuleDocument{}, fmt.Errorf("reading rules: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

// LoadDir merges every YAML/JSON rule file in dir, in lexical order. Later
// files override keys set by earlier ones.
func LoadDir(dir string) (types.RuleDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return types.RuleDocument{}, fmt.Errorf("reading rules dir %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") && !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) == 0 {
		return types.RuleDocument{}, fmt.Errorf("no rule files in %s", dir)
	}

	var merged types.RuleDocument
	for _, name := range names {
		path := filepath.Join(dir, name)
		doc, err := LoadFile(path)
		if err != nil {
			return types.RuleDocument{}, fmt.Errorf("loading rules %s: %w", path, err)
		}
		merged = Merge(merged, doc)
	}
	return merged, nil
}

// LoadFile reads a single YAML or JSON rule document.
func LoadFile(path string) (types.RuleDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.RuleDocument{}, fmt.Errorf("reading file: %w", err)
	}
	return decode(data)
}

func decode(data []byte) (types.RuleDocument, error) {
	var doc types.RuleDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return types.RuleDocument{}, fmt.Errorf("parsing rules: %w", err)
	}
	return doc, nil
}

// Merge overlays top onto base. Map entries in top replace those in base;
// scalar and list fields in top replace base when set.
func Merge(base, top types.RuleDocument) types.RuleDocument {
	out := base
	if top.Name != "" {
		out.Name = top.Name
	}
	if len(top.SLA) > 0 {
		m := make(map[types.Priority]types.SLATarget, len(base.SLA)+len(top.SLA))
		for k, v := range base.SLA {
			m[k] = v
		}
		for k, v := range top.SLA {
			m[k] = v
		}
		out.SLA = m
	}
	if len(top.RequiredSteps) > 0 {
		out.RequiredSteps = Overlay(base, top.RequiredSteps).RequiredSteps
	}
	if len(top.RequiredApprovals) > 0 {
		m := make(map[types.ChangeType][]string, len(base.RequiredApprovals)+len(top.RequiredApprovals))
		for k, v := range base.RequiredApprovals {
			m[k] = v
		}
		for k, v := range top.RequiredApprovals {
			m[k] = v
		}
		out.RequiredApprovals = m
	}
	if top.MaxReassignments != nil {
		v := *top.MaxReassignments
		out.MaxReassignments = &v
	}
	if top.KBRequiredPriorities != nil {
		out.KBRequiredPriorities = append([]types.Priority(nil), top.KBRequiredPriorities...)
	}
	if top.TestingRequiredRiskLevels != nil {
		out.TestingRequiredRiskLevels = append([]types.RiskLevel(nil), top.TestingRequiredRiskLevels...)
	}
	return out
}

// Overlay returns a copy of doc whose step lists are replaced by steps.
// Categories match case-insensitively; unmatched categories are added.
func Overlay(doc types.RuleDocument, steps map[string][]string) types.RuleDocument {
	out := doc
	out.RequiredSteps = make(map[string][]string, len(doc.RequiredSteps)+len(steps))
	byKey := make(map[string]string, len(doc.RequiredSteps))
	for k, v := range doc.RequiredSteps {
		out.RequiredSteps[k] = append([]string(nil), v...)
		byKey[CategoryKey(k)] = k
	}
	for k, v := range steps {
		if existing, ok := byKey[CategoryKey(k)]; ok {
			delete(out.RequiredSteps, existing)
		}
		out.RequiredSteps[k] = append([]string(nil), v...)
		byKey[CategoryKey(k)] = k
	}
	return out
}
