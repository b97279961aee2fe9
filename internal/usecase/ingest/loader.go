package ingest

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/policysage/policysage-api/internal/database"
	"github.com/policysage/policysage-api/internal/database/models"
	"github.com/policysage/policysage-api/internal/domain/model"
	"github.com/policysage/policysage-api/internal/domain/repository"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// PolicyFile is the on-disk shape of one source document. JSON files are
// read through the same YAML decoder.
type PolicyFile struct {
	Document string         `yaml:"document"`
	Records  []PolicyRecord `yaml:"records"`
}

type PolicyRecord struct {
	ID         string         `yaml:"id"`
	Related    *RelatedEntry  `yaml:"related,omitempty"`
	Properties map[string]any `yaml:",inline"`
}

type RelatedEntry struct {
	Type string `yaml:"type"`
	Name string `yaml:"name"`
}

// Result reports what happened to one input file.
type Result struct {
	Path     string
	Document string
	Records  int
	Skipped  bool
	Replaced bool
}

// Loader loads policy files into the graph and tracks them in the registry.
type Loader struct {
	graph       repository.GraphWriter
	registry    database.DocumentRegistry
	profile     model.Profile
	concurrency int
}

func NewLoader(graph repository.GraphWriter, registry database.DocumentRegistry, profile model.Profile, concurrency int) *Loader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Loader{graph: graph, registry: registry, profile: profile, concurrency: concurrency}
}

type parsedFile struct {
	path string
	hash []byte
	file PolicyFile
}

// LoadFiles parses paths concurrently, then writes them to the graph in input
// order. Files whose content hash is already registered are skipped. A file
// whose document name is registered under a different hash replaces the old
// graph data.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) ([]Result, error) {
	parsed := make([]parsedFile, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pf, err := parseFile(path)
			if err != nil {
				return err
			}
			parsed[i] = pf
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(parsed))
	for _, pf := range parsed {
		res, err := l.load(ctx, pf)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (l *Loader) load(ctx context.Context, pf parsedFile) (Result, error) {
	res := Result{Path: pf.path, Document: pf.file.Document, Records: len(pf.file.Records)}

	if _, err := l.registry.GetDocumentByHash(ctx, pf.hash); err == nil {
		log.Printf("[Ingest] Skipping %s: %s already loaded", pf.path, pf.file.Document)
		res.Skipped = true
		return res, nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return res, fmt.Errorf("registry lookup failed for %s: %w", pf.path, err)
	}

	doc, err := l.registry.GetDocumentByName(ctx, pf.file.Document)
	switch {
	case err == nil:
		log.Printf("[Ingest] %s changed, replacing graph data for %s", pf.path, doc.Name)
		if err := l.graph.DeleteDocument(ctx, doc.Name); err != nil {
			return res, err
		}
		res.Replaced = true
	case errors.Is(err, database.ErrNotFound):
		doc = &models.SourceDocument{}
	default:
		return res, fmt.Errorf("registry lookup failed for %s: %w", pf.path, err)
	}

	records, err := toRecords(pf.file.Records)
	if err != nil {
		return res, fmt.Errorf("%s: %w", pf.path, err)
	}
	if err := l.graph.UpsertRecords(ctx, pf.file.Document, records); err != nil {
		return res, err
	}

	doc.FileHash = pf.hash
	doc.Name = pf.file.Document
	doc.FilePath = pf.path
	doc.Profile = l.profile.Name
	doc.RecordCount = len(records)
	if err := l.registry.SaveDocument(ctx, doc); err != nil {
		return res, fmt.Errorf("failed to register %s: %w", pf.file.Document, err)
	}

	log.Printf("[Ingest] Loaded %s (%d records) from %s", pf.file.Document, len(records), pf.path)
	return res, nil
}

func parseFile(path string) (parsedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return parsedFile{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	sum := sha256.Sum256(data)

	var pf PolicyFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return parsedFile{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if strings.TrimSpace(pf.Document) == "" {
		pf.Document = filepath.Base(path)
	}
	return parsedFile{path: path, hash: sum[:], file: pf}, nil
}

func toRecords(entries []PolicyRecord) ([]repository.Record, error) {
	records := make([]repository.Record, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("record %d: id is required", i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("record %s: duplicate id", e.ID)
		}
		seen[e.ID] = true

		props := make(map[string]any, len(e.Properties))
		for k, v := range e.Properties {
			value, err := propertyValue(v)
			if err != nil {
				return nil, fmt.Errorf("record %s: property %s: %w", e.ID, k, err)
			}
			props[k] = value
		}

		rec := repository.Record{ID: e.ID, Properties: props}
		if e.Related != nil && e.Related.Name != "" {
			rec.Related = &repository.RelatedRecord{Type: e.Related.Type, Name: e.Related.Name}
		}
		records = append(records, rec)
	}
	return records, nil
}

// propertyValue flattens lists (e.g. keywords) into a comma separated string
// so every stored attribute stays searchable as text.
func propertyValue(v any) (any, error) {
	switch val := v.(type) {
	case string, bool, int, int64, float64:
		return val, nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", "), nil
	case nil:
		return "", nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// ExpandPaths resolves directories to the .yaml, .yml and .json files they
// contain. Plain file arguments are kept as given.
func ExpandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			switch strings.ToLower(filepath.Ext(e.Name())) {
			case ".yaml", ".yml", ".json":
				found = append(found, filepath.Join(arg, e.Name()))
			}
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}
