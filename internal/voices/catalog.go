package voices

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"dubber/internal/fallback"
	"dubber/internal/language"
	"dubber/internal/logging"
	"dubber/internal/services"
)

// ErrEmptyCatalog means a source answered with no voices.
var ErrEmptyCatalog = errors.New("voice catalog is empty")

// Catalog is a validated, ordered set of voices with a language lookup table.
type Catalog struct {
	voices     []Descriptor
	byLanguage map[language.Code][]Descriptor
}

// NewCatalog validates descriptors and builds the language table. Languages
// are normalized to ISO 639-1; unknown languages, empty IDs and duplicate IDs
// are rejected.
func NewCatalog(descs []Descriptor) (*Catalog, error) {
	c := &Catalog{byLanguage: make(map[language.Code][]Descriptor)}
	seen := make(map[string]struct{}, len(descs))
	for i, d := range descs {
		d.ID = strings.TrimSpace(d.ID)
		d.Name = strings.TrimSpace(d.Name)
		if d.ID == "" {
			return nil, fmt.Errorf("%w: voice %d has no id", services.ErrValidation, i)
		}
		if _, dup := seen[d.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate voice id %q", services.ErrValidation, d.ID)
		}
		seen[d.ID] = struct{}{}

		langs := make([]language.Code, 0, len(d.Languages))
		for _, raw := range d.Languages {
			code, err := language.Parse(string(raw))
			if err != nil {
				return nil, fmt.Errorf("voice %q: %w", d.ID, err)
			}
			if !slices.Contains(langs, code) {
				langs = append(langs, code)
			}
		}
		d.Languages = langs
		if d.Attributes != nil {
			attrs := make(map[string]string, len(d.Attributes))
			for k, v := range d.Attributes {
				attrs[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
			}
			d.Attributes = attrs
		}
		c.voices = append(c.voices, d)
		for _, code := range langs {
			c.byLanguage[code] = append(c.byLanguage[code], d)
		}
	}
	return c, nil
}

// Len returns the number of voices.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.voices)
}

// All returns the voices in catalog order.
func (c *Catalog) All() []Descriptor {
	if c == nil {
		return nil
	}
	return slices.Clone(c.voices)
}

// ForLanguage returns the voices declaring lang, in catalog order.
func (c *Catalog) ForLanguage(lang language.Code) []Descriptor {
	if c == nil {
		return nil
	}
	return slices.Clone(c.byLanguage[lang])
}

// Languages returns every declared language, sorted.
func (c *Catalog) Languages() []language.Code {
	if c == nil {
		return nil
	}
	out := make([]language.Code, 0, len(c.byLanguage))
	for code := range c.byLanguage {
		out = append(out, code)
	}
	slices.Sort(out)
	return out
}

type catalogFile struct {
	Voices []Descriptor `yaml:"voices"`
}

// ParseCatalog decodes a YAML or JSON voices document: either a list of
// descriptors or an object with a "voices" list.
func ParseCatalog(data []byte) ([]Descriptor, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	var node yaml.Node
	if err := yaml.Unmarshal(trimmed, &node); err != nil {
		return nil, fmt.Errorf("decode voices: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	root := node.Content[0]
	if root.Kind == yaml.SequenceNode {
		var list []Descriptor
		if err := root.Decode(&list); err != nil {
			return nil, fmt.Errorf("decode voices: %w", err)
		}
		return list, nil
	}
	var file catalogFile
	if err := root.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode voices: %w", err)
	}
	return file.Voices, nil
}

// Source supplies raw voice descriptors.
type Source interface {
	Voices(ctx context.Context) ([]Descriptor, error)
}

// FileSource reads descriptors from a YAML or JSON file.
type FileSource string

// Voices reads and parses the file.
func (f FileSource) Voices(context.Context) ([]Descriptor, error) {
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("read voices file: %w", err)
	}
	return ParseCatalog(data)
}

// Named pairs a source with the name reported in logs and outcomes.
type Named struct {
	Name    string
	Source  Source
	Timeout time.Duration
}

// Fetch builds a catalog from the first source that yields at least one
// voice. An empty answer counts as a failure. Every failure is logged.
func Fetch(ctx context.Context, logger *slog.Logger, sources ...Named) (*Catalog, string, error) {
	logger = logging.WithContext(ctx, logging.NewComponentLogger(logger, "voice-catalog"))
	strategies := make([]fallback.Strategy[*Catalog], 0, len(sources))
	for _, s := range sources {
		if s.Source == nil {
			continue
		}
		src := s.Source
		strategies = append(strategies, fallback.Strategy[*Catalog]{
			Name:    s.Name,
			Timeout: s.Timeout,
			Run: func(ctx context.Context) (*Catalog, error) {
				descs, err := src.Voices(ctx)
				if err != nil {
					return nil, err
				}
				return NewCatalog(descs)
			},
			Reject: func(c *Catalog) error {
				if c.Len() == 0 {
					return ErrEmptyCatalog
				}
				return nil
			},
		})
	}
	outcome, err := fallback.FirstSuccess(ctx, strategies...)
	for _, f := range outcome.Failures {
		logging.WarnWithContext(logger, "voice catalog source failed", "voice_catalog_failed",
			logging.String("source", f.Strategy),
			logging.Error(f.Err),
			logging.String(logging.FieldErrorHint, "check tts credentials or the voices file"),
		)
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", err
		}
		return nil, "", services.Wrap(services.ErrExternalService, "match", "catalog", "voice matching unavailable", err)
	}
	logger.Info("voice catalog loaded",
		logging.String("source", outcome.Winner),
		logging.Int("voices", outcome.Value.Len()),
	)
	return outcome.Value, outcome.Winner, nil
}
