// Package questions loads the interview question sets.
package questions

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Manty2503/demo-final/internal/errors"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

var (
	ErrInvalidCatalog = errors.NewSentinel("invalid question catalog")
	ErrUnknownSet     = errors.NewSentinel("unknown question set")
)

// Set is an ordered list of questions asked during one interview.
type Set struct {
	Name      string   `yaml:"name"`
	Topic     string   `yaml:"topic"`
	Questions []string `yaml:"questions"`
}

// Catalog holds the question sets available for interviews. The first set is the default.
type Catalog struct {
	Sets []Set `yaml:"sets"`
}

// Default returns the catalog bundled with the binary.
func Default() (Catalog, error) {
	catalog, err := Parse(defaultCatalog)
	if err != nil {
		return Catalog{}, errors.Wrap(err, "parse bundled catalog")
	}
	return catalog, nil
}

// LoadFile reads a catalog from a YAML file. An empty path returns the bundled catalog.
func LoadFile(path string) (Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, errors.Wrap(err, "read catalog", slog.String("path", path))
	}
	catalog, err := Parse(data)
	if err != nil {
		return Catalog{}, errors.Wrap(err, "parse catalog", slog.String("path", path))
	}
	return catalog, nil
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return Catalog{}, errors.Wrap(ErrInvalidCatalog, "unmarshal yaml", slog.String("cause", err.Error()))
	}
	if err := catalog.validate(); err != nil {
		return Catalog{}, err
	}
	return catalog, nil
}

func (c Catalog) validate() error {
	if len(c.Sets) == 0 {
		return errors.Wrap(ErrInvalidCatalog, "no question sets")
	}
	seen := make(map[string]bool, len(c.Sets))
	for i, set := range c.Sets {
		if set.Name == "" {
			return errors.Wrap(ErrInvalidCatalog, "set without name", slog.Int("index", i))
		}
		if seen[set.Name] {
			return errors.Wrap(ErrInvalidCatalog, "duplicate set name", slog.String("name", set.Name))
		}
		seen[set.Name] = true
		if set.Topic == "" {
			return errors.Wrap(ErrInvalidCatalog, "set without topic", slog.String("name", set.Name))
		}
		if len(set.Questions) == 0 {
			return errors.Wrap(ErrInvalidCatalog, "set without questions", slog.String("name", set.Name))
		}
		for j, q := range set.Questions {
			if strings.TrimSpace(q) == "" {
				return errors.Wrap(ErrInvalidCatalog, "empty question",
					slog.String("name", set.Name), slog.Int("index", j))
			}
		}
	}
	return nil
}

// Get returns the set with the given name. An empty name selects the default set.
func (c Catalog) Get(name string) (Set, error) {
	if name == "" && len(c.Sets) > 0 {
		return c.Sets[0], nil
	}
	for _, set := range c.Sets {
		if set.Name == name {
			return set, nil
		}
	}
	return Set{}, errors.Wrap(ErrUnknownSet, "get question set", slog.String("name", name))
}

// Instructions is the prompt that tells the realtime interviewer how to conduct the interview.
func (s Set) Instructions() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI interviewer. Your only job is to ask exactly %d technical questions "+
		"on the topic: %q.\n\n", len(s.Questions), s.Topic)
	b.WriteString("Ask these questions in this order, word for word:\n")
	for i, q := range s.Questions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, q)
	}
	b.WriteString(`
Rules:
- Ask one question at a time.
- Wait silently for my answer.
- Do not explain, evaluate, confirm or respond to my answers.
- Ask the next question only after I answer the current one.
- Speak and display only the question itself.
Begin now.`)
	return b.String()
}
