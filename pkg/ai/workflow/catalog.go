package workflow

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"ai-screenwriting-be/pkg/store"

	"gopkg.in/yaml.v3"
)

//go:embed interviews.yaml
var defaultCatalog []byte

var (
	// ErrUnknownEntityType is returned when no interview is configured for an entity type.
	ErrUnknownEntityType = errors.New("unknown entity type")
	// ErrInvalidAnswer is wrapped by Step.Validate.
	ErrInvalidAnswer = errors.New("invalid answer")
	// ErrNoWorkflow is returned when an answer arrives while no interview is running.
	ErrNoWorkflow = errors.New("no workflow running")
)

// Step is one interview question and the shape its answer must have.
type Step struct {
	Key       string   `yaml:"key" json:"key"`
	Question  string   `yaml:"question" json:"question"`
	Required  bool     `yaml:"required" json:"required"`
	MinLength int      `yaml:"min_length" json:"min_length,omitempty"`
	MaxLength int      `yaml:"max_length" json:"max_length,omitempty"`
	Choices   []string `yaml:"choices" json:"choices,omitempty"`
}

// Validate checks a trimmed answer. Free text is accepted unless the step restricts it.
func (s Step) Validate(answer string) error {
	if answer == "" {
		if s.Required {
			return fmt.Errorf("%w: an answer is required", ErrInvalidAnswer)
		}
		return nil
	}
	n := utf8.RuneCountInString(answer)
	if s.MinLength > 0 && n < s.MinLength {
		return fmt.Errorf("%w: use at least %d characters", ErrInvalidAnswer, s.MinLength)
	}
	if s.MaxLength > 0 && n > s.MaxLength {
		return fmt.Errorf("%w: keep it under %d characters", ErrInvalidAnswer, s.MaxLength)
	}
	if len(s.Choices) > 0 && !slices.ContainsFunc(s.Choices, func(c string) bool {
		return strings.EqualFold(c, answer)
	}) {
		return fmt.Errorf("%w: choose one of %s", ErrInvalidAnswer, strings.Join(s.Choices, ", "))
	}
	return nil
}

// Interview is the ordered question list for one entity kind.
type Interview struct {
	Kind        store.EntityType `yaml:"-" json:"kind"`
	Intro       string           `yaml:"intro" json:"intro"`
	Placeholder string           `yaml:"placeholder" json:"placeholder"`
	Steps       []Step           `yaml:"steps" json:"steps"`
}

// Catalog holds the configured interviews keyed by entity kind.
type Catalog struct {
	interviews map[store.EntityType]Interview
}

type catalogFile struct {
	Interviews map[store.EntityType]Interview `yaml:"interviews"`
}

// LoadCatalog reads the interview catalog from path, or the built-in catalog when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read interview catalog: %w", err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded interview catalog: %v", err))
	}
	return c
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse interview catalog: %w", err)
	}

	c := &Catalog{interviews: make(map[store.EntityType]Interview, len(file.Interviews))}
	for kind, iv := range file.Interviews {
		switch kind {
		case store.EntityCharacter, store.EntityLocation, store.EntityScene:
		default:
			return nil, fmt.Errorf("parse interview catalog: %w: %q", ErrUnknownEntityType, kind)
		}
		if len(iv.Steps) == 0 {
			return nil, fmt.Errorf("parse interview catalog: %s has no steps", kind)
		}
		seen := make(map[string]bool, len(iv.Steps))
		for i, step := range iv.Steps {
			if step.Key == "" || step.Question == "" {
				return nil, fmt.Errorf("parse interview catalog: %s step %d needs key and question", kind, i)
			}
			if seen[step.Key] {
				return nil, fmt.Errorf("parse interview catalog: %s repeats key %q", kind, step.Key)
			}
			seen[step.Key] = true
		}
		iv.Kind = kind
		c.interviews[kind] = iv
	}
	return c, nil
}

// Lookup returns the interview for kind.
func (c *Catalog) Lookup(kind store.EntityType) (Interview, error) {
	iv, ok := c.interviews[kind]
	if !ok {
		return Interview{}, fmt.Errorf("%w: %q", ErrUnknownEntityType, kind)
	}
	return iv, nil
}

// Interviews lists the configured interviews ordered by kind.
func (c *Catalog) Interviews() []Interview {
	out := make([]Interview, 0, len(c.interviews))
	for _, iv := range c.interviews {
		out = append(out, iv)
	}
	slices.SortFunc(out, func(a, b Interview) int {
		return strings.Compare(string(a.Kind), string(b.Kind))
	})
	return out
}
