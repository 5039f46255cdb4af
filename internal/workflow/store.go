package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/soyeahso/loom/internal/activation"
)

// Template is a named, reusable multi-agent run saved under the
// workflows directory as <name>.yaml.
type Template struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Agents      []string `yaml:"agents"`
	Mode        string   `yaml:"mode,omitempty"`
}

// Validate checks the template is runnable: a name, at least one
// agent, and a known coordination mode.
func (t Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("workflow name is required")
	}
	if strings.ContainsAny(t.Name, "/\\") {
		return fmt.Errorf("workflow name %q must not contain path separators", t.Name)
	}
	if len(t.Agents) == 0 {
		return fmt.Errorf("workflow %q has no agents", t.Name)
	}
	switch t.Mode {
	case "", activation.ModeSequential, activation.ModeParallel, activation.ModeChain, activation.ModeConversation:
		return nil
	default:
		return fmt.Errorf("workflow %q has unknown mode %q", t.Name, t.Mode)
	}
}

// Store persists workflow templates as YAML files in a directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the template to <dir>/<name>.yaml, creating the
// directory if needed. An existing template with the same name is
// replaced.
func (s *Store) Save(t Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(t.Name), data, 0o600)
}

// Load reads one template by name.
func (s *Store) Load(name string) (Template, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return Template{}, fmt.Errorf("workflow %q not found", name)
		}
		return Template{}, err
	}
	var t Template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Template{}, fmt.Errorf("failed to parse workflow %q: %w", name, err)
	}
	if t.Name == "" {
		t.Name = name
	}
	return t, nil
}

// List returns all saved templates sorted by name. A missing
// directory yields an empty slice.
func (s *Store) List() ([]Template, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Template{}, nil
		}
		return nil, err
	}

	templates := make([]Template, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		t, err := s.Load(strings.TrimSuffix(e.Name(), ".yaml"))
		if err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })
	return templates, nil
}

// Delete removes a saved template.
func (s *Store) Delete(name string) error {
	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("workflow %q not found", name)
		}
		return err
	}
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".yaml")
}
