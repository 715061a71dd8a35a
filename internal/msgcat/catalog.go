package msgcat

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages.en.yaml
var embedded []byte

// Catalog maps dotted keys ("quality.exact") to compiled text/templates.
// It is immutable once built.
type Catalog struct {
	templates map[string]*template.Template
}

// New compiles the embedded English messages, overridden by any *.yaml or
// *.yml files in dir. A key may be overridden by at most one file.
func New(dir string) (*Catalog, error) {
	sources, err := flatten(embedded)
	if err != nil {
		return nil, fmt.Errorf("embedded messages: %w", err)
	}
	if strings.TrimSpace(dir) != "" {
		overrides, err := readOverrides(dir)
		if err != nil {
			return nil, err
		}
		for k, v := range overrides {
			sources[k] = v
		}
	}

	c := &Catalog{templates: make(map[string]*template.Template, len(sources))}
	for key, src := range sources {
		tpl, err := template.New(key).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("message %s: %w", key, err)
		}
		c.templates[key] = tpl
	}
	return c, nil
}

func readOverrides(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read message dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			if !e.IsDir() {
				names = append(names, e.Name())
			}
		}
	}
	slices.Sort(names)

	out := make(map[string]string)
	origin := make(map[string]string)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		flat, err := flatten(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		for k, v := range flat {
			if first, dup := origin[k]; dup {
				return nil, fmt.Errorf("message %q overridden by both %s and %s", k, first, name)
			}
			origin[k] = name
			out[k] = v
		}
	}
	return out, nil
}

// flatten turns nested YAML mappings into dotted keys. Leaves must be
// strings.
func flatten(raw []byte) (map[string]string, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if len(doc.Content) == 0 {
		return out, nil
	}
	return out, walk(doc.Content[0], "", out)
}

func walk(n *yaml.Node, path string, out map[string]string) error {
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			if path != "" {
				key = path + "." + key
			}
			if err := walk(n.Content[i+1], key, out); err != nil {
				return err
			}
		}
		return nil
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return nil
		}
		if path == "" {
			return fmt.Errorf("line %d: message without a key", n.Line)
		}
		out[path] = n.Value
		return nil
	default:
		return fmt.Errorf("line %d: %s must be a string or mapping", n.Line, path)
	}
}

// Render executes the template under key. Unknown keys and missing data
// fields are errors.
func (c *Catalog) Render(key string, data any) (string, error) {
	tpl, ok := c.templates[strings.TrimSpace(key)]
	if !ok {
		return "", fmt.Errorf("message %q not found", key)
	}
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Text is Render that falls back to the key.
func (c *Catalog) Text(key string, data any) string {
	if c == nil {
		return key
	}
	out, err := c.Render(key, data)
	if err != nil {
		return key
	}
	return out
}
