package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// envExpander substitutes ${VAR} and ${VAR:-fallback} references in YAML
// string scalars and records variables that were unset without a fallback.
type envExpander struct {
	lookup  func(string) (string, bool)
	missing map[string]struct{}
}

func expandConfigEnv(raw []byte) (string, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return "", nil, fmt.Errorf("parse config: %w", err)
	}

	x := &envExpander{lookup: os.LookupEnv, missing: make(map[string]struct{})}
	x.walk(&root)

	out, err := yaml.Marshal(&root)
	if err != nil {
		return "", nil, fmt.Errorf("encode expanded config: %w", err)
	}
	missing := make([]string, 0, len(x.missing))
	for name := range x.missing {
		missing = append(missing, name)
	}
	slices.Sort(missing)
	if len(missing) == 0 {
		missing = nil
	}
	return string(out), missing, nil
}

func (x *envExpander) walk(node *yaml.Node) {
	switch node.Kind {
	case yaml.ScalarNode:
		x.scalar(node)
	case yaml.MappingNode:
		// keys are left alone
		for i := 1; i < len(node.Content); i += 2 {
			x.walk(node.Content[i])
		}
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range node.Content {
			x.walk(child)
		}
	}
}

func (x *envExpander) scalar(node *yaml.Node) {
	if node.Tag != "" && node.Tag != "!!str" {
		return
	}
	if !strings.Contains(node.Value, "$") {
		return
	}
	value := os.Expand(node.Value, x.resolve)
	if value == node.Value {
		return
	}
	node.Value = value
	if node.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle|yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		node.Tag = "!!str"
		return
	}
	node.Tag = resolvedTag(value)
}

func (x *envExpander) resolve(ref string) string {
	name, fallback, hasFallback := strings.Cut(ref, ":-")
	value, ok := x.lookup(name)
	switch {
	case ok && value != "":
		return value
	case hasFallback:
		return fallback
	case !ok:
		x.missing[name] = struct{}{}
	}
	return ""
}

// resolvedTag is the tag YAML would give value written as a plain scalar.
func resolvedTag(value string) string {
	if strings.TrimSpace(value) == "" {
		return "!!str"
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(value), &doc); err != nil || len(doc.Content) != 1 {
		return "!!str"
	}
	inner := doc.Content[0]
	if inner.Kind != yaml.ScalarNode {
		return "!!str"
	}
	return inner.ShortTag()
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
