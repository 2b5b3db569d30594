package catalog

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// expandConfigEnv expands ${VAR} references in every string scalar of the
// document before it is decoded. Unset variables expand to the empty string
// and are reported so the loader can warn about them. Only the braced form
// is expanded: bare $name and positional $1 statement placeholders stay
// literal.
func expandConfigEnv(raw []byte) (string, []string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(raw, &root); err != nil {
		return "", nil, fmt.Errorf("parse config: %w", err)
	}

	missing := make(map[string]struct{})
	walkScalars(&root, func(node *yaml.Node) {
		expandScalarEnv(node, missing)
	})

	expanded, err := yaml.Marshal(&root)
	if err != nil {
		return "", nil, fmt.Errorf("encode expanded config: %w", err)
	}

	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	sort.Strings(names)
	return string(expanded), names, nil
}

func walkScalars(node *yaml.Node, visit func(*yaml.Node)) {
	switch node.Kind {
	case yaml.ScalarNode:
		visit(node)
	case yaml.MappingNode:
		// Only values are expanded; keys stay literal.
		for i := 1; i < len(node.Content); i += 2 {
			walkScalars(node.Content[i], visit)
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			walkScalars(node.Alias, visit)
		}
	default:
		for _, child := range node.Content {
			walkScalars(child, visit)
		}
	}
}

func expandScalarEnv(node *yaml.Node, missing map[string]struct{}) {
	if node.Tag != "" && node.Tag != "!!str" {
		return
	}
	if !strings.Contains(node.Value, "${") {
		return
	}

	expanded := expandBraced(node.Value, missing)
	if expanded == node.Value {
		return
	}

	// A quoted scalar stays a string. An unquoted one may resolve to a
	// number or bool (e.g. port: ${DB_PORT}), so retag accordingly.
	if node.Style != 0 {
		node.Tag = "!!str"
		node.Value = expanded
		return
	}
	node.Tag, node.Value = retagScalar(expanded)
}

// expandBraced substitutes ${VAR} references with the variable's value.
// Unterminated or empty braces pass through unchanged.
func expandBraced(value string, missing map[string]struct{}) string {
	var out strings.Builder
	for {
		start := strings.Index(value, "${")
		if start < 0 {
			out.WriteString(value)
			return out.String()
		}
		length := strings.Index(value[start:], "}")
		if length < 0 {
			out.WriteString(value)
			return out.String()
		}
		name := value[start+2 : start+length]
		if name == "" {
			out.WriteString(value[:start+length+1])
			value = value[start+length+1:]
			continue
		}
		out.WriteString(value[:start])
		if val, ok := os.LookupEnv(name); ok {
			out.WriteString(val)
		} else {
			missing[name] = struct{}{}
		}
		value = value[start+length+1:]
	}
}

func retagScalar(value string) (string, string) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "!!str", value
	}
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return "!!int", strconv.FormatInt(n, 10)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return "!!float", strconv.FormatFloat(f, 'f', -1, 64)
	}
	if b, err := strconv.ParseBool(trimmed); err == nil {
		return "!!bool", strconv.FormatBool(b)
	}
	return "!!str", value
}
