package expr

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/ngmigrate/errors"
)

// ToNode converts v to a yaml.v3 node tree. Strings are tagged !!str so the
// encoder quotes values such as "true" or "10" that would otherwise change type.
func ToNode(v Value) *yaml.Node {
	switch n := v.(type) {
	case String:
		node := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(n)}
		if strings.Contains(string(n), "\n") {
			node.Style = yaml.LiteralStyle
		}
		return node
	case List:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n {
			node.Content = append(node.Content, ToNode(item))
		}
		return node
	case Map:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, f := range n {
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.Key},
				ToNode(f.Value),
			)
		}
		return node
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// FromNode converts a yaml.v3 node tree. Every scalar becomes a String.
func FromNode(node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return Map{}, nil
		}
		return FromNode(node.Content[0])
	case yaml.AliasNode:
		return FromNode(node.Alias)
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			return String(""), nil
		}
		return String(node.Value), nil
	case yaml.SequenceNode:
		out := make(List, 0, len(node.Content))
		for _, c := range node.Content {
			v, err := FromNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		if len(node.Content)%2 != 0 {
			return nil, errors.Newf("line %d: malformed mapping", node.Line)
		}
		out := make(Map, 0, len(node.Content)/2)
		for i := 0; i < len(node.Content); i += 2 {
			k := node.Content[i]
			if k.Kind != yaml.ScalarNode {
				return nil, errors.Newf("line %d: mapping keys must be scalars", k.Line)
			}
			v, err := FromNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			out = append(out, Field{Key: k.Value, Value: v})
		}
		return out, nil
	}
	return nil, errors.Newf("line %d: unsupported yaml node kind %d", node.Line, node.Kind)
}

// Marshal serializes v as YAML with two-space indentation.
func Marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(ToNode(v)); err != nil {
		return nil, errors.Wrap(err, "encode document")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encode document")
	}
	return buf.Bytes(), nil
}

// Unmarshal parses YAML into a Value.
func Unmarshal(data []byte) (Value, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, errors.Wrap(err, "decode document")
	}
	if node.Kind == 0 {
		return Map{}, nil
	}
	return FromNode(&node)
}
