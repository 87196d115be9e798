package conduittest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PentesterFlow/phabconduit/pkg/conduit"
)

// DecodeBrackets rebuilds a tree from bracket-named pairs the way PHP fills
// $_POST. Containers whose keys are exactly 0..n-1 become []any, other
// containers map[string]any, leaves string.
func DecodeBrackets(pairs []conduit.Pair) (any, error) {
	root := newNode()
	for _, p := range pairs {
		path, err := splitName(p.Name)
		if err != nil {
			return nil, err
		}
		n := root
		for i, seg := range path {
			if n.leaf != nil {
				return nil, fmt.Errorf("%q: %q is both a value and a container", p.Name, seg)
			}
			child, ok := n.children[seg]
			if !ok {
				child = newNode()
				n.children[seg] = child
				n.order = append(n.order, seg)
			}
			if i == len(path)-1 {
				if len(child.children) > 0 {
					return nil, fmt.Errorf("%q: value overwrites a container", p.Name)
				}
				v := p.Value
				child.leaf = &v
			}
			n = child
		}
	}
	return root.value(), nil
}

// Normalize turns a Param into the shape DecodeBrackets produces. Empty
// containers are dropped since they encode to nothing.
func Normalize(p conduit.Param) any {
	switch p.Kind() {
	case conduit.KindString:
		return p.Str()
	case conduit.KindList:
		out := make([]any, 0, p.Len())
		for _, item := range p.Items() {
			if v := Normalize(item); v != nil {
				out = append(out, v)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	case conduit.KindMap:
		out := make(map[string]any, p.Len())
		for _, f := range p.Fields() {
			if v := Normalize(f.Value); v != nil {
				out[f.Key] = v
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	default:
		return nil
	}
}

type node struct {
	leaf     *string
	children map[string]*node
	order    []string
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

func (n *node) value() any {
	if n.leaf != nil {
		return *n.leaf
	}
	if n.isList() {
		out := make([]any, len(n.order))
		for _, k := range n.order {
			i, _ := strconv.Atoi(k)
			out[i] = n.children[k].value()
		}
		return out
	}
	out := make(map[string]any, len(n.order))
	for _, k := range n.order {
		out[k] = n.children[k].value()
	}
	return out
}

func (n *node) isList() bool {
	if len(n.order) == 0 {
		return false
	}
	for _, k := range n.order {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(n.order) || strconv.Itoa(i) != k {
			return false
		}
	}
	return true
}

// splitName splits "a[b][0]" into ["a", "b", "0"].
func splitName(name string) ([]string, error) {
	base, rest, found := strings.Cut(name, "[")
	if base == "" {
		return nil, fmt.Errorf("%q: empty base name", name)
	}
	path := []string{base}
	if !found {
		return path, nil
	}
	rest = "[" + rest
	for rest != "" {
		if rest[0] != '[' {
			return nil, fmt.Errorf("%q: expected '['", name)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, fmt.Errorf("%q: unterminated bracket", name)
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	return path, nil
}
