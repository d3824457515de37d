// Package yamlgrammar decodes a grammar description written in YAML
// into a compiler.RuleSet, the way ollama's skill loader decodes a
// JSON file into a SkillsFile before turning each entry into a runtime
// tool (see ollama's x/tools/skills.go): an external, hand-editable
// description format on one side, a small typed tree on the other, and
// a straightforward walk converting one into the other.
package yamlgrammar

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pegtool/pegc/compiler"
)

// A grammar YAML file has the shape:
//
//	start: document
//	rules:
//	  document:
//	    op: seq
//	    handler: {index: 2}
//	    kids:
//	      - {op: regex, pattern: '[ \t\r\n]*'}
//	      - {op: ref, name: value}
//	      - {op: regex, pattern: '[ \t\r\n]*'}
//
// Node is one YAML-described expression. Op selects which fields are
// meaningful, mirroring compiler.Op's tags.
type Node struct {
	Op      string   `yaml:"op"`
	Literal []string `yaml:"literal,omitempty"`
	Pattern string   `yaml:"pattern,omitempty"`
	Name    string   `yaml:"name,omitempty"`
	Kids    []Node   `yaml:"kids,omitempty"`
	Handler *Handler `yaml:"handler,omitempty"`
}

// Handler describes a rule or alternative's semantic action. Exactly
// one of Func, Index, Const, or List should be set; List lets a
// structural mapping nest arbitrarily deep, matching compiler.MapHandler.
type Handler struct {
	Func  string  `yaml:"func,omitempty"`
	Index *int    `yaml:"index,omitempty"`
	Const *string `yaml:"const,omitempty"`
	List  []Handler `yaml:"list,omitempty"`
}

func (h *Handler) toCompiler() (*compiler.Handler, error) {
	if h == nil {
		return nil, nil
	}
	if h.Func != "" {
		return compiler.FuncHandler(h.Func), nil
	}
	mapping, err := h.toMapping()
	if err != nil {
		return nil, err
	}
	return compiler.MapHandler(mapping), nil
}

func (h *Handler) toMapping() (any, error) {
	switch {
	case h.Index != nil:
		return *h.Index, nil
	case h.Const != nil:
		return *h.Const, nil
	case h.List != nil:
		out := make([]any, len(h.List))
		for i, sub := range h.List {
			m, err := sub.toMapping()
			if err != nil {
				return nil, err
			}
			out[i] = m
		}
		return out, nil
	default:
		return nil, fmt.Errorf("yamlgrammar: handler has none of func/index/const/list set")
	}
}

// Decode parses src and builds the equivalent compiler.RuleSet. Rules
// are defined in the order their keys appear in the YAML source (read
// via yaml.Node, since decoding straight into a Go map would lose that
// order), with the start rule moved to the front regardless of where
// it was written.
func Decode(src []byte) (compiler.RuleSet, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(src, &raw); err != nil {
		return compiler.RuleSet{}, fmt.Errorf("yamlgrammar: %w", err)
	}
	if raw.Start == "" {
		return compiler.RuleSet{}, fmt.Errorf("yamlgrammar: missing start rule")
	}

	rs := compiler.NewRuleSet()
	for _, name := range raw.Order {
		node, ok := raw.nodes[name]
		if !ok {
			return compiler.RuleSet{}, fmt.Errorf("yamlgrammar: rule %q listed in order but not defined", name)
		}
		expr, err := nodeToExpr(node)
		if err != nil {
			return compiler.RuleSet{}, fmt.Errorf("yamlgrammar: rule %q: %w", name, err)
		}
		rs.Define(name, expr)
	}
	if _, ok := rs.Rules[raw.Start]; !ok {
		return compiler.RuleSet{}, fmt.Errorf("yamlgrammar: start rule %q is not defined", raw.Start)
	}
	// Move the start rule to the front so RuleSet.Order[0] is correct
	// regardless of where it appeared in the YAML.
	reordered := compiler.NewRuleSet()
	reordered.Define(raw.Start, rs.Rules[raw.Start])
	for _, name := range rs.Order {
		if name == raw.Start {
			continue
		}
		reordered.Define(name, rs.Rules[name])
	}
	return *reordered, nil
}

// rawDocument decodes the grammar YAML shape shown above and keeps
// the rules mapping's key order (via yaml.Node), so Decode doesn't depend on
// Go map iteration order for which rule compiles first.
type rawDocument struct {
	Start string
	Order []string
	nodes map[string]Node
}

func (d *rawDocument) UnmarshalYAML(value *yaml.Node) error {
	var shape struct {
		Start string    `yaml:"start"`
		Rules yaml.Node `yaml:"rules"`
	}
	if err := value.Decode(&shape); err != nil {
		return err
	}
	d.Start = shape.Start
	d.nodes = map[string]Node{}
	if shape.Rules.Kind != yaml.MappingNode {
		return fmt.Errorf("rules must be a mapping")
	}
	for i := 0; i+1 < len(shape.Rules.Content); i += 2 {
		key := shape.Rules.Content[i].Value
		var n Node
		if err := shape.Rules.Content[i+1].Decode(&n); err != nil {
			return fmt.Errorf("rule %q: %w", key, err)
		}
		d.Order = append(d.Order, key)
		d.nodes[key] = n
	}
	return nil
}

func nodeToExpr(n Node) (*compiler.Expr, error) {
	var e *compiler.Expr

	switch n.Op {
	case "literal":
		if len(n.Literal) == 0 {
			return nil, fmt.Errorf("literal node requires at least one literal value")
		}
		e = compiler.Literal(n.Literal...)
	case "regex":
		if n.Pattern == "" {
			return nil, fmt.Errorf("regex node requires a pattern")
		}
		e = compiler.Rx(n.Pattern)
	case "ref":
		if n.Name == "" {
			return nil, fmt.Errorf("ref node requires a name")
		}
		e = compiler.Ref(n.Name)
	case "seq", "choice":
		kids, err := nodesToExprs(n.Kids)
		if err != nil {
			return nil, err
		}
		if n.Op == "seq" {
			e = compiler.Seq(kids...)
		} else {
			e = compiler.Choice(kids...)
		}
	case "star", "plus", "opt", "text", "and", "not":
		if len(n.Kids) != 1 {
			return nil, fmt.Errorf("%s node requires exactly one child", n.Op)
		}
		kid, err := nodeToExpr(n.Kids[0])
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case "star":
			e = compiler.Star(kid)
		case "plus":
			e = compiler.Plus(kid)
		case "opt":
			e = compiler.Opt(kid)
		case "text":
			e = compiler.Text(kid)
		case "and":
			e = compiler.And(kid)
		case "not":
			e = compiler.Not(kid)
		}
	default:
		return nil, fmt.Errorf("unknown op %q", n.Op)
	}

	h, err := n.Handler.toCompiler()
	if err != nil {
		return nil, err
	}
	if h != nil {
		e.WithHandler(h)
	}
	return e, nil
}

func nodesToExprs(ns []Node) ([]*compiler.Expr, error) {
	out := make([]*compiler.Expr, len(ns))
	for i, n := range ns {
		e, err := nodeToExpr(n)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}
