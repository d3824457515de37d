package compiler

import (
	"fmt"

	"github.com/pegtool/pegc/runtime"
)

// Build constructs a live runtime.Rule table directly from rules,
// wiring the exact same combinators Compile would emit text for, but
// executing them in this process instead of generating source. It
// exists so the round-trip testable properties in spec §8 ("compile a
// grammar, then parse a sample it accepts") can be exercised without
// invoking a second Go compiler on Compile's output.
//
// Build supports every operator and structural handler. It cannot run
// a functional handler: a FuncHandler's body is opaque target-language
// source meant to be compiled, not interpreted, so a rule carrying one
// makes Build return an error. Such grammars can still be compiled
// with Compile and checked by inspecting the emitted source.
func Build(rules RuleSet) (map[string]runtime.Rule, string, error) {
	if len(rules.Order) == 0 {
		return nil, "", fmt.Errorf("compiler: rule set has no rules")
	}
	if err := validateHandlerPlacement(rules); err != nil {
		return nil, "", err
	}
	start := rules.Order[0]
	out := make(map[string]runtime.Rule, len(rules.Order))
	for _, name := range rules.Order {
		expr, ok := rules.Rules[name]
		if !ok {
			return nil, "", fmt.Errorf("compiler: rule %q listed in Order but not defined", name)
		}
		r, err := buildRule(expr, name)
		if err != nil {
			return nil, "", err
		}
		out[name] = r
	}
	return out, start, nil
}

// buildRule builds one named rule's top-level combinator, mirroring
// compileRule: a handler-less top-level choice wires each alternative's
// own handler; everything else wires at most the rule's own handler.
func buildRule(rule *Expr, ruleName string) (runtime.Rule, error) {
	if rule.Op == OpChoice && rule.Handler == nil {
		return buildChoiceRule(rule, ruleName)
	}
	body, err := buildOp(rule, ruleName, rule.Handler == nil)
	if err != nil {
		return nil, err
	}
	return applyHandler(rule, body, ruleName)
}

func buildChoiceRule(rule *Expr, ruleName string) (runtime.Rule, error) {
	alts := make([]runtime.Rule, len(rule.Kids))
	for i, alt := range rule.Kids {
		body, err := buildOp(alt, ruleName, alt.Handler == nil)
		if err != nil {
			return nil, err
		}
		r, err := applyHandler(alt, body, ruleName)
		if err != nil {
			return nil, err
		}
		alts[i] = r
	}
	return runtime.Choice(alts...), nil
}

// buildOp builds a plain child expression. Only buildRule and
// buildChoiceRule ever apply a node's own handler; buildOp mirrors
// compileOp/compileChildren in never doing so -- validateHandlerPlacement
// already guarantees nothing below a rule's root (or below a top-level
// choice's alternatives) carries one.
func buildOp(e *Expr, ruleName string, defaultHandler bool) (runtime.Rule, error) {
	switch e.Op {
	case OpLiteral:
		return runtime.Literal(e.Lit), nil
	case OpRegex:
		r := runtime.Regex(e.Lit)
		if defaultHandler {
			r = runtime.DefaultRegexTransform(r)
		}
		return r, nil
	case OpSeq:
		kids, err := buildChildren(e.Kids, ruleName, defaultHandler)
		if err != nil {
			return nil, err
		}
		return runtime.Sequence(kids...), nil
	case OpChoice:
		kids, err := buildChildren(e.Kids, ruleName, defaultHandler)
		if err != nil {
			return nil, err
		}
		return runtime.Choice(kids...), nil
	case OpStar:
		child, err := buildOp(e.Kids[0], ruleName, false)
		if err != nil {
			return nil, err
		}
		return runtime.ZeroOrMore(child), nil
	case OpPlus:
		child, err := buildOp(e.Kids[0], ruleName, false)
		if err != nil {
			return nil, err
		}
		return runtime.OneOrMore(child), nil
	case OpOpt:
		child, err := buildOp(e.Kids[0], ruleName, false)
		if err != nil {
			return nil, err
		}
		return runtime.Optional(child), nil
	case OpText:
		child, err := buildOp(e.Kids[0], ruleName, false)
		if err != nil {
			return nil, err
		}
		return runtime.TextCapture(child), nil
	case OpAnd:
		child, err := buildOp(e.Kids[0], ruleName, false)
		if err != nil {
			return nil, err
		}
		return runtime.And(child), nil
	case OpNot:
		child, err := buildOp(e.Kids[0], ruleName, false)
		if err != nil {
			return nil, err
		}
		return runtime.Not(child), nil
	case OpRef:
		return runtime.RuleRef(e.Lit), nil
	default:
		return nil, fmt.Errorf("compiler: rule %q: unknown operator %q", ruleName, e.Op)
	}
}

func buildChildren(kids []*Expr, ruleName string, defaultHandler bool) ([]runtime.Rule, error) {
	out := make([]runtime.Rule, len(kids))
	for i, k := range kids {
		r, err := buildOp(k, ruleName, defaultHandler)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func applyHandler(e *Expr, r runtime.Rule, ruleName string) (runtime.Rule, error) {
	h := e.Handler
	if h == nil {
		return r, nil
	}
	if h.hasFunc {
		return nil, fmt.Errorf("compiler: rule %q: functional handlers require Compile, not Build", ruleName)
	}
	single, offset := structuralShape(e.Op)
	mapping := h.Map
	return runtime.WithHandler(r, func(loc runtime.Loc, v0 any) any {
		return evalStructuralHandler(mapping, v0, single, offset)
	}), nil
}

// evalStructuralHandler is Build's runtime counterpart to
// compileStructuralHandler: instead of emitting Go source, it directly
// computes the rearranged value.
func evalStructuralHandler(mapping any, value any, single bool, offset int) any {
	switch m := mapping.(type) {
	case string:
		return m
	case int:
		if single {
			return value
		}
		arr := value.([]any)
		return arr[m+offset]
	case []any:
		out := make([]any, len(m))
		for i, sub := range m {
			out[i] = evalStructuralHandler(sub, value, single, offset)
		}
		return out
	default:
		return nil
	}
}
