package compiler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// compileOp walks one AST node and returns a Go expression -- written
// against the unqualified identifiers runtime.go exports, since the
// compiled artifact literally contains that file's body under its own
// package clause (see Compile) -- evaluating to a Rule.
//
// defaultHandler mirrors spec §4.2.1: it starts true at the top of any
// rule/alternative with no explicit handler, so a bare regex node
// reduces its match-array value down to the full-match string. It does
// NOT propagate through *, +, ?, $, &, ! (spec §4.2.1/§9, intentional
// bug-for-bug compatibility with the source this was distilled from).
func compileOp(ctx *context, e *Expr, ruleName string, defaultHandler bool) (string, error) {
	switch e.Op {
	case OpLiteral:
		i := ctx.internLiteral(e.Lit)
		return fmt.Sprintf("strDef%d", i), nil

	case OpRegex:
		i := ctx.internRegex(e.Lit)
		ref := fmt.Sprintf("reDef%d", i)
		if defaultHandler {
			return fmt.Sprintf("DefaultRegexTransform(%s)", ref), nil
		}
		return ref, nil

	case OpSeq:
		parts, err := compileChildren(ctx, e.Kids, ruleName, defaultHandler)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Sequence(%s)", strings.Join(parts, ", ")), nil

	case OpChoice:
		parts, err := compileChildren(ctx, e.Kids, ruleName, defaultHandler)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Choice(%s)", strings.Join(parts, ", ")), nil

	case OpStar:
		child, err := compileOp(ctx, e.Kids[0], ruleName, false)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("ZeroOrMore(%s)", child), nil

	case OpPlus:
		child, err := compileOp(ctx, e.Kids[0], ruleName, false)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("OneOrMore(%s)", child), nil

	case OpOpt:
		child, err := compileOp(ctx, e.Kids[0], ruleName, false)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Optional(%s)", child), nil

	case OpText:
		child, err := compileOp(ctx, e.Kids[0], ruleName, false)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("TextCapture(%s)", child), nil

	case OpAnd:
		child, err := compileOp(ctx, e.Kids[0], ruleName, false)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("And(%s)", child), nil

	case OpNot:
		child, err := compileOp(ctx, e.Kids[0], ruleName, false)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Not(%s)", child), nil

	case OpRef:
		return fmt.Sprintf("RuleRef(%s)", strconv.Quote(e.Lit)), nil

	default:
		return "", fmt.Errorf("compiler: rule %q: unknown operator %q", ruleName, e.Op)
	}
}

func compileChildren(ctx *context, kids []*Expr, ruleName string, defaultHandler bool) ([]string, error) {
	out := make([]string, len(kids))
	for i, k := range kids {
		s, err := compileOp(ctx, k, ruleName, defaultHandler)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// compileHandler wraps childSrc (already-compiled Go expression for e
// itself, minus any handler) with e.Handler, if present.
func compileHandler(e *Expr, childSrc string, ruleName string) (string, error) {
	h := e.Handler
	if h == nil {
		return childSrc, nil
	}
	if h.hasFunc {
		return compileFunctionalHandler(e, childSrc), nil
	}
	if h.hasMap {
		single, offset := structuralShape(e.Op)
		body, err := compileStructuralHandler(h.Map, "v0", single, offset)
		if err != nil {
			return "", fmt.Errorf("compiler: rule %q: %w", ruleName, err)
		}
		return fmt.Sprintf("WithHandler(%s, func(loc Loc, v0 any) any {\n\t\treturn %s\n\t})", childSrc, body), nil
	}
	return childSrc, nil
}

// structuralShape returns the single/offset convention for a node's
// captured-value shape (spec §4.2.2): a sequence's array is 1-indexed
// for its elements via offset -1, a regex match array keeps its
// 0-indexed full-match-at-0 convention via offset 0, and every other
// (scalar) shape collapses any numeric selector to the value itself.
func structuralShape(op Op) (single bool, offset int) {
	switch op {
	case OpSeq:
		return false, -1
	case OpRegex:
		return false, 0
	default:
		return true, 0
	}
}

// compileStructuralHandler recursively compiles a structural mapping
// (spec §4.2.2/§3.2) into a Go expression reading from source, the
// local variable holding the node's raw captured value.
func compileStructuralHandler(mapping any, source string, single bool, offset int) (string, error) {
	switch m := mapping.(type) {
	case string:
		return strconv.Quote(m), nil
	case int:
		if single {
			return source, nil
		}
		return fmt.Sprintf("%s.([]any)[%d]", source, m+offset), nil
	case []any:
		parts := make([]string, len(m))
		for i, sub := range m {
			s, err := compileStructuralHandler(sub, source, single, offset)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[]any{" + strings.Join(parts, ", ") + "}", nil
	default:
		return "", fmt.Errorf("unsupported structural handler mapping %#v (%T)", mapping, mapping)
	}
}

// compileFunctionalHandler wraps childSrc in a WithHandler call whose
// closure destructures the raw captured value into loc, v0, v1, ... per
// spec §4.2.2's per-operator parameter shapes, then splices in the
// (opaque, pre-written) Go function body verbatim.
func compileFunctionalHandler(e *Expr, childSrc string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "WithHandler(%s, func(loc Loc, v0 any) any {\n", childSrc)
	switch e.Op {
	case OpSeq:
		n := len(e.Kids)
		b.WriteString("\t\targ := v0.([]any)\n")
		for i := 1; i <= n; i++ {
			fmt.Fprintf(&b, "\t\tv%d := arg[%d]\n\t\t_ = v%d\n", i, i-1, i)
		}
	case OpRegex:
		b.WriteString("\t\tgroups := v0.([]any)\n")
		b.WriteString("\t\tgroup := func(i int) any {\n\t\t\tif i < len(groups) {\n\t\t\t\treturn groups[i]\n\t\t\t}\n\t\t\treturn nil\n\t\t}\n")
		b.WriteString("\t\tv0 = group(0)\n")
		for i := 1; i <= 9; i++ {
			fmt.Fprintf(&b, "\t\tv%d := group(%d)\n\t\t_ = v%d\n", i, i, i)
		}
	default:
		b.WriteString("\t\tv1 := v0\n\t\t_ = v1\n")
	}
	b.WriteString("\t\t" + strings.TrimSpace(e.Handler.Func) + "\n")
	b.WriteString("\t})")
	return b.String()
}

var identSanitizer = regexp.MustCompile(`[^A-Za-z0-9_]`)

// goIdent turns a grammar rule name into a legal Go identifier for its
// compiled function, prefixed with "Rule_" to keep it apart from the
// runtime's own identifiers. Every character outside [A-Za-z0-9_]
// becomes "_", so names that differ only in such characters map to the
// same identifier.
func goIdent(name string) string {
	safe := identSanitizer.ReplaceAllString(name, "_")
	if safe == "" || (safe[0] >= '0' && safe[0] <= '9') {
		safe = "_" + safe
	}
	return "Rule_" + safe
}

// compileRule emits the Go function(s) for one named rule (spec
// §4.2.3). A top-level, handler-less ordered choice is the one case
// where alternatives carry their own handlers directly, each compiled
// as its own named function.
func compileRule(ctx *context, name string, rule *Expr) (string, error) {
	ident := goIdent(name)
	if rule.Op == OpChoice && rule.Handler == nil {
		return compileChoiceRule(ctx, name, ident, rule)
	}
	return compileSimpleRule(ctx, name, ident, rule)
}

func compileSimpleRule(ctx *context, name, ident string, rule *Expr) (string, error) {
	body, err := compileOp(ctx, rule, name, rule.Handler == nil)
	if err != nil {
		return "", err
	}
	full, err := compileHandler(rule, body, name)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("func %s(p *Parser, s ParseState) (ParseResult, bool) {\n\treturn (%s)(p, s)\n}\n", ident, full), nil
}

func compileChoiceRule(ctx *context, name, ident string, rule *Expr) (string, error) {
	var b strings.Builder
	altIdents := make([]string, len(rule.Kids))
	for i, alt := range rule.Kids {
		altIdent := fmt.Sprintf("%s_%d", ident, i)
		altIdents[i] = altIdent

		altBody, err := compileOp(ctx, alt, name, alt.Handler == nil)
		if err != nil {
			return "", err
		}
		full, err := compileHandler(alt, altBody, name)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "func %s(p *Parser, s ParseState) (ParseResult, bool) {\n\treturn (%s)(p, s)\n}\n\n", altIdent, full)
	}

	fmt.Fprintf(&b, "func %s(p *Parser, s ParseState) (ParseResult, bool) {\n", ident)
	for _, a := range altIdents {
		fmt.Fprintf(&b, "\tif res, ok := %s(p, s); ok {\n\t\treturn res, true\n\t}\n", a)
	}
	b.WriteString("\treturn ParseResult{}, false\n}\n")
	return b.String(), nil
}
