package compiler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/pegtool/pegc/runtime"
)

// Logger receives one line when Compile starts and one line per rule
// as it walks the rule set.
// Callers that don't care about compile-time tracing leave it nil;
// Compile never logs anything on its own initiative otherwise.
type Logger interface {
	Logf(format string, args ...any)
}

// Options configures Compile (spec §4.2.5). Types toggles whether each
// compiled rule function is preceded by a doc comment naming the rule
// it implements; the handler closures themselves get no extra
// comments. Go has no parallel to a TypeScript-annotations-on/off
// switch, since the emitted code is always statically typed, so this
// is the closest analogue.
type Options struct {
	Types       bool
	PackageName string
	Logger      Logger
}

func (o Options) logf(format string, args ...any) {
	if o.Logger == nil {
		return
	}
	o.Logger.Logf(format, args...)
}

// Compile translates rules into a standalone Go source artifact. The
// artifact's package clause, the embedded runtime preamble, the rules
// table (the driver binding rule name to compiled function), the
// interned literal/regex declarations, the compiled rule functions, and
// the exported Parse entry point appear in that order, matching spec
// §4.2.4.
func Compile(rules RuleSet, opts Options) (string, error) {
	if len(rules.Order) == 0 {
		return "", errors.New("compiler: rule set has no rules")
	}
	start := rules.Order[0]
	if _, ok := rules.Rules[start]; !ok {
		return "", fmt.Errorf("compiler: start rule %q is not defined", start)
	}
	if err := validateHandlerPlacement(rules); err != nil {
		return "", err
	}

	ctx := newContext()
	opts.logf("compile %s: start rule %q, %d rules", ctx.id, start, len(rules.Order))

	var ruleSrc strings.Builder
	for _, name := range rules.Order {
		expr, ok := rules.Rules[name]
		if !ok {
			return "", fmt.Errorf("compiler: rule %q listed in Order but not defined", name)
		}
		opts.logf("compile %s: rule %q", ctx.id, name)
		src, err := compileRule(ctx, name, expr)
		if err != nil {
			return "", err
		}
		if opts.Types {
			fmt.Fprintf(&ruleSrc, "// %s is the compiled rule %q; its captured value's Go\n// shape depends on the expression tree (see the handler closures\n// below for the per-vN shapes this rule's handlers rely on).\n", goIdent(name), name)
		}
		ruleSrc.WriteString(src)
		ruleSrc.WriteString("\n")
	}

	pkg := opts.PackageName
	if pkg == "" {
		pkg = "parser"
	}

	var out strings.Builder
	fmt.Fprintf(&out, "// Code generated by pegc (compile %s). DO NOT EDIT.\npackage %s\n", ctx.id, pkg)
	out.WriteString(stripPackageClause(runtime.Source()))
	out.WriteString("\n// --- compiled grammar below ---\n\n")

	out.WriteString("var rules = map[string]Rule{\n")
	for _, name := range rules.Order {
		fmt.Fprintf(&out, "\t%s: %s,\n", strconv.Quote(name), goIdent(name))
	}
	out.WriteString("}\n\n")

	writeInterned(&out, ctx)

	out.WriteString(ruleSrc.String())

	fmt.Fprintf(&out, "// Parse parses input according to the %s grammar, whose start\n// rule is %s.\nfunc Parse(input string, opts Options) (any, error) {\n\treturn ParseRules(rules, %s, input, opts)\n}\n",
		strconv.Quote(pkg), strconv.Quote(start), strconv.Quote(start))

	return out.String(), nil
}

// writeInterned emits the interned literal/regex declarations (spec
// §3.5/§4.2.4 item 3). The identifiers strDefN/reDefN are this
// artifact's equivalent of the spec's $L<i>/$R<i> references.
func writeInterned(out *strings.Builder, ctx *context) {
	for i, s := range ctx.strDefs {
		fmt.Fprintf(out, "var strDef%d Rule = Literal(%s)\n", i, strconv.Quote(s))
	}
	for i, p := range ctx.reDefs {
		fmt.Fprintf(out, "var reDef%d Rule = Regex(%s)\n", i, strconv.Quote(p))
	}
	out.WriteString("\n")
}

// stripPackageClause drops runtime.go's leading "package runtime"
// line so its body can be re-headed under the artifact's own package
// name.
func stripPackageClause(src string) string {
	if i := strings.IndexByte(src, '\n'); i >= 0 {
		return src[i+1:]
	}
	return src
}
