// Package compiler translates a grammar -- a set of named parse
// expressions with optional semantic actions -- into a standalone Go
// source artifact that parses according to that grammar when compiled
// with the runtime package linked in (textually, via runtime.Source).
package compiler

// Op tags a parse expression node the way spec §3.1 describes: a
// string literal, a sticky regex, a sequence, an ordered choice, one
// of the six unary operators (repetition, optional, text capture,
// lookahead), or a bare rule reference.
type Op string

const (
	OpLiteral Op = "L"
	OpRegex   Op = "R"
	OpSeq     Op = "S"
	OpChoice  Op = "/"
	OpStar    Op = "*"
	OpPlus    Op = "+"
	OpOpt     Op = "?"
	OpText    Op = "$"
	OpAnd     Op = "&"
	OpNot     Op = "!"
	OpRef     Op = "ref"
)

// Handler is a semantic action attached to a rule or an alternative
// (spec §3.2). Build one with FuncHandler or MapHandler, never both.
type Handler struct {
	Func    string
	Map     any
	hasFunc bool
	hasMap  bool
}

// FuncHandler builds a functional handler: body is Go source for a
// function body (it must itself contain a return statement) that is
// invoked with the node's source location and captured value(s); see
// compileFunctionalHandler for the exact parameter names per operator
// shape.
func FuncHandler(body string) *Handler {
	return &Handler{Func: body, hasFunc: true}
}

// MapHandler builds a structural handler: mapping is a string, an int
// index, or a []any of the same, recursively (spec §3.2/§4.2.2).
func MapHandler(mapping any) *Handler {
	return &Handler{Map: mapping, hasMap: true}
}

// Expr is one node of a parse expression AST.
type Expr struct {
	Op      Op
	Lit     string // L: literal text; R: regex pattern source; ref: rule name
	Kids    []*Expr
	Handler *Handler
}

func (e *Expr) WithHandler(h *Handler) *Expr {
	e.Handler = h
	return e
}

func Lit(s string) *Expr            { return &Expr{Op: OpLiteral, Lit: s} }
func Rx(pattern string) *Expr       { return &Expr{Op: OpRegex, Lit: pattern} }
func Seq(kids ...*Expr) *Expr       { return &Expr{Op: OpSeq, Kids: kids} }
func Choice(kids ...*Expr) *Expr    { return &Expr{Op: OpChoice, Kids: kids} }
func Star(kid *Expr) *Expr          { return &Expr{Op: OpStar, Kids: []*Expr{kid}} }
func Plus(kid *Expr) *Expr          { return &Expr{Op: OpPlus, Kids: []*Expr{kid}} }
func Opt(kid *Expr) *Expr           { return &Expr{Op: OpOpt, Kids: []*Expr{kid}} }
func Text(kid *Expr) *Expr          { return &Expr{Op: OpText, Kids: []*Expr{kid}} }
func And(kid *Expr) *Expr           { return &Expr{Op: OpAnd, Kids: []*Expr{kid}} }
func Not(kid *Expr) *Expr           { return &Expr{Op: OpNot, Kids: []*Expr{kid}} }
func Ref(name string) *Expr         { return &Expr{Op: OpRef, Lit: name} }

// Literal builds a literal node matching any one of strs; a single
// string is a plain literal, more than one is an ordered choice of
// literals (mirroring the teacher's ez.Grammar.Literal variadic form).
func Literal(strs ...string) *Expr {
	if len(strs) == 1 {
		return Lit(strs[0])
	}
	kids := make([]*Expr, len(strs))
	for i, s := range strs {
		kids[i] = Lit(s)
	}
	return Choice(kids...)
}

// RuleSet is the compiler's input (spec §6.1): an ordered set of named
// rules. Order[0] is the start rule.
type RuleSet struct {
	Order []string
	Rules map[string]*Expr
}

// NewRuleSet builds an empty RuleSet ready for Define calls.
func NewRuleSet() *RuleSet {
	return &RuleSet{Rules: map[string]*Expr{}}
}

// Define adds rule under name, appending name to Order the first time
// it's seen (redefining a name replaces the expression but keeps its
// original position).
func (rs *RuleSet) Define(name string, e *Expr) *RuleSet {
	if _, exists := rs.Rules[name]; !exists {
		rs.Order = append(rs.Order, name)
	}
	rs.Rules[name] = e
	return rs
}
