package runtime

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ParseState is the read-only cursor a Rule is invoked with. Combinators
// never mutate a caller's ParseState; they synthesize a fresh one for
// each sub-call and return the next position in their ParseResult.
type ParseState struct {
	Input string
	Pos   int
}

// Loc is the span a ParseResult covers.
type Loc struct {
	Pos    int
	Length int
}

// ParseResult is what a successful Rule invocation produces. The
// invariant Pos == Loc.Pos+Loc.Length always holds.
type ParseResult struct {
	Loc   Loc
	Pos   int
	Value any
}

// Rule is the signature every combinator and every compiled grammar
// rule shares. Absence of a match is signaled solely by the bool
// return; no error ever propagates out of a Rule.
type Rule func(p *Parser, s ParseState) (ParseResult, bool)

// expectation is what an atom records when it fails to match, so that
// Parser can later render a human-readable "Expected: ..." list.
type expectation struct {
	text    string
	isRegex bool
}

// Parser carries the per-parse failure-tracking scratch space (§3.4)
// and the rule table late-bound rule references dispatch through. A
// single Parser must not be driven by more than one goroutine at once;
// separate Parser values are fully independent.
type Parser struct {
	rules map[string]Rule

	maxFailPos   int
	failExpected []expectation
	failIndex    int
}

// NewParser builds a Parser bound to rules. The same Parser may run
// ParseRules-style invocations repeatedly; each call resets the
// failure-tracking scratch but keeps its backing array.
func NewParser(rules map[string]Rule) *Parser {
	return &Parser{rules: rules}
}

func (p *Parser) reset() {
	p.maxFailPos = 0
	p.failExpected = p.failExpected[:0]
	p.failIndex = 0
}

// fail records that, at pos, something expected text (or a regex, if
// isRegex) and didn't find it. Entries to the left of the current
// rightmost failure position are discarded; a strictly-further-right
// position clears the set. The backing slice is never shrunk.
func (p *Parser) fail(pos int, text string, isRegex bool) {
	if pos < p.maxFailPos {
		return
	}
	if pos > p.maxFailPos {
		p.maxFailPos = pos
		p.failIndex = 0
	}
	e := expectation{text: text, isRegex: isRegex}
	if p.failIndex < len(p.failExpected) {
		p.failExpected[p.failIndex] = e
	} else {
		p.failExpected = append(p.failExpected, e)
	}
	p.failIndex++
}

// Literal matches str verbatim at the current position.
func Literal(str string) Rule {
	return func(p *Parser, s ParseState) (ParseResult, bool) {
		end := s.Pos + len(str)
		if end <= len(s.Input) && s.Input[s.Pos:end] == str {
			return ParseResult{
				Loc:   Loc{Pos: s.Pos, Length: len(str)},
				Pos:   end,
				Value: str,
			}, true
		}
		p.fail(s.Pos, str, false)
		return ParseResult{}, false
	}
}

// stickyRegex compiles pattern so that it is only ever tried at a fixed
// starting offset and never scans forward looking for a later match.
// Go's regexp package has no notion of a JS-style sticky/lastIndex
// flag, so the offset is applied by slicing the input down to the
// candidate start and anchoring the pattern with \A; (?s) gives
// dot-matches-all. See DESIGN.md for why this, rather than a
// third-party engine, is the idiomatic choice here.
func stickyRegex(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)\A(?:` + pattern + `)`)
}

// Regex matches pattern anchored at the current position. On success
// Value is []any with the full match at index 0 and capture groups
// (or nil for unmatched optional groups) following.
func Regex(pattern string) Rule {
	re := stickyRegex(pattern)
	return func(p *Parser, s ParseState) (ParseResult, bool) {
		idx := re.FindStringSubmatchIndex(s.Input[s.Pos:])
		if idx == nil {
			p.fail(s.Pos, pattern, true)
			return ParseResult{}, false
		}
		length := idx[1] - idx[0]
		groups := make([]any, 0, len(idx)/2)
		for i := 0; i < len(idx); i += 2 {
			if idx[i] < 0 {
				groups = append(groups, nil)
				continue
			}
			groups = append(groups, s.Input[s.Pos+idx[i]:s.Pos+idx[i+1]])
		}
		return ParseResult{
			Loc:   Loc{Pos: s.Pos, Length: length},
			Pos:   s.Pos + length,
			Value: groups,
		}, true
	}
}

// Sequence threads pos left to right through rules. Any sub-failure
// fails the whole sequence; there is no backtracking within it. Value
// is the list of sub-values in order.
func Sequence(rules ...Rule) Rule {
	return func(p *Parser, s ParseState) (ParseResult, bool) {
		values := make([]any, 0, len(rules))
		cur := s
		for _, r := range rules {
			res, ok := r(p, cur)
			if !ok {
				return ParseResult{}, false
			}
			values = append(values, res.Value)
			cur = ParseState{Input: s.Input, Pos: res.Pos}
		}
		return ParseResult{
			Loc:   Loc{Pos: s.Pos, Length: cur.Pos - s.Pos},
			Pos:   cur.Pos,
			Value: values,
		}, true
	}
}

// Choice tries rules left to right and returns the first success. A
// rejected alternative's recorded failures are kept, not rolled back;
// the rightmost attempt wins regardless, since fail self-filters by
// position.
func Choice(rules ...Rule) Rule {
	return func(p *Parser, s ParseState) (ParseResult, bool) {
		for _, r := range rules {
			if res, ok := r(p, s); ok {
				return res, true
			}
		}
		return ParseResult{}, false
	}
}

// ZeroOrMore repeats rule until it fails or succeeds without consuming
// input. The zero-width success that ends the loop is not appended,
// which is what keeps a nullable rule from looping forever. Always
// succeeds.
func ZeroOrMore(rule Rule) Rule {
	return func(p *Parser, s ParseState) (ParseResult, bool) {
		values := []any{}
		cur := s
		for {
			res, ok := rule(p, cur)
			if !ok || res.Pos == cur.Pos {
				break
			}
			values = append(values, res.Value)
			cur = ParseState{Input: s.Input, Pos: res.Pos}
		}
		return ParseResult{
			Loc:   Loc{Pos: s.Pos, Length: cur.Pos - s.Pos},
			Pos:   cur.Pos,
			Value: values,
		}, true
	}
}

// OneOrMore requires rule to succeed at least once, then behaves like
// ZeroOrMore.
func OneOrMore(rule Rule) Rule {
	rest := ZeroOrMore(rule)
	return func(p *Parser, s ParseState) (ParseResult, bool) {
		first, ok := rule(p, s)
		if !ok {
			return ParseResult{}, false
		}
		cur := ParseState{Input: s.Input, Pos: first.Pos}
		more, _ := rest(p, cur) // ZeroOrMore always succeeds
		tail, _ := more.Value.([]any)
		values := make([]any, 0, len(tail)+1)
		values = append(values, first.Value)
		values = append(values, tail...)
		return ParseResult{
			Loc:   Loc{Pos: s.Pos, Length: more.Pos - s.Pos},
			Pos:   more.Pos,
			Value: values,
		}, true
	}
}

// Optional runs rule; on failure it returns a zero-width success with
// a nil (absent) value instead of propagating the failure.
func Optional(rule Rule) Rule {
	return func(p *Parser, s ParseState) (ParseResult, bool) {
		if res, ok := rule(p, s); ok {
			return res, true
		}
		return ParseResult{Loc: Loc{Pos: s.Pos, Length: 0}, Pos: s.Pos, Value: nil}, true
	}
}

// TextCapture runs rule and, on success, replaces its Value with the
// raw substring it spanned, discarding whatever structure rule built.
func TextCapture(rule Rule) Rule {
	return func(p *Parser, s ParseState) (ParseResult, bool) {
		res, ok := rule(p, s)
		if !ok {
			return ParseResult{}, false
		}
		res.Value = s.Input[s.Pos:res.Pos]
		return res, true
	}
}

// And is positive lookahead: rule must succeed, but no input is
// consumed and the result is a zero-width absent value.
func And(rule Rule) Rule {
	return func(p *Parser, s ParseState) (ParseResult, bool) {
		if _, ok := rule(p, s); ok {
			return ParseResult{Loc: Loc{Pos: s.Pos, Length: 0}, Pos: s.Pos, Value: nil}, true
		}
		return ParseResult{}, false
	}
}

// Not is negative lookahead: rule must fail, consuming nothing either
// way.
func Not(rule Rule) Rule {
	return func(p *Parser, s ParseState) (ParseResult, bool) {
		if _, ok := rule(p, s); ok {
			return ParseResult{}, false
		}
		return ParseResult{Loc: Loc{Pos: s.Pos, Length: 0}, Pos: s.Pos, Value: nil}, true
	}
}

// RuleRef late-binds to the named rule through the Parser's rule
// table, looked up on every call. This is what lets rules reference
// each other (including themselves) before all of them exist yet.
func RuleRef(name string) Rule {
	return func(p *Parser, s ParseState) (ParseResult, bool) {
		r, ok := p.rules[name]
		if !ok {
			panic("runtime: reference to undefined rule " + strconv.Quote(name))
		}
		return r(p, s)
	}
}

// WithHandler runs rule and, on success, replaces its Value by calling
// fn with the result's Loc and raw Value. Failure results pass through
// untouched.
func WithHandler(rule Rule, fn func(loc Loc, value any) any) Rule {
	return func(p *Parser, s ParseState) (ParseResult, bool) {
		res, ok := rule(p, s)
		if !ok {
			return res, false
		}
		res.Value = fn(res.Loc, res.Value)
		return res, true
	}
}

// DefaultRegexTransform reduces a regex rule's match-array value down
// to its full-match string. The compiler applies this to a regex node
// reached from a handler-less rule or alternative through sequences
// and choices only; a regex under *, +, ?, $, & or ! keeps its match
// array.
func DefaultRegexTransform(rule Rule) Rule {
	return func(p *Parser, s ParseState) (ParseResult, bool) {
		res, ok := rule(p, s)
		if !ok {
			return res, false
		}
		if groups, isGroups := res.Value.([]any); isGroups && len(groups) > 0 {
			res.Value = groups[0]
		}
		return res, true
	}
}

// Options configures a top-level parse for diagnostic labelling only.
type Options struct {
	Filename string
}

// ParseRules seeds a ParseState at the start of input, runs the named
// start rule, and validates that input was consumed in full. This is
// what a compiled artifact's public Parse function delegates to.
func ParseRules(rules map[string]Rule, start string, input string, opts Options) (any, error) {
	p := NewParser(rules)
	return p.Parse(start, input, opts)
}

// Parse behaves like ParseRules but reuses p (and its failure-tracking
// buffer) across repeated invocations on the same Parser.
func (p *Parser) Parse(start string, input string, opts Options) (any, error) {
	p.reset()
	startRule, ok := p.rules[start]
	if !ok {
		panic("runtime: unknown start rule " + strconv.Quote(start))
	}
	res, ok := startRule(p, ParseState{Input: input})
	if !ok {
		return nil, p.failedToParseError(input, opts.Filename)
	}
	if res.Pos < len(input) {
		return nil, p.unconsumedInputError(input, opts.Filename, res.Pos)
	}
	return res.Value, nil
}

// ParseError is raised by Parse/ParseRules on a fatal parse failure:
// either nothing matched at the start rule, or the match didn't
// consume the whole input. See §6.3 for the two renderings.
type ParseError struct {
	Filename   string
	Line, Col  int
	Unconsumed bool
	Expected   []string
	Hint       string
	Remaining  string
}

func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Unconsumed {
		fmt.Fprintf(&b, "%s:%d:%d Unconsumed input at %d:%d\n\n%s", e.Filename, e.Line, e.Col, e.Line, e.Col, e.Remaining)
		return b.String()
	}
	fmt.Fprintf(&b, "%s:%d:%d Failed to parse\nExpected:\n", e.Filename, e.Line, e.Col)
	for _, x := range e.Expected {
		fmt.Fprintf(&b, "    %s\n", x)
	}
	fmt.Fprintf(&b, "Found: %s", e.Hint)
	return b.String()
}

func (p *Parser) failedToParseError(input, filename string) *ParseError {
	line, col := lineCol(input, p.maxFailPos)
	return &ParseError{
		Filename: filename,
		Line:     line,
		Col:      col,
		Expected: dedupExpectations(p.failExpected[:p.failIndex]),
		Hint:     hint(input, p.maxFailPos),
	}
}

func (p *Parser) unconsumedInputError(input, filename string, pos int) *ParseError {
	line, col := lineCol(input, pos)
	return &ParseError{
		Filename:   filename,
		Line:       line,
		Col:        col,
		Unconsumed: true,
		Remaining:  input[pos:],
	}
}

// lineCol counts \n, \r\n, and \r as line breaks, 1-based, in code
// units (not grapheme clusters -- see spec Non-goals).
func lineCol(input string, pos int) (line, col int) {
	line, col = 1, 1
	if pos > len(input) {
		pos = len(input)
	}
	for i := 0; i < pos; {
		switch input[i] {
		case '\r':
			if i+1 < len(input) && input[i+1] == '\n' {
				i += 2
			} else {
				i++
			}
			line++
			col = 1
		case '\n':
			i++
			line++
			col = 1
		default:
			i++
			col++
		}
	}
	return
}

var hintPattern = regexp.MustCompile(`\A(?:\S+|[^\S]+)`)

// hint is a short look-ahead at pos used in the "Found: ..." line of a
// diagnostic.
func hint(input string, pos int) string {
	if pos >= len(input) {
		return "EOF"
	}
	loc := hintPattern.FindStringIndex(input[pos:])
	if loc == nil {
		return "EOF"
	}
	return input[pos+loc[0] : pos+loc[1]]
}

func formatExpectation(e expectation) string {
	if e.isRegex {
		return "/" + e.text + "/"
	}
	return strconv.Quote(e.text)
}

// dedupExpectations formats and deduplicates the rightmost-position
// failures, preserving first-seen order.
func dedupExpectations(es []expectation) []string {
	seen := make(map[string]bool, len(es))
	out := make([]string, 0, len(es))
	for _, e := range es {
		s := formatExpectation(e)
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
