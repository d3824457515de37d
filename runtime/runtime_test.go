package runtime

import (
	"testing"
)

func run(rule Rule, input string) (ParseResult, bool) {
	p := NewParser(nil)
	return rule(p, ParseState{Input: input})
}

func TestLiteral(t *testing.T) {
	lit := Literal("true")

	res, ok := run(lit, "true")
	if !ok {
		t.Fatal("expected literal to match")
	}
	if res.Pos != 4 || res.Loc.Length != 4 || res.Value != "true" {
		t.Errorf("unexpected result: %+v", res)
	}

	if _, ok := run(lit, "false"); ok {
		t.Error("literal should not match mismatched input")
	}
	if _, ok := run(lit, "tru"); ok {
		t.Error("literal should not match truncated input")
	}
}

func TestRegexSticky(t *testing.T) {
	re := Regex(`[a-z]+`)

	res, ok := run(re, "hello world")
	if !ok {
		t.Fatal("expected regex to match")
	}
	groups, isSlice := res.Value.([]any)
	if !isSlice || groups[0] != "hello" {
		t.Errorf("unexpected value: %#v", res.Value)
	}
	if res.Pos != 5 {
		t.Errorf("expected pos 5, got %v", res.Pos)
	}

	// sticky: must not scan forward from a non-matching start
	if _, ok := run(re, "123abc"); ok {
		t.Error("regex should not scan forward past a mismatch at pos 0")
	}
}

func TestRegexGroups(t *testing.T) {
	re := Regex(`(\d+)-(\d+)?`)
	res, ok := run(re, "12-")
	if !ok {
		t.Fatal("expected match")
	}
	groups := res.Value.([]any)
	if groups[0] != "12-" || groups[1] != "12" || groups[2] != nil {
		t.Errorf("unexpected groups: %#v", groups)
	}
}

func TestSequence(t *testing.T) {
	seq := Sequence(Literal("a"), Literal("b"), Literal("c"))

	res, ok := run(seq, "abc")
	if !ok {
		t.Fatal("expected sequence to match")
	}
	values := res.Value.([]any)
	if len(values) != 3 || values[0] != "a" || values[1] != "b" || values[2] != "c" {
		t.Errorf("unexpected values: %#v", values)
	}
	if res.Pos != 3 {
		t.Errorf("expected pos 3, got %v", res.Pos)
	}

	if _, ok := run(seq, "abd"); ok {
		t.Error("sequence should fail when a later element mismatches")
	}
}

func TestChoice(t *testing.T) {
	ch := Choice(Literal("a"), Literal("b"))

	if res, ok := run(ch, "b"); !ok || res.Value != "b" {
		t.Errorf("expected second alternative to match, got %+v %v", res, ok)
	}
	if _, ok := run(ch, "c"); ok {
		t.Error("choice should fail when no alternative matches")
	}
}

func TestZeroOrMoreTerminatesOnZeroWidth(t *testing.T) {
	nullable := Optional(Literal("x")) // always succeeds, sometimes zero-width
	star := ZeroOrMore(nullable)

	res, ok := run(star, "")
	if !ok {
		t.Fatal("ZeroOrMore must always succeed")
	}
	values := res.Value.([]any)
	if len(values) != 0 {
		t.Errorf("expected zero-width termination to yield no values, got %#v", values)
	}
	if res.Pos != 0 {
		t.Errorf("expected no consumption, got pos %v", res.Pos)
	}
}

func TestZeroOrMoreLiteral(t *testing.T) {
	star := ZeroOrMore(Literal("a"))

	res, ok := run(star, "aaa")
	if !ok {
		t.Fatal("expected match")
	}
	values := res.Value.([]any)
	if len(values) != 3 {
		t.Errorf("expected 3 repetitions, got %#v", values)
	}
	if res.Pos != 3 {
		t.Errorf("expected pos 3, got %v", res.Pos)
	}
}

func TestOneOrMore(t *testing.T) {
	plus := OneOrMore(Literal("a"))

	if _, ok := run(plus, ""); ok {
		t.Error("OneOrMore should fail on no matches")
	}

	res, ok := run(plus, "aaa")
	if !ok {
		t.Fatal("expected match")
	}
	values := res.Value.([]any)
	if len(values) != 3 {
		t.Errorf("expected 3 repetitions, got %#v", values)
	}
}

func TestOptional(t *testing.T) {
	opt := Optional(Literal("a"))

	res, ok := run(opt, "a")
	if !ok || res.Value != "a" || res.Pos != 1 {
		t.Errorf("expected present match, got %+v %v", res, ok)
	}

	res, ok = run(opt, "b")
	if !ok || res.Value != nil || res.Pos != 0 {
		t.Errorf("expected zero-width absent result, got %+v %v", res, ok)
	}
}

func TestTextCapture(t *testing.T) {
	cap := TextCapture(OneOrMore(Regex(`[a-z]`)))

	res, ok := run(cap, "hello")
	if !ok {
		t.Fatal("expected match")
	}
	if s, isStr := res.Value.(string); !isStr || s != "hello" {
		t.Errorf("expected captured text \"hello\", got %#v", res.Value)
	}
}

func TestLookahead(t *testing.T) {
	and := And(Literal("a"))

	res, ok := run(and, "a")
	if !ok || res.Pos != 0 || res.Value != nil {
		t.Errorf("expected zero-width success, got %+v %v", res, ok)
	}
	if _, ok := run(and, "b"); ok {
		t.Error("positive lookahead should fail when rule fails")
	}

	not := Not(Literal("a"))
	res, ok = run(not, "b")
	if !ok || res.Pos != 0 {
		t.Errorf("expected zero-width success, got %+v %v", res, ok)
	}
	if _, ok := run(not, "a"); ok {
		t.Error("negative lookahead should fail when rule succeeds")
	}
}

func TestLookaheadDoesNotConsume(t *testing.T) {
	seq := Sequence(And(Literal("a")), Literal("a"))
	res, ok := run(seq, "a")
	if !ok {
		t.Fatal("expected match")
	}
	values := res.Value.([]any)
	if values[0] != nil || values[1] != "a" {
		t.Errorf("unexpected values: %#v", values)
	}
	if res.Pos != 1 {
		t.Errorf("expected 'a' consumed once, got pos %v", res.Pos)
	}
}

func TestRuleRef(t *testing.T) {
	rules := map[string]Rule{
		"start": RuleRef("digit"),
		"digit": Regex(`[0-9]`),
	}
	val, err := ParseRules(rules, "start", "5", Options{Filename: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	groups := val.([]any)
	if groups[0] != "5" {
		t.Errorf("unexpected value: %#v", val)
	}
}

func TestFailTrackingMaxPos(t *testing.T) {
	rules := map[string]Rule{
		"start": Sequence(Literal("a"), Literal("b"), Literal("c")),
	}
	p := NewParser(rules)
	_, err := p.Parse("start", "abd", Options{Filename: "t"})
	if err == nil {
		t.Fatal("expected error")
	}
	if p.maxFailPos != 2 {
		t.Errorf("expected maxFailPos 2, got %v", p.maxFailPos)
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if len(pe.Expected) != 1 || pe.Expected[0] != `"c"` {
		t.Errorf("unexpected expectations: %#v", pe.Expected)
	}
	if pe.Hint != "d" {
		t.Errorf("expected hint 'd', got %q", pe.Hint)
	}
}

func TestFailTrackingDedup(t *testing.T) {
	rules := map[string]Rule{
		"start": Choice(Literal("a"), Literal("a"), Literal("b")),
	}
	p := NewParser(rules)
	_, err := p.Parse("start", "c", Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	pe := err.(*ParseError)
	if len(pe.Expected) != 2 {
		t.Errorf("expected deduped expectations of length 2, got %#v", pe.Expected)
	}
}

func TestEmptyInputAgainstNullableRule(t *testing.T) {
	rules := map[string]Rule{
		"start": ZeroOrMore(Literal("a")),
	}
	val, err := ParseRules(rules, "start", "", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if values, ok := val.([]any); !ok || len(values) != 0 {
		t.Errorf("expected empty value list, got %#v", val)
	}
}

func TestEmptyInputAgainstRequiredRule(t *testing.T) {
	rules := map[string]Rule{
		"start": Literal("a"),
	}
	_, err := ParseRules(rules, "start", "", Options{})
	if err == nil {
		t.Fatal("expected error")
	}
	pe := err.(*ParseError)
	if pe.Hint != "EOF" {
		t.Errorf("expected EOF hint, got %q", pe.Hint)
	}
}

func TestUnconsumedInput(t *testing.T) {
	rules := map[string]Rule{
		"start": Literal("a"),
	}
	_, err := ParseRules(rules, "start", "ab", Options{Filename: "f"})
	if err == nil {
		t.Fatal("expected error")
	}
	pe := err.(*ParseError)
	if !pe.Unconsumed || pe.Remaining != "b" {
		t.Errorf("unexpected error: %+v", pe)
	}
}

// End-to-end scenarios from the spec's testable properties section.

func TestEndToEndRepeatedLiteral(t *testing.T) {
	rules := map[string]Rule{"start": ZeroOrMore(Literal("a"))}
	val, err := ParseRules(rules, "start", "aaa", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values := val.([]any)
	if len(values) != 3 {
		t.Errorf("expected 3 values, got %#v", values)
	}
}

func TestEndToEndOrderedChoice(t *testing.T) {
	rules := map[string]Rule{"start": Choice(Literal("a"), Literal("b"))}

	val, err := ParseRules(rules, "start", "b", Options{})
	if err != nil || val != "b" {
		t.Errorf("expected \"b\", got %#v %v", val, err)
	}

	_, err = ParseRules(rules, "start", "c", Options{Filename: "f"})
	if err == nil {
		t.Fatal("expected error")
	}
	pe := err.(*ParseError)
	if len(pe.Expected) != 2 {
		t.Errorf("expected two expectations, got %#v", pe.Expected)
	}
}

func TestEndToEndTextCaptureOfRegex(t *testing.T) {
	rules := map[string]Rule{"start": TextCapture(OneOrMore(Regex(`[a-z]`)))}
	val, err := ParseRules(rules, "start", "hello", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s, ok := val.(string); !ok || s != "hello" {
		t.Errorf("expected string \"hello\", got %#v", val)
	}
}

func TestEndToEndLookaheadThenLiteral(t *testing.T) {
	rules := map[string]Rule{"start": Sequence(And(Literal("a")), Literal("a"))}
	val, err := ParseRules(rules, "start", "a", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	values := val.([]any)
	if values[0] != nil || values[1] != "a" {
		t.Errorf("unexpected values: %#v", values)
	}
}
