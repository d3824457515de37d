package yamlgrammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pegtool/pegc/compiler"
	"github.com/pegtool/pegc/runtime"
)

const booleanYAML = `
start: start
rules:
  start:
    op: choice
    kids:
      - {op: literal, literal: ["true"], handler: {const: "true"}}
      - {op: literal, literal: ["false"], handler: {const: "false"}}
`

func TestDecodeBuildsRunnableGrammar(t *testing.T) {
	rs, err := Decode([]byte(booleanYAML))
	require.NoError(t, err)
	require.Equal(t, "start", rs.Order[0])

	rules, start, err := compiler.Build(rs)
	require.NoError(t, err)

	val, err := runtime.ParseRules(rules, start, "true", runtime.Options{})
	require.NoError(t, err)
	assert.Equal(t, "true", val)
}

const seqYAML = `
start: pair
rules:
  pair:
    op: seq
    handler: {list: [{index: 1}, {index: 2}]}
    kids:
      - {op: literal, literal: ["a"]}
      - {op: literal, literal: ["b"]}
`

func TestDecodeStructuralListHandler(t *testing.T) {
	rs, err := Decode([]byte(seqYAML))
	require.NoError(t, err)

	rules, start, err := compiler.Build(rs)
	require.NoError(t, err)

	val, err := runtime.ParseRules(rules, start, "ab", runtime.Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, val)
}

const startOrderYAML = `
start: second
rules:
  first:
    op: literal
    literal: ["x"]
  second:
    op: literal
    literal: ["y"]
`

func TestDecodeMovesStartRuleFirst(t *testing.T) {
	rs, err := Decode([]byte(startOrderYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, rs.Order)
}

func TestDecodeRejectsMissingStart(t *testing.T) {
	_, err := Decode([]byte("rules:\n  a:\n    op: literal\n    literal: [\"a\"]\n"))
	assert.Error(t, err)
}

func TestDecodeRejectsUnknownOp(t *testing.T) {
	_, err := Decode([]byte("start: a\nrules:\n  a:\n    op: bogus\n"))
	assert.Error(t, err)
}

func TestDecodeRejectsUnresolvedHandler(t *testing.T) {
	src := `
start: a
rules:
  a:
    op: literal
    literal: ["a"]
    handler: {}
`
	_, err := Decode([]byte(src))
	assert.Error(t, err)
}
