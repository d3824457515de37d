package compiler

import "github.com/google/uuid"

// context is the per-compile-invocation scratch space: the interning
// tables for literals and regexes (spec §3.5), scoped to a single
// Compile call so concurrent compilations never share state.
type context struct {
	strDefs []string
	strIdx  map[string]int

	reDefs []string
	reIdx  map[string]int

	// id correlates one Compile invocation's diagnostics and generated
	// header comment; handy when a CLI batch-compiles many grammars.
	id string
}

func newContext() *context {
	return &context{
		strIdx: map[string]int{},
		reIdx:  map[string]int{},
		id:     uuid.NewString(),
	}
}

// internLiteral returns the index of str in strDefs, inserting it if
// this is the first occurrence. Interning is by exact string equality,
// no structural normalization.
func (c *context) internLiteral(str string) int {
	if i, ok := c.strIdx[str]; ok {
		return i
	}
	i := len(c.strDefs)
	c.strDefs = append(c.strDefs, str)
	c.strIdx[str] = i
	return i
}

func (c *context) internRegex(pattern string) int {
	if i, ok := c.reIdx[pattern]; ok {
		return i
	}
	i := len(c.reDefs)
	c.reDefs = append(c.reDefs, pattern)
	c.reIdx[pattern] = i
	return i
}
