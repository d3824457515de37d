package runtime

import _ "embed"

// rawSource is this package's own combinator/driver source, embedded
// verbatim so the compiler can splice it in as a compiled artifact's
// textual preamble (see compiler.Compile and spec §4.2.4 item 1) --
// the artifact is a standalone file, not a caller of this package.
//
//go:embed runtime.go
var rawSource string

// Source returns the source of runtime.go, with its "package runtime"
// clause still attached as the first line.
func Source() string {
	return rawSource
}
