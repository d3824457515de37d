package compiler

import "fmt"

// validateHandlerPlacement enforces spec §3.2/§4.2.3: a handler may be
// attached only to a rule's own root expression, or -- when that root is
// a handler-less ordered choice -- directly to one of its alternatives
// ("this is the only place alternatives carry handlers directly").
// Anywhere else a handler would be unreachable at compile time
// (compileOp/compileChildren never call compileHandler on a kid), so
// Build and Compile both call this before doing anything else: a
// misplaced handler fails the same way in both instead of being wired
// by one and silently dropped by the other.
func validateHandlerPlacement(rules RuleSet) error {
	for _, name := range rules.Order {
		e, ok := rules.Rules[name]
		if !ok {
			continue
		}
		if e.Op == OpChoice && e.Handler == nil {
			for _, alt := range e.Kids {
				if err := requireNoHandler(alt.Kids, name); err != nil {
					return err
				}
			}
			continue
		}
		if err := requireNoHandler(e.Kids, name); err != nil {
			return err
		}
	}
	return nil
}

func requireNoHandler(kids []*Expr, ruleName string) error {
	for _, k := range kids {
		if k.Handler != nil {
			return fmt.Errorf("compiler: rule %q: a handler may only be attached to a rule's own expression, or to an alternative of a handler-less top-level choice", ruleName)
		}
		if err := requireNoHandler(k.Kids, ruleName); err != nil {
			return err
		}
	}
	return nil
}
