package script

import (
	"errors"
)

// EvalString parses and runs a chunk of source in this interpreter,
// returning the value of the final expression statement. The REPL
// calls this once per submitted line; state (globals, subs, open
// handles) carries over between calls.
func (in *Interp) EvalString(src string) ([]*Scalar, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	in.registerSubs(prog.Mains)
	if err := in.RunBegins(prog); err != nil {
		return nil, err
	}

	var last []*Scalar
	for i, st := range prog.Mains {
		es, isExpr := st.(*ExprStmt)
		if isExpr && es.Mod == ModNone && i == len(prog.Mains)-1 {
			last, err = in.evalExpr(es.X, ListCtx)
		} else {
			last = nil
			err = in.execStmt(st)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := in.RunEnds(prog); err != nil {
		return nil, err
	}
	return last, nil
}

// IsIncomplete reports whether err means the source ended mid-construct,
// an unclosed brace or string rather than a real mistake. Line editors
// use it to prompt for a continuation line.
func IsIncomplete(err error) bool {
	var se *SyntaxError
	return errors.As(err, &se) && se.Incomplete()
}

// Autosplit splits a line into the @F fields array. A nil pattern
// selects awk-style splitting on whitespace runs with leading blanks
// skipped, matching the -a flag's default.
func (in *Interp) Autosplit(line string, pat *Pattern) {
	awk := pat == nil
	if awk {
		pat = awkSplit
	}
	in.Fields().Replace(splitFields(pat, awk, line, 0))
}
