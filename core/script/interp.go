package script

import (
	"fmt"
	"io"
	"io/fs"
	"math"
	"math/rand"
	"strings"
	"time"
)

// Context selects how an expression's result is shaped: a scalar context
// wants one value (an array gives its count), a list context wants them
// all.
type Context int

const (
	ScalarCtx Context = iota
	ListCtx
)

// Host provides the process-level services a running script touches:
// standard streams, environment, files, the clock, and child processes.
// The one-liner driver backs it with the sandbox OS; tests use a fixture
// host.
type Host interface {
	Stdin() io.Reader
	Stdout() io.Writer
	Stderr() io.Writer

	Environ() []string
	Args() []string

	Open(name string) (io.ReadCloser, error)
	Create(name string) (io.WriteCloser, error)
	Append(name string) (io.WriteCloser, error)
	Remove(name string) error
	Rename(oldname, newname string) error
	Mkdir(name string) error
	Stat(name string) (fs.FileInfo, error)
	Glob(pattern string) ([]string, error)

	Now() time.Time
	// Interactive reports whether a person is on the other end; timing
	// builtins like sleep only stall for people.
	Interactive() bool

	// Run executes a child process sharing the script's streams.
	Run(argv []string) (exitCode int, err error)
	// Capture executes a child and collects its stdout.
	Capture(argv []string) (stdout string, exitCode int, err error)
}

// scope is one lexical frame. Undeclared names resolve through the chain
// and spring into the root frame, which is how package globals behave
// without `my`.
type scope struct {
	parent  *scope
	scalars map[string]*Scalar
	arrays  map[string]*Array
	hashes  map[string]*Hash
}

func newScope(parent *scope) *scope {
	return &scope{
		parent:  parent,
		scalars: make(map[string]*Scalar),
		arrays:  make(map[string]*Array),
		hashes:  make(map[string]*Hash),
	}
}

func (s *scope) findScalar(name string) (*Scalar, bool) {
	for f := s; f != nil; f = f.parent {
		if v, ok := f.scalars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (s *scope) findArray(name string) (*Array, bool) {
	for f := s; f != nil; f = f.parent {
		if v, ok := f.arrays[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (s *scope) findHash(name string) (*Hash, bool) {
	for f := s; f != nil; f = f.parent {
		if v, ok := f.hashes[name]; ok {
			return v, true
		}
	}
	return nil, false
}

func (s *scope) root() *scope {
	f := s
	for f.parent != nil {
		f = f.parent
	}
	return f
}

// --- Flow control signals ---

// DieError carries the value thrown by die. Uncaught, the driver prints
// it and exits 255.
type DieError struct {
	Value *Scalar
}

func (e *DieError) Error() string { return e.Value.Str() }

// exitSignal unwinds the interpreter for the exit builtin.
type exitSignal struct{ code int }

func (e exitSignal) Error() string { return fmt.Sprintf("exit %d", e.code) }

// ExitCode extracts the code carried by an exit, if err is one.
func ExitCode(err error) (int, bool) {
	if es, ok := err.(exitSignal); ok {
		return es.code, true
	}
	return 0, false
}

// NewExit builds the error the exit builtin raises; the REPL uses it to
// recognize a requested quit.
func NewExit(code int) error { return exitSignal{code: code} }

type flowSignal struct{ op TokenType }

func (f flowSignal) Error() string { return "Can't \"" + f.op.String() + "\" outside a loop block" }

// LoopSignal classifies loop control escaping a block. The one-liner
// driver's implicit read loop treats next as continue and last as break.
func LoopSignal(err error) (next, last bool) {
	if fs, ok := err.(flowSignal); ok {
		return fs.op == NEXT, fs.op == LAST
	}
	return false, false
}

type returnSignal struct{ vals []*Scalar }

func (returnSignal) Error() string { return "return outside a subroutine" }

// matchState is the result of the most recent successful match: capture
// groups and the pre/post context.
type matchState struct {
	groups []string
	ok     []bool
	pre    string
	post   string
	whole  string
}

// Interp evaluates a parsed program against a Host.
type Interp struct {
	host Host

	globals *scope
	cur     *scope
	subs    map[string]*Code

	handles  map[string]*Handle
	patterns map[string]*Pattern

	stdin  *Handle
	stdout *Handle
	stderr *Handle

	// The <> stream shifts files off the live @ARGV, or reads stdin
	// when @ARGV was empty at the first read.
	argvCur     *Handle
	argvStarted bool
	argvIsStdin bool
	argvEOF     bool

	inputLine   int
	match       matchState
	flipflops   map[*Binary]bool
	interpCache map[string]Expr

	rng      *rand.Rand
	seeded   bool
	lastSeed float64

	scriptName string
}

// NewInterp builds an interpreter bound to host. Script arguments load
// @ARGV and the environment loads %ENV.
func NewInterp(host Host) *Interp {
	in := &Interp{
		host:        host,
		globals:     newScope(nil),
		subs:        make(map[string]*Code),
		handles:     make(map[string]*Handle),
		patterns:    make(map[string]*Pattern),
		flipflops:   make(map[*Binary]bool),
		interpCache: make(map[string]Expr),
	}
	in.cur = in.globals

	in.stdin = NewReadHandle("STDIN", host.Stdin())
	in.stdout = NewWriteHandle("STDOUT", host.Stdout())
	in.stderr = NewWriteHandle("STDERR", host.Stderr())
	in.handles["STDIN"] = in.stdin
	in.handles["STDOUT"] = in.stdout
	in.handles["STDERR"] = in.stderr

	args := host.Args()
	in.scriptName = "-"
	if len(args) > 0 {
		in.scriptName = args[0]
	}
	in.globals.scalars["0"] = Str(in.scriptName)

	argv := &Array{}
	if len(args) > 1 {
		for _, a := range args[1:] {
			argv.Push(Str(a))
		}
	}
	in.globals.arrays["ARGV"] = argv
	in.globals.scalars["ARGV"] = Str("-")

	env := NewHash()
	for _, kv := range host.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			env.Slot(kv[:i]).SetStr(kv[i+1:])
		}
	}
	in.globals.hashes["ENV"] = env

	// Special variables with their defaults.
	in.globals.scalars["/"] = Str("\n")
	in.globals.scalars["\\"] = Str("")
	in.globals.scalars[","] = Str("")
	in.globals.scalars["\""] = Str(" ")
	in.globals.scalars["?"] = Num(0)
	in.globals.scalars["!"] = Str("")
	in.globals.scalars["@"] = Str("")
	in.globals.scalars["_"] = Undef()
	in.globals.scalars["a"] = Undef()
	in.globals.scalars["b"] = Undef()
	in.globals.arrays["F"] = &Array{}

	return in
}

// Topic returns the $_ scalar.
func (in *Interp) Topic() *Scalar { return in.globals.scalars["_"] }

// SetTopic replaces the value of $_.
func (in *Interp) SetTopic(s string) { in.Topic().SetStr(s) }

// Fields returns the @F autosplit array.
func (in *Interp) Fields() *Array { return in.globals.arrays["F"] }

// InputLineNumber is $.; the driver advances it per input record.
func (in *Interp) InputLineNumber() int { return in.inputLine }

// SetInputLineNumber sets $..
func (in *Interp) SetInputLineNumber(n int) { in.inputLine = n }

// GlobalScalar exposes a named global for the driver and REPL.
func (in *Interp) GlobalScalar(name string) *Scalar {
	if v, ok := in.globals.scalars[name]; ok {
		return v
	}
	v := Undef()
	in.globals.scalars[name] = v
	return v
}

// GlobalArray exposes a named global array.
func (in *Interp) GlobalArray(name string) *Array {
	if v, ok := in.globals.arrays[name]; ok {
		return v
	}
	v := &Array{}
	in.globals.arrays[name] = v
	return v
}

// EnvList renders %ENV back to KEY=VALUE form for child processes.
func (in *Interp) EnvList() []string {
	env, ok := in.globals.findHash("ENV")
	if !ok {
		return nil
	}
	var out []string
	for _, k := range env.Keys() {
		out = append(out, k+"="+env.Get(k).Str())
	}
	return out
}

func (in *Interp) inputSep() *string {
	sep, _ := in.globals.findScalar("/")
	if sep == nil || !sep.Defined() {
		return nil
	}
	s := sep.Str()
	return &s
}

func (in *Interp) outputSeps() (field, record string) {
	if v, ok := in.globals.findScalar(","); ok && v.Defined() {
		field = v.Str()
	}
	if v, ok := in.globals.findScalar("\\"); ok && v.Defined() {
		record = v.Str()
	}
	return
}

func (in *Interp) listSep() string {
	if v, ok := in.globals.findScalar("\""); ok && v.Defined() {
		return v.Str()
	}
	return " "
}

func (in *Interp) setErrno(err error) {
	v := in.globals.scalars["!"]
	if err == nil {
		v.SetStr("")
		return
	}
	v.SetStr(errnoText(err))
}

// ErrnoText renders err the way $! would, trimmed to the classic
// message. Drivers use it so their diagnostics match the script's.
func ErrnoText(err error) string { return errnoText(err) }

// errnoText trims Go's path noise down to the classic message.
func errnoText(err error) string {
	msg := err.Error()
	if pe, ok := err.(*fs.PathError); ok {
		msg = pe.Err.Error()
	}
	switch {
	case strings.Contains(msg, "file does not exist"), strings.Contains(msg, "no such file"):
		return "No such file or directory"
	case strings.Contains(msg, "file already exists"), strings.Contains(msg, "file exists"):
		return "File exists"
	case strings.Contains(msg, "permission denied"):
		return "Permission denied"
	case strings.Contains(msg, "is a directory"):
		return "Is a directory"
	}
	return msg
}

// dief raises a runtime error with the script position appended, the way
// die does for messages without a trailing newline.
func (in *Interp) dief(line int, format string, args ...interface{}) error {
	msg := fmt.Sprintf(format, args...)
	full := fmt.Sprintf("%s at %s line %d.\n", msg, in.scriptName, line)
	return &DieError{Value: Str(full)}
}

// --- Statement execution ---

// RunProgram executes a whole parsed program: BEGIN blocks, main line,
// END blocks. The returned code is the process exit status.
func (in *Interp) RunProgram(prog *Program) (int, error) {
	in.registerSubs(prog.Mains)
	if err := in.RunBegins(prog); err != nil {
		return in.finishCode(err)
	}
	if err := in.RunMains(prog); err != nil {
		if code, ok := ExitCode(err); ok {
			if endErr := in.RunEnds(prog); endErr != nil {
				return in.finishCode(endErr)
			}
			return code, nil
		}
		return in.finishCode(err)
	}
	if err := in.RunEnds(prog); err != nil {
		return in.finishCode(err)
	}
	return 0, nil
}

func (in *Interp) finishCode(err error) (int, error) {
	if code, ok := ExitCode(err); ok {
		return code, nil
	}
	return 255, err
}

// RunBegins executes the BEGIN blocks in order.
func (in *Interp) RunBegins(prog *Program) error {
	in.registerSubs(prog.Mains)
	for _, b := range prog.Begins {
		if err := in.execBlock(b, true); err != nil {
			return err
		}
	}
	return nil
}

// RunMains executes the main statement line once.
func (in *Interp) RunMains(prog *Program) error {
	for _, st := range prog.Mains {
		if err := in.execStmt(st); err != nil {
			return err
		}
	}
	return nil
}

// RunEnds executes the END blocks in order.
func (in *Interp) RunEnds(prog *Program) error {
	for _, b := range prog.Ends {
		if err := in.execBlock(b, true); err != nil {
			return err
		}
	}
	return nil
}

func (in *Interp) registerSubs(stmts []Stmt) {
	for _, st := range stmts {
		if sd, ok := st.(*SubDecl); ok {
			in.subs[sd.Name] = &Code{Name: sd.Name, Body: sd.Body, Closure: in.globals}
		}
	}
}

func (in *Interp) execBlock(b *Block, fresh bool) error {
	if fresh {
		saved := in.cur
		in.cur = newScope(saved)
		defer func() { in.cur = saved }()
	}
	for _, st := range b.Stmts {
		if err := in.execStmt(st); err != nil {
			return err
		}
	}
	return nil
}

// execBlockValue runs a block and yields the value of its final
// expression statement, the implicit return of subs and do-blocks.
func (in *Interp) execBlockValue(b *Block, ctx Context) ([]*Scalar, error) {
	saved := in.cur
	in.cur = newScope(saved)
	defer func() { in.cur = saved }()

	var last []*Scalar
	for i, st := range b.Stmts {
		es, isExpr := st.(*ExprStmt)
		if isExpr && es.Mod == ModNone && i == len(b.Stmts)-1 {
			vals, err := in.evalExpr(es.X, ctx)
			if err != nil {
				return nil, err
			}
			last = vals
			continue
		}
		if err := in.execStmt(st); err != nil {
			return nil, err
		}
		last = nil
	}
	return last, nil
}

func (in *Interp) execStmt(s Stmt) error {
	switch st := s.(type) {
	case *ExprStmt:
		return in.execExprStmt(st)
	case *IfStmt:
		return in.execIf(st)
	case *WhileStmt:
		return in.execWhile(st)
	case *ForStmt:
		return in.execForC(st)
	case *ForeachStmt:
		return in.execForeach(st)
	case *SubDecl:
		in.subs[st.Name] = &Code{Name: st.Name, Body: st.Body, Closure: in.cur}
		return nil
	case *LoopCtl:
		return flowSignal{op: st.Op}
	case *ReturnStmt:
		var vals []*Scalar
		if st.Val != nil {
			var err error
			vals, err = in.evalExpr(st.Val, ListCtx)
			if err != nil {
				return err
			}
		}
		return returnSignal{vals: copyScalars(vals)}
	case *BlockStmt:
		return in.execBlock(st.Body, true)
	case *Block:
		return in.execBlock(st, true)
	default:
		return in.dief(s.Pos(), "cannot execute %T", s)
	}
}

func (in *Interp) execExprStmt(st *ExprStmt) error {
	switch st.Mod {
	case ModNone:
		_, err := in.evalExpr(st.X, ListCtx)
		return err
	case ModIf, ModUnless:
		ok, err := in.evalBool(st.Cond)
		if err != nil {
			return err
		}
		if st.Mod == ModUnless {
			ok = !ok
		}
		if !ok {
			return nil
		}
		_, err = in.evalExpr(st.X, ListCtx)
		return err
	case ModWhile, ModUntil:
		// do BLOCK while COND runs the block before the first test.
		if dx, ok := st.X.(*doExpr); ok {
			for {
				if _, err := in.execBlockValue(dx.Body, ListCtx); err != nil {
					return err
				}
				ok, err := in.evalLoopCond(st.Cond)
				if err != nil {
					return err
				}
				if st.Mod == ModUntil {
					ok = !ok
				}
				if !ok {
					return nil
				}
			}
		}
		for {
			ok, err := in.evalLoopCond(st.Cond)
			if err != nil {
				return err
			}
			if st.Mod == ModUntil {
				ok = !ok
			}
			if !ok {
				return nil
			}
			if _, err := in.evalExpr(st.X, ListCtx); err != nil {
				if brk, cont := loopSignal(err); brk {
					return nil
				} else if !cont {
					return err
				}
			}
		}
	case ModForeach:
		vals, err := in.evalExpr(st.Cond, ListCtx)
		if err != nil {
			return err
		}
		topic := in.globals.scalars["_"]
		defer func() { in.globals.scalars["_"] = topic }()
		for _, v := range vals {
			in.globals.scalars["_"] = v
			if _, err := in.evalExpr(st.X, ListCtx); err != nil {
				if brk, cont := loopSignal(err); brk {
					return nil
				} else if !cont {
					return err
				}
			}
		}
		return nil
	}
	return nil
}

// loopSignal classifies an error from a loop body: (true, _) for last,
// (false, true) for next.
func loopSignal(err error) (brk, cont bool) {
	if fs, ok := err.(flowSignal); ok {
		switch fs.op {
		case LAST:
			return true, false
		case NEXT:
			return false, true
		}
	}
	return false, false
}

func (in *Interp) execIf(st *IfStmt) error {
	ok, err := in.evalBool(st.Cond)
	if err != nil {
		return err
	}
	if st.Unless {
		ok = !ok
	}
	if ok {
		return in.execBlock(st.Then, true)
	}
	for _, cl := range st.Elifs {
		cok, err := in.evalBool(cl.Cond)
		if err != nil {
			return err
		}
		if cok {
			return in.execBlock(cl.Then, true)
		}
	}
	if st.Else != nil {
		return in.execBlock(st.Else, true)
	}
	return nil
}

// evalLoopCond evaluates a while condition with the implicit-defined
// shorthand: while (<FH>) reads into $_ and tests definedness, as does
// while (my $line = <FH>).
func (in *Interp) evalLoopCond(cond Expr) (bool, error) {
	switch c := cond.(type) {
	case *ReadLine:
		vals, err := in.evalExpr(c, ScalarCtx)
		if err != nil {
			return false, err
		}
		in.Topic().Set(vals[0])
		return vals[0].Defined(), nil
	case *Assign:
		if _, isRead := c.R.(*ReadLine); isRead && c.Op == ASSIGN {
			vals, err := in.evalExpr(c, ScalarCtx)
			if err != nil {
				return false, err
			}
			return vals[0].Defined(), nil
		}
	}
	return in.evalBool(cond)
}

func (in *Interp) execWhile(st *WhileStmt) error {
	first := true
	for {
		if !st.Post || !first {
			ok, err := in.evalLoopCond(st.Cond)
			if err != nil {
				return err
			}
			if st.Until {
				ok = !ok
			}
			if !ok {
				return nil
			}
		} else if st.Post && first {
			// do {} while: body runs before the first test.
		}
		first = false
		if err := in.execBlock(st.Body, true); err != nil {
			if brk, cont := loopSignal(err); brk {
				return nil
			} else if !cont {
				return err
			}
		}
		if st.Post {
			ok, err := in.evalLoopCond(st.Cond)
			if err != nil {
				return err
			}
			if st.Until {
				ok = !ok
			}
			if !ok {
				return nil
			}
		}
	}
}

func (in *Interp) execForC(st *ForStmt) error {
	saved := in.cur
	in.cur = newScope(saved)
	defer func() { in.cur = saved }()

	if st.Init != nil {
		if _, err := in.evalExpr(st.Init, ListCtx); err != nil {
			return err
		}
	}
	for {
		if st.Cond != nil {
			ok, err := in.evalBool(st.Cond)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		if err := in.execBlock(st.Body, true); err != nil {
			if brk, cont := loopSignal(err); brk {
				return nil
			} else if !cont {
				return err
			}
		}
		if st.Update != nil {
			if _, err := in.evalExpr(st.Update, ListCtx); err != nil {
				return err
			}
		}
	}
}

func (in *Interp) execForeach(st *ForeachStmt) error {
	var vals []*Scalar
	for _, lx := range st.List {
		vs, err := in.evalExpr(lx, ListCtx)
		if err != nil {
			return err
		}
		vals = append(vals, vs...)
	}

	saved := in.cur
	in.cur = newScope(saved)
	defer func() { in.cur = saved }()

	// Resolve where the loop variable lives so each pass can alias it
	// to the current element.
	frame := in.cur
	name := "_"
	switch v := st.Var.(type) {
	case *MyDecl:
		name = v.Vars[0].Name
	case *Var:
		name = v.Name
		// Localize an existing variable rather than shadowing it.
		for f := in.cur; f != nil; f = f.parent {
			if _, ok := f.scalars[name]; ok {
				frame = f
				break
			}
		}
	case nil:
		frame = in.globals
	}

	old, hadOld := frame.scalars[name]
	defer func() {
		if hadOld {
			frame.scalars[name] = old
		} else {
			delete(frame.scalars, name)
		}
	}()

	for _, elem := range vals {
		frame.scalars[name] = elem
		if err := in.execBlock(st.Body, true); err != nil {
			if brk, cont := loopSignal(err); brk {
				return nil
			} else if !cont {
				return err
			}
		}
	}
	return nil
}

func (in *Interp) evalBool(e Expr) (bool, error) {
	v, err := in.evalScalar(e)
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

func (in *Interp) evalScalar(e Expr) (*Scalar, error) {
	vals, err := in.evalExpr(e, ScalarCtx)
	if err != nil {
		return nil, err
	}
	if len(vals) == 0 {
		return Undef(), nil
	}
	return vals[len(vals)-1], nil
}

// one wraps a single scalar as an eval result.
func one(s *Scalar) []*Scalar { return []*Scalar{s} }

// --- Expression evaluation ---

func (in *Interp) evalExpr(e Expr, ctx Context) ([]*Scalar, error) {
	switch x := e.(type) {
	case *NumberLit:
		return one(Num(x.Val)), nil

	case *StringLit:
		if !x.Interp {
			return one(Str(x.Text)), nil
		}
		s, err := in.interpolate(x.Text, interpString, x.Line)
		if err != nil {
			return nil, err
		}
		return one(Str(s)), nil

	case *Var:
		return in.evalVar(x, ctx)

	case *MyDecl:
		return in.evalMyDecl(x, ctx), nil

	case *ListExpr:
		return in.evalList(x, ctx)

	case *Elem:
		v, err := in.elemValue(x, false)
		if err != nil {
			return nil, err
		}
		return one(v), nil

	case *Slice:
		return in.sliceValue(x, ctx)

	case *LastIndex:
		arr, err := in.arrayTarget(x.Base, false, x.Line)
		if err != nil {
			return nil, err
		}
		return one(Num(float64(arr.Len() - 1))), nil

	case *Deref:
		return in.evalDeref(x, ctx)

	case *RefOf:
		v, err := in.makeRef(x.Operand)
		if err != nil {
			return nil, err
		}
		return one(v), nil

	case *SubRef:
		if code, ok := in.subs[x.Name]; ok {
			return one(NewCodeRef(code)), nil
		}
		return one(NewCodeRef(&Code{Name: x.Name})), nil

	case *AnonArray:
		vals, err := in.evalExprs(x.Elems, ListCtx)
		if err != nil {
			return nil, err
		}
		return one(NewArrayRef(&Array{Elems: copyScalars(vals)})), nil

	case *AnonHash:
		vals, err := in.evalExprs(x.Elems, ListCtx)
		if err != nil {
			return nil, err
		}
		h := NewHash()
		h.Replace(vals)
		return one(NewHashRef(h)), nil

	case *AnonSub:
		return one(NewCodeRef(&Code{Body: x.Body, Closure: in.cur})), nil

	case *Unary:
		return in.evalUnary(x)

	case *Binary:
		return in.evalBinary(x, ctx)

	case *Assign:
		return in.evalAssign(x, ctx)

	case *IncDec:
		return in.evalIncDec(x)

	case *Ternary:
		ok, err := in.evalBool(x.Cond)
		if err != nil {
			return nil, err
		}
		if ok {
			return in.evalExpr(x.Then, ctx)
		}
		return in.evalExpr(x.Else, ctx)

	case *Call:
		return in.evalCall(x, ctx)

	case *CallRef:
		callee, err := in.evalScalar(x.Callee)
		if err != nil {
			return nil, err
		}
		if !callee.IsRef() || callee.Ref().Kind != RefCode {
			return nil, in.dief(x.Line, "Not a CODE reference")
		}
		args, err := in.evalExprs(x.Args, ListCtx)
		if err != nil {
			return nil, err
		}
		return in.callCode(callee.Ref().Code, args, ctx, x.Line)

	case *ReadLine:
		return in.evalReadLine(x, ctx)

	case *FileTest:
		return in.evalFileTest(x)

	case *RegexLit:
		src, err := in.interpolate(x.Pattern, interpPattern, x.Line)
		if err != nil {
			return nil, err
		}
		pat, err := in.compilePattern(src, x.Flags, x.Line)
		if err != nil {
			return nil, err
		}
		return one(NewRegexpRef(pat)), nil

	case *Match:
		return in.evalMatch(x, ctx)

	case *Subst:
		return in.evalSubst(x)

	case *Trans:
		return in.evalTrans(x)

	case *doExpr:
		return in.execBlockValue(x.Body, ctx)

	case *stmtExpr:
		if err := in.execStmt(x.Stmt); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return nil, in.dief(e.Pos(), "cannot evaluate %T", e)
}

func (in *Interp) evalExprs(list []Expr, ctx Context) ([]*Scalar, error) {
	var out []*Scalar
	for _, e := range list {
		vals, err := in.evalExpr(e, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, vals...)
	}
	return out, nil
}

func (in *Interp) evalVar(v *Var, ctx Context) ([]*Scalar, error) {
	switch v.Sigil {
	case '$':
		return one(in.scalarVarValue(v.Name)), nil
	case '@':
		arr := in.namedArray(v.Name, false)
		if ctx == ScalarCtx {
			return one(Num(float64(arr.Len()))), nil
		}
		out := make([]*Scalar, arr.Len())
		for i := range arr.Elems {
			out[i] = arr.Get(i)
		}
		return out, nil
	case '%':
		h := in.namedHash(v.Name, false)
		if ctx == ScalarCtx {
			return one(Num(float64(h.Len()))), nil
		}
		return h.Pairs(), nil
	}
	return nil, in.dief(v.Line, "unknown sigil %q", string(v.Sigil))
}

// scalarVarValue resolves $name reads, routing the match and bookkeeping
// variables to their live state.
func (in *Interp) scalarVarValue(name string) *Scalar {
	if isAllDigits(name) && name != "0" {
		n := 0
		fmt.Sscanf(name, "%d", &n)
		if n >= 1 && n < len(in.match.groups) && in.match.ok[n] {
			return Str(in.match.groups[n])
		}
		return Undef()
	}
	switch name {
	case "&":
		if len(in.match.ok) > 0 && in.match.ok[0] {
			return Str(in.match.whole)
		}
		return Undef()
	case "`":
		if len(in.match.ok) > 0 && in.match.ok[0] {
			return Str(in.match.pre)
		}
		return Undef()
	case "'":
		if len(in.match.ok) > 0 && in.match.ok[0] {
			return Str(in.match.post)
		}
		return Undef()
	case ".":
		return Num(float64(in.inputLine))
	}
	if v, ok := in.cur.findScalar(name); ok {
		return v
	}
	return Undef()
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func (in *Interp) evalMyDecl(d *MyDecl, ctx Context) []*Scalar {
	var out []*Scalar
	for _, v := range d.Vars {
		switch v.Sigil {
		case '$':
			s := Undef()
			in.cur.scalars[v.Name] = s
			out = append(out, s)
		case '@':
			in.cur.arrays[v.Name] = &Array{}
		case '%':
			in.cur.hashes[v.Name] = NewHash()
		}
	}
	return out
}

func (in *Interp) evalList(l *ListExpr, ctx Context) ([]*Scalar, error) {
	if ctx == ScalarCtx {
		// The comma operator: evaluate everything, keep the last.
		var last []*Scalar
		for _, e := range l.Elems {
			vals, err := in.evalExpr(e, ScalarCtx)
			if err != nil {
				return nil, err
			}
			last = vals
		}
		if last == nil {
			return one(Undef()), nil
		}
		return last, nil
	}
	return in.evalExprs(l.Elems, ListCtx)
}

// --- Variable storage resolution ---

func (in *Interp) namedArray(name string, create bool) *Array {
	if a, ok := in.cur.findArray(name); ok {
		return a
	}
	a := &Array{}
	in.globals.arrays[name] = a
	return a
}

func (in *Interp) namedHash(name string, create bool) *Hash {
	if h, ok := in.cur.findHash(name); ok {
		return h
	}
	h := NewHash()
	in.globals.hashes[name] = h
	return h
}

// lvalue resolves an expression to assignable scalar storage, vivifying
// intermediate references as needed.
func (in *Interp) lvalue(e Expr) (*Scalar, error) {
	switch x := e.(type) {
	case *Var:
		if x.Sigil != '$' {
			return nil, in.dief(x.Line, "expected scalar target")
		}
		if isAllDigits(x.Name) && x.Name != "0" {
			return nil, in.dief(x.Line, "Modification of a read-only value attempted")
		}
		if v, ok := in.cur.findScalar(x.Name); ok {
			return v, nil
		}
		v := Undef()
		in.globals.scalars[x.Name] = v
		return v, nil

	case *MyDecl:
		if len(x.Vars) != 1 || x.Vars[0].Sigil != '$' {
			return nil, in.dief(x.Line, "expected scalar target")
		}
		s := Undef()
		in.cur.scalars[x.Vars[0].Name] = s
		return s, nil

	case *Elem:
		return in.elemSlot(x)

	case *Deref:
		if x.Sigil != '$' {
			return nil, in.dief(x.Line, "expected scalar target")
		}
		inner, err := in.derefScalarTarget(x.Operand, true, x.Line)
		if err != nil {
			return nil, err
		}
		return inner, nil

	case *Ternary:
		ok, err := in.evalBool(x.Cond)
		if err != nil {
			return nil, err
		}
		if ok {
			return in.lvalue(x.Then)
		}
		return in.lvalue(x.Else)
	}
	return nil, in.dief(e.Pos(), "Can't modify %T in assignment", e)
}

// derefScalarTarget resolves the scalar behind a $$x style dereference.
func (in *Interp) derefScalarTarget(operand Expr, viv bool, line int) (*Scalar, error) {
	sc, err := in.scalarSlotOrValue(operand, viv)
	if err != nil {
		return nil, err
	}
	if !sc.Defined() && viv {
		sc.SetRef(&Ref{Kind: RefScalar, Scalar: Undef()})
	}
	if !sc.IsRef() || sc.Ref().Kind != RefScalar {
		return nil, in.dief(line, "Not a SCALAR reference")
	}
	return sc.Ref().Scalar, nil
}

// scalarSlotOrValue gets assignable storage when possible, falling back
// to the plain value for non-lvalue expressions.
func (in *Interp) scalarSlotOrValue(e Expr, viv bool) (*Scalar, error) {
	switch e.(type) {
	case *Var, *Elem, *MyDecl, *Deref:
		if viv {
			return in.lvalue(e)
		}
	}
	return in.evalScalar(e)
}

// arrayTarget resolves the array container an expression names: a named
// array, a dereferenced array ref, or the ref behind an arrow base.
func (in *Interp) arrayTarget(e Expr, viv bool, line int) (*Array, error) {
	switch x := e.(type) {
	case *Var:
		switch x.Sigil {
		case '@':
			return in.namedArray(x.Name, viv), nil
		case '$':
			return in.namedArray(x.Name, viv), nil
		}
	case *Deref:
		sc, err := in.scalarSlotOrValue(x.Operand, viv)
		if err != nil {
			return nil, err
		}
		return in.arrayFromScalar(sc, viv, line)
	}
	sc, err := in.scalarSlotOrValue(e, viv)
	if err != nil {
		return nil, err
	}
	return in.arrayFromScalar(sc, viv, line)
}

func (in *Interp) arrayFromScalar(sc *Scalar, viv bool, line int) (*Array, error) {
	if !sc.Defined() && viv {
		sc.SetRef(&Ref{Kind: RefArray, Array: &Array{}})
	}
	if !sc.IsRef() || sc.Ref().Kind != RefArray {
		return nil, in.dief(line, "Not an ARRAY reference")
	}
	return sc.Ref().Array, nil
}

func (in *Interp) hashTarget(e Expr, viv bool, line int) (*Hash, error) {
	switch x := e.(type) {
	case *Var:
		switch x.Sigil {
		case '%':
			return in.namedHash(x.Name, viv), nil
		case '$':
			return in.namedHash(x.Name, viv), nil
		}
	case *Deref:
		sc, err := in.scalarSlotOrValue(x.Operand, viv)
		if err != nil {
			return nil, err
		}
		return in.hashFromScalar(sc, viv, line)
	}
	sc, err := in.scalarSlotOrValue(e, viv)
	if err != nil {
		return nil, err
	}
	return in.hashFromScalar(sc, viv, line)
}

func (in *Interp) hashFromScalar(sc *Scalar, viv bool, line int) (*Hash, error) {
	if !sc.Defined() && viv {
		sc.SetRef(&Ref{Kind: RefHash, Hash: NewHash()})
	}
	if !sc.IsRef() || sc.Ref().Kind != RefHash {
		return nil, in.dief(line, "Not a HASH reference")
	}
	return sc.Ref().Hash, nil
}

// elemContainer resolves the container of an element access, vivifying
// the path for writes.
func (in *Interp) elemBase(e *Elem, viv bool) (*Array, *Hash, error) {
	var baseExpr Expr = e.Base
	if !e.Arrow {
		// $a[0] and $h{k} name the container directly; $$r[0] goes
		// through the reference in $r.
		if e.Hash {
			h, err := in.hashTarget(baseExpr, viv, e.Line)
			if err != nil {
				return nil, nil, err
			}
			return nil, h, nil
		}
		a, err := in.arrayTarget(baseExpr, viv, e.Line)
		if err != nil {
			return nil, nil, err
		}
		return a, nil, nil
	}

	sc, err := in.scalarSlotOrValue(baseExpr, viv)
	if err != nil {
		return nil, nil, err
	}
	if e.Hash {
		h, err := in.hashFromScalar(sc, viv, e.Line)
		if err != nil {
			return nil, nil, err
		}
		return nil, h, nil
	}
	a, err := in.arrayFromScalar(sc, viv, e.Line)
	if err != nil {
		return nil, nil, err
	}
	return a, nil, nil
}

func (in *Interp) elemValue(e *Elem, viv bool) (*Scalar, error) {
	arr, hash, err := in.elemBase(e, viv)
	if err != nil {
		return nil, err
	}
	if hash != nil {
		k, err := in.evalScalar(e.Index)
		if err != nil {
			return nil, err
		}
		if viv {
			return hash.Slot(k.Str()), nil
		}
		return hash.Get(k.Str()), nil
	}
	i, err := in.evalScalar(e.Index)
	if err != nil {
		return nil, err
	}
	if viv {
		return arr.Slot(i.Int()), nil
	}
	return arr.Get(i.Int()), nil
}

func (in *Interp) elemSlot(e *Elem) (*Scalar, error) {
	return in.elemValue(e, true)
}

func (in *Interp) sliceValue(s *Slice, ctx Context) ([]*Scalar, error) {
	idx, err := in.evalExprs(s.Index, ListCtx)
	if err != nil {
		return nil, err
	}
	if s.Hash {
		h, err := in.hashTarget(s.Base, false, s.Line)
		if err != nil {
			return nil, err
		}
		out := make([]*Scalar, len(idx))
		for i, k := range idx {
			out[i] = h.Get(k.Str())
		}
		return out, nil
	}
	arr, err := in.arrayTarget(s.Base, false, s.Line)
	if err != nil {
		return nil, err
	}
	out := make([]*Scalar, len(idx))
	for i, ix := range idx {
		out[i] = arr.Get(ix.Int())
	}
	return out, nil
}

func (in *Interp) evalDeref(d *Deref, ctx Context) ([]*Scalar, error) {
	switch d.Sigil {
	case '$':
		sc, err := in.evalScalar(d.Operand)
		if err != nil {
			return nil, err
		}
		if !sc.IsRef() || sc.Ref().Kind != RefScalar {
			return nil, in.dief(d.Line, "Not a SCALAR reference")
		}
		return one(sc.Ref().Scalar), nil
	case '@':
		// @{[ ... ]} style derefs of a fresh anon array are common in
		// string interpolation, so evaluate the operand generally.
		sc, err := in.evalScalar(d.Operand)
		if err != nil {
			return nil, err
		}
		arr, err := in.arrayFromScalar(sc, false, d.Line)
		if err != nil {
			return nil, err
		}
		if ctx == ScalarCtx {
			return one(Num(float64(arr.Len()))), nil
		}
		out := make([]*Scalar, arr.Len())
		for i := range arr.Elems {
			out[i] = arr.Get(i)
		}
		return out, nil
	case '%':
		sc, err := in.evalScalar(d.Operand)
		if err != nil {
			return nil, err
		}
		h, err := in.hashFromScalar(sc, false, d.Line)
		if err != nil {
			return nil, err
		}
		if ctx == ScalarCtx {
			return one(Num(float64(h.Len()))), nil
		}
		return h.Pairs(), nil
	}
	return nil, in.dief(d.Line, "unknown dereference")
}

func (in *Interp) makeRef(operand Expr) (*Scalar, error) {
	switch x := operand.(type) {
	case *Var:
		switch x.Sigil {
		case '$':
			slot, err := in.lvalue(x)
			if err != nil {
				return nil, err
			}
			return NewScalarRef(slot), nil
		case '@':
			return NewArrayRef(in.namedArray(x.Name, true)), nil
		case '%':
			return NewHashRef(in.namedHash(x.Name, true)), nil
		}
	case *Elem:
		slot, err := in.elemSlot(x)
		if err != nil {
			return nil, err
		}
		return NewScalarRef(slot), nil
	case *MyDecl:
		slot, err := in.lvalue(x)
		if err != nil {
			return nil, err
		}
		return NewScalarRef(slot), nil
	case *Deref:
		switch x.Sigil {
		case '@':
			arr, err := in.arrayTarget(x, false, x.Line)
			if err != nil {
				return nil, err
			}
			return NewArrayRef(arr), nil
		case '%':
			h, err := in.hashTarget(x, false, x.Line)
			if err != nil {
				return nil, err
			}
			return NewHashRef(h), nil
		}
	}
	// A reference to a computed value refers to a fresh copy.
	v, err := in.evalScalar(operand)
	if err != nil {
		return nil, err
	}
	return NewScalarRef(v.Copy()), nil
}

// --- Operators ---

func (in *Interp) evalUnary(u *Unary) ([]*Scalar, error) {
	v, err := in.evalScalar(u.Operand)
	if err != nil {
		return nil, err
	}
	switch u.Op {
	case NOT:
		return one(boolVal(!v.Bool())), nil
	case MINUS:
		if v.Kind() == KindStr {
			s := v.Str()
			if s != "" && (s[0] == '_' || s[0] >= 'a' && s[0] <= 'z' || s[0] >= 'A' && s[0] <= 'Z') {
				return one(Str("-" + s)), nil
			}
			if s != "" && s[0] == '-' {
				return one(Str("+" + s[1:])), nil
			}
		}
		return one(Num(-v.Num())), nil
	}
	return nil, in.dief(u.Line, "unknown unary operator")
}

func (in *Interp) evalIncDec(x *IncDec) ([]*Scalar, error) {
	slot, err := in.lvalue(x.Operand)
	if err != nil {
		return nil, err
	}
	if x.Prefix {
		if x.Op == INC {
			slot.Increment()
		} else {
			slot.Decrement()
		}
		return one(slot), nil
	}
	old := slot.Copy()
	if x.Op == INC {
		slot.Increment()
	} else {
		slot.Decrement()
	}
	return one(old), nil
}

func (in *Interp) evalBinary(b *Binary, ctx Context) ([]*Scalar, error) {
	switch b.Op {
	case ANDAND:
		l, err := in.evalScalar(b.L)
		if err != nil {
			return nil, err
		}
		if !l.Bool() {
			return one(l), nil
		}
		return in.evalExpr(b.R, ctx)
	case OROR:
		l, err := in.evalScalar(b.L)
		if err != nil {
			return nil, err
		}
		if l.Bool() {
			return one(l), nil
		}
		return in.evalExpr(b.R, ctx)
	case DEFOR:
		l, err := in.evalScalar(b.L)
		if err != nil {
			return nil, err
		}
		if l.Defined() {
			return one(l), nil
		}
		return in.evalExpr(b.R, ctx)
	case RANGE:
		return in.evalRange(b, ctx)
	case REPEAT:
		return in.evalRepeat(b, ctx)
	}

	l, err := in.evalScalar(b.L)
	if err != nil {
		return nil, err
	}
	r, err := in.evalScalar(b.R)
	if err != nil {
		return nil, err
	}

	switch b.Op {
	case PLUS:
		return one(Num(l.Num() + r.Num())), nil
	case MINUS:
		return one(Num(l.Num() - r.Num())), nil
	case STAR:
		return one(Num(l.Num() * r.Num())), nil
	case SLASH:
		if r.Num() == 0 {
			return nil, in.dief(b.Line, "Illegal division by zero")
		}
		return one(Num(l.Num() / r.Num())), nil
	case PERCENT:
		ri := int64(r.Num())
		if ri == 0 {
			return nil, in.dief(b.Line, "Illegal modulus zero")
		}
		li := int64(l.Num())
		m := li % ri
		if m != 0 && (m < 0) != (ri < 0) {
			m += ri
		}
		return one(Num(float64(m))), nil
	case POWER:
		return one(Num(math.Pow(l.Num(), r.Num()))), nil
	case DOT:
		return one(Str(l.Str() + r.Str())), nil
	case NUMEQ:
		return one(boolVal(l.Num() == r.Num())), nil
	case NUMNE:
		return one(boolVal(l.Num() != r.Num())), nil
	case NUMLT:
		return one(boolVal(l.Num() < r.Num())), nil
	case NUMGT:
		return one(boolVal(l.Num() > r.Num())), nil
	case NUMLE:
		return one(boolVal(l.Num() <= r.Num())), nil
	case NUMGE:
		return one(boolVal(l.Num() >= r.Num())), nil
	case NUMCMP:
		return one(Num(float64(compareNum(l.Num(), r.Num())))), nil
	case STREQ:
		return one(boolVal(l.Str() == r.Str())), nil
	case STRNE:
		return one(boolVal(l.Str() != r.Str())), nil
	case STRLT:
		return one(boolVal(l.Str() < r.Str())), nil
	case STRGT:
		return one(boolVal(l.Str() > r.Str())), nil
	case STRLE:
		return one(boolVal(l.Str() <= r.Str())), nil
	case STRGE:
		return one(boolVal(l.Str() >= r.Str())), nil
	case STRCMP:
		return one(Num(float64(compareStr(l.Str(), r.Str())))), nil
	case BITAND:
		return one(Num(float64(uint64(int64(l.Num())) & uint64(int64(r.Num()))))), nil
	case BITOR:
		return one(Num(float64(uint64(int64(l.Num())) | uint64(int64(r.Num()))))), nil
	case BITXOR:
		return one(Num(float64(uint64(int64(l.Num())) ^ uint64(int64(r.Num()))))), nil
	case SHL:
		return one(Num(float64(uint64(int64(l.Num())) << (uint64(int64(r.Num())) & 63)))), nil
	case SHR:
		return one(Num(float64(uint64(int64(l.Num())) >> (uint64(int64(r.Num())) & 63)))), nil
	}
	return nil, in.dief(b.Line, "unknown operator %s", b.Op)
}

// evalRange is .. in both shapes: a list builder in list context and the
// line-range flip-flop in scalar context.
func (in *Interp) evalRange(b *Binary, ctx Context) ([]*Scalar, error) {
	if ctx == ListCtx {
		l, err := in.evalScalar(b.L)
		if err != nil {
			return nil, err
		}
		r, err := in.evalScalar(b.R)
		if err != nil {
			return nil, err
		}
		// Letter ranges step alphabetically: 'a'..'e'.
		if l.Kind() == KindStr && !isAllDigits(l.Str()) && isMagicIncrementable(l.Str()) {
			var out []*Scalar
			end := r.Str()
			cur := l.Str()
			for i := 0; i < 1<<20; i++ {
				out = append(out, Str(cur))
				if cur == end || len(cur) > len(end) {
					break
				}
				cur = magicIncrement(cur)
			}
			return out, nil
		}
		lo, hi := int(l.Num()), int(r.Num())
		if lo > hi {
			return nil, nil
		}
		out := make([]*Scalar, 0, hi-lo+1)
		for i := lo; i <= hi; i++ {
			out = append(out, Num(float64(i)))
		}
		return out, nil
	}

	// Scalar context: the flip-flop. A bare number compares against the
	// input line counter, so `print if 5 .. 10` selects those lines.
	on := in.flipflops[b]
	test := func(e Expr) (bool, error) {
		if n, ok := e.(*NumberLit); ok {
			return float64(in.inputLine) == n.Val, nil
		}
		return in.evalBool(e)
	}
	if !on {
		start, err := test(b.L)
		if err != nil {
			return nil, err
		}
		if !start {
			return one(Str("")), nil
		}
		in.flipflops[b] = true
	}
	stop, err := test(b.R)
	if err != nil {
		return nil, err
	}
	if stop {
		in.flipflops[b] = false
	}
	return one(Num(1)), nil
}

func (in *Interp) evalRepeat(b *Binary, ctx Context) ([]*Scalar, error) {
	count, err := in.evalScalar(b.R)
	if err != nil {
		return nil, err
	}
	n := count.Int()
	if lst, ok := b.L.(*ListExpr); ok && ctx == ListCtx {
		vals, err := in.evalExprs(lst.Elems, ListCtx)
		if err != nil {
			return nil, err
		}
		var out []*Scalar
		for i := 0; i < n; i++ {
			out = append(out, copyScalars(vals)...)
		}
		return out, nil
	}
	l, err := in.evalScalar(b.L)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		n = 0
	}
	return one(Str(strings.Repeat(l.Str(), n))), nil
}

// --- Assignment ---

// listTarget reports whether assignment to this expression distributes a
// list rather than copying one scalar.
func listTarget(e Expr) bool {
	switch x := e.(type) {
	case *Var:
		return x.Sigil != '$'
	case *MyDecl:
		return len(x.Vars) != 1 || x.Vars[0].Sigil != '$'
	case *ListExpr:
		return true
	case *Slice:
		return true
	case *Deref:
		return x.Sigil != '$'
	}
	return false
}

func (in *Interp) evalAssign(a *Assign, ctx Context) ([]*Scalar, error) {
	if a.Op != ASSIGN {
		return in.evalCompoundAssign(a)
	}

	if !listTarget(a.L) {
		r, err := in.evalScalar(a.R)
		if err != nil {
			return nil, err
		}
		slot, err := in.lvalue(a.L)
		if err != nil {
			return nil, err
		}
		slot.Set(r)
		return one(slot), nil
	}

	vals, err := in.evalExpr(a.R, ListCtx)
	if err != nil {
		return nil, err
	}
	if err := in.assignList(a.L, vals); err != nil {
		return nil, err
	}
	if ctx == ScalarCtx {
		// A list assignment in scalar context counts its right side:
		// my $n = () = split ...
		return one(Num(float64(len(vals)))), nil
	}
	return vals, nil
}

func (in *Interp) assignList(target Expr, vals []*Scalar) error {
	switch t := target.(type) {
	case *Var:
		switch t.Sigil {
		case '@':
			in.namedArray(t.Name, true).Replace(vals)
			return nil
		case '%':
			in.namedHash(t.Name, true).Replace(vals)
			return nil
		}
	case *Deref:
		switch t.Sigil {
		case '@':
			arr, err := in.arrayTarget(t, true, t.Line)
			if err != nil {
				return err
			}
			arr.Replace(vals)
			return nil
		case '%':
			h, err := in.hashTarget(t, true, t.Line)
			if err != nil {
				return err
			}
			h.Replace(vals)
			return nil
		}
	case *MyDecl:
		pos := 0
		for _, v := range t.Vars {
			switch v.Sigil {
			case '$':
				s := Undef()
				if pos < len(vals) {
					s = vals[pos].Copy()
					pos++
				}
				in.cur.scalars[v.Name] = s
			case '@':
				arr := &Array{}
				if pos < len(vals) {
					arr.Replace(vals[pos:])
					pos = len(vals)
				}
				in.cur.arrays[v.Name] = arr
			case '%':
				h := NewHash()
				if pos < len(vals) {
					h.Replace(vals[pos:])
					pos = len(vals)
				}
				in.cur.hashes[v.Name] = h
			}
		}
		return nil
	case *ListExpr:
		pos := 0
		next := func() *Scalar {
			if pos < len(vals) {
				v := vals[pos].Copy()
				pos++
				return v
			}
			pos++
			return Undef()
		}
		rest := func() []*Scalar {
			if pos >= len(vals) {
				pos = len(vals)
				return nil
			}
			r := vals[pos:]
			pos = len(vals)
			return r
		}
		assignScalar := func(el Expr) error {
			slot, err := in.lvalue(el)
			if err != nil {
				return err
			}
			slot.Set(next())
			return nil
		}
		for _, el := range t.Elems {
			switch et := el.(type) {
			case *MyDecl:
				for _, v := range et.Vars {
					switch v.Sigil {
					case '$':
						s := next()
						in.cur.scalars[v.Name] = s
					case '@':
						arr := &Array{}
						arr.Replace(rest())
						in.cur.arrays[v.Name] = arr
					case '%':
						h := NewHash()
						h.Replace(rest())
						in.cur.hashes[v.Name] = h
					}
				}
			case *Var:
				switch et.Sigil {
				case '@':
					in.namedArray(et.Name, true).Replace(rest())
				case '%':
					in.namedHash(et.Name, true).Replace(rest())
				default:
					if err := assignScalar(et); err != nil {
						return err
					}
				}
			default:
				if err := assignScalar(el); err != nil {
					return err
				}
			}
		}
		return nil
	case *Slice:
		idx, err := in.evalExprs(t.Index, ListCtx)
		if err != nil {
			return err
		}
		if t.Hash {
			h, err := in.hashTarget(t.Base, true, t.Line)
			if err != nil {
				return err
			}
			for i, k := range idx {
				slot := h.Slot(k.Str())
				if i < len(vals) {
					slot.Set(vals[i].Copy())
				} else {
					slot.SetUndef()
				}
			}
			return nil
		}
		arr, err := in.arrayTarget(t.Base, true, t.Line)
		if err != nil {
			return err
		}
		for i, ix := range idx {
			slot := arr.Slot(ix.Int())
			if i < len(vals) {
				slot.Set(vals[i].Copy())
			} else {
				slot.SetUndef()
			}
		}
		return nil
	}
	return in.dief(target.Pos(), "Can't modify %T in list assignment", target)
}

func (in *Interp) evalCompoundAssign(a *Assign) ([]*Scalar, error) {
	slot, err := in.lvalue(a.L)
	if err != nil {
		return nil, err
	}

	switch a.Op {
	case OROREQ:
		if slot.Bool() {
			return one(slot), nil
		}
		r, err := in.evalScalar(a.R)
		if err != nil {
			return nil, err
		}
		slot.Set(r)
		return one(slot), nil
	case ANDANDEQ:
		if !slot.Bool() {
			return one(slot), nil
		}
		r, err := in.evalScalar(a.R)
		if err != nil {
			return nil, err
		}
		slot.Set(r)
		return one(slot), nil
	case DEFOREQ:
		if slot.Defined() {
			return one(slot), nil
		}
		r, err := in.evalScalar(a.R)
		if err != nil {
			return nil, err
		}
		slot.Set(r)
		return one(slot), nil
	}

	r, err := in.evalScalar(a.R)
	if err != nil {
		return nil, err
	}
	switch a.Op {
	case PLUSEQ:
		slot.SetNum(slot.Num() + r.Num())
	case MINUSEQ:
		slot.SetNum(slot.Num() - r.Num())
	case STAREQ:
		slot.SetNum(slot.Num() * r.Num())
	case SLASHEQ:
		if r.Num() == 0 {
			return nil, in.dief(a.Line, "Illegal division by zero")
		}
		slot.SetNum(slot.Num() / r.Num())
	case PERCENTEQ:
		ri := int64(r.Num())
		if ri == 0 {
			return nil, in.dief(a.Line, "Illegal modulus zero")
		}
		li := int64(slot.Num())
		m := li % ri
		if m != 0 && (m < 0) != (ri < 0) {
			m += ri
		}
		slot.SetNum(float64(m))
	case POWEREQ:
		slot.SetNum(math.Pow(slot.Num(), r.Num()))
	case DOTEQ:
		slot.SetStr(slot.Str() + r.Str())
	case REPEATEQ:
		n := r.Int()
		if n < 0 {
			n = 0
		}
		slot.SetStr(strings.Repeat(slot.Str(), n))
	case BITANDEQ:
		slot.SetNum(float64(uint64(int64(slot.Num())) & uint64(int64(r.Num()))))
	case BITOREQ:
		slot.SetNum(float64(uint64(int64(slot.Num())) | uint64(int64(r.Num()))))
	case BITXOREQ:
		slot.SetNum(float64(uint64(int64(slot.Num())) ^ uint64(int64(r.Num()))))
	case SHLEQ:
		slot.SetNum(float64(uint64(int64(slot.Num())) << (uint64(int64(r.Num())) & 63)))
	case SHREQ:
		slot.SetNum(float64(uint64(int64(slot.Num())) >> (uint64(int64(r.Num())) & 63)))
	default:
		return nil, in.dief(a.Line, "unknown assignment operator")
	}
	return one(slot), nil
}

// --- Subs ---

func (in *Interp) callCode(code *Code, args []*Scalar, ctx Context, line int) ([]*Scalar, error) {
	if code.Body == nil {
		name := code.Name
		if name == "" {
			name = "__ANON__"
		}
		return nil, in.dief(line, "Undefined subroutine &main::%s called", name)
	}
	saved := in.cur
	closure := code.Closure
	if closure == nil {
		closure = in.globals
	}
	in.cur = newScope(closure)
	// @_ aliases the caller's argument scalars.
	in.cur.arrays["_"] = &Array{Elems: args}

	vals, err := in.execBlockValue(code.Body, ctx)
	in.cur = saved
	if err != nil {
		if rs, ok := err.(returnSignal); ok {
			vals = rs.vals
			err = nil
		} else {
			return nil, err
		}
	}
	if ctx == ScalarCtx && len(vals) > 1 {
		vals = vals[len(vals)-1:]
	}
	if vals == nil {
		vals = []*Scalar{}
	}
	return vals, nil
}

// --- Reading input ---

func (in *Interp) evalReadLine(r *ReadLine, ctx Context) ([]*Scalar, error) {
	isArgv := r.Var == nil && (r.Handle == "" || r.Handle == "ARGV")

	read := func() (string, bool, error) {
		if isArgv {
			v, ok := in.readArgvRecord()
			return v, ok, nil
		}
		h, err := in.readHandleFor(r)
		if err != nil {
			return "", false, err
		}
		v, ok := h.ReadRecord(in.inputSep())
		if ok {
			in.inputLine++
		}
		return v, ok, nil
	}

	if ctx == ListCtx {
		var out []*Scalar
		for {
			v, ok, err := read()
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			out = append(out, Str(v))
		}
		return out, nil
	}
	v, ok, err := read()
	if err != nil {
		return nil, err
	}
	if !ok {
		return one(Undef()), nil
	}
	return one(Str(v)), nil
}

func (in *Interp) readHandleFor(r *ReadLine) (*Handle, error) {
	if r.Var != nil {
		sc, err := in.evalScalar(r.Var)
		if err != nil {
			return nil, err
		}
		if sc.IsRef() && sc.Ref().Kind == RefGlob {
			return sc.Ref().Handle, nil
		}
		return nil, in.dief(r.Line, "readline on unopened filehandle")
	}
	if h, ok := in.handles[r.Handle]; ok {
		return h, nil
	}
	return nil, in.dief(r.Line, "readline on unopened filehandle %s", r.Handle)
}

// currentArgvHandle implements the <> stream. Files are shifted off the
// live @ARGV as they open, so a BEGIN block may rewrite the list first.
// With @ARGV empty at the first read the stream is standard input. Once
// named files are exhausted the stream stays at end of file.
func (in *Interp) currentArgvHandle() *Handle {
	for {
		if in.argvCur != nil {
			return in.argvCur
		}
		if in.argvEOF {
			return nil
		}
		argv := in.GlobalArray("ARGV")
		if !in.argvStarted {
			in.argvStarted = true
			if argv.Len() == 0 {
				in.argvIsStdin = true
			}
		}
		if in.argvIsStdin {
			in.argvCur = in.stdin
			in.GlobalScalar("ARGV").SetStr("-")
			return in.argvCur
		}
		if argv.Len() == 0 {
			in.argvEOF = true
			return nil
		}
		path := argv.Shift().Str()
		in.GlobalScalar("ARGV").SetStr(path)
		if path == "-" {
			in.argvCur = in.stdin
			return in.argvCur
		}
		f, err := in.host.Open(path)
		if err != nil {
			in.setErrno(err)
			fmt.Fprintf(in.host.Stderr(), "Can't open %s: %s.\n", path, errnoText(err))
			continue
		}
		in.argvCur = NewReadHandle(path, f)
	}
}

// readArgvRecord reads the next record from <>, moving through the file
// list as each one drains.
func (in *Interp) readArgvRecord() (string, bool) {
	for {
		h := in.currentArgvHandle()
		if h == nil {
			return "", false
		}
		v, ok := h.ReadRecord(in.inputSep())
		if ok {
			in.inputLine++
			return v, true
		}
		if h == in.stdin {
			in.argvEOF = true
			in.argvCur = nil
			return "", false
		}
		h.Close()
		in.argvCur = nil
	}
}

// NextInputRecord reads one record from the <> stream for the driver's
// -n/-p loop.
func (in *Interp) NextInputRecord() (string, bool) {
	return in.readArgvRecord()
}

// CurrentInputName names the file <> is reading, for diagnostics.
func (in *Interp) CurrentInputName() string {
	if in.argvCur != nil {
		return in.argvCur.Name
	}
	return "-"
}

// --- File tests ---

func (in *Interp) evalFileTest(ft *FileTest) ([]*Scalar, error) {
	v, err := in.evalScalar(ft.Operand)
	if err != nil {
		return nil, err
	}
	info, err := in.host.Stat(v.Str())
	if err != nil {
		in.setErrno(err)
		if ft.Op == 'e' || ft.Op == 'f' || ft.Op == 'd' || ft.Op == 'z' {
			return one(Str("")), nil
		}
		return one(Undef()), nil
	}
	switch ft.Op {
	case 'e':
		return one(Num(1)), nil
	case 'f':
		return one(boolVal(info.Mode().IsRegular())), nil
	case 'd':
		return one(boolVal(info.IsDir())), nil
	case 's':
		if info.Size() == 0 {
			return one(Undef()), nil
		}
		return one(Num(float64(info.Size()))), nil
	case 'z':
		return one(boolVal(info.Size() == 0)), nil
	case 'r', 'w', 'x':
		return one(Num(1)), nil
	}
	return nil, in.dief(ft.Line, "unsupported file test -%c", ft.Op)
}

// --- Matching ---

func (in *Interp) compilePattern(src, flags string, line int) (*Pattern, error) {
	key := flags + "\x00" + src
	if p, ok := in.patterns[key]; ok {
		return p, nil
	}
	p, err := CompilePattern(src, flags)
	if err != nil {
		return nil, in.dief(line, "%v", err)
	}
	in.patterns[key] = p
	return p, nil
}

func (in *Interp) patternFor(m *Match) (*Pattern, error) {
	if m.Re != nil {
		src, err := in.interpolate(m.Re.Pattern, interpPattern, m.Re.Line)
		if err != nil {
			return nil, err
		}
		return in.compilePattern(src, m.Re.Flags, m.Re.Line)
	}
	v, err := in.evalScalar(m.PatExpr)
	if err != nil {
		return nil, err
	}
	if v.IsRef() && v.Ref().Kind == RefRegexp {
		return v.Ref().Regexp, nil
	}
	return in.compilePattern(v.Str(), "", m.Line)
}

func (in *Interp) setMatchState(target string, loc []int) {
	groups := len(loc) / 2
	in.match = matchState{
		groups: make([]string, groups),
		ok:     make([]bool, groups),
		pre:    target[:loc[0]],
		post:   target[loc[1]:],
		whole:  target[loc[0]:loc[1]],
	}
	for i := 0; i < groups; i++ {
		if loc[2*i] >= 0 {
			in.match.groups[i] = target[loc[2*i]:loc[2*i+1]]
			in.match.ok[i] = true
		}
	}
}

func (in *Interp) evalMatch(m *Match, ctx Context) ([]*Scalar, error) {
	pat, err := in.patternFor(m)
	if err != nil {
		return nil, err
	}

	var target *Scalar
	if m.Target == nil {
		target = in.Topic()
	} else {
		target, err = in.scalarSlotOrValue(m.Target, true)
		if err != nil {
			return nil, err
		}
	}
	s := target.Str()

	if ctx == ListCtx && pat.Global() && !m.Negate {
		// All matches: flattened groups, or whole matches without groups.
		var out []*Scalar
		start := 0
		for start <= len(s) {
			loc := pat.FindSubmatchIndex(s, start)
			if loc == nil {
				break
			}
			in.setMatchState(s, loc)
			if pat.NumSubexp() > 0 {
				for g := 1; g <= pat.NumSubexp(); g++ {
					if loc[2*g] >= 0 {
						out = append(out, Str(s[loc[2*g]:loc[2*g+1]]))
					} else {
						out = append(out, Undef())
					}
				}
			} else {
				out = append(out, Str(s[loc[0]:loc[1]]))
			}
			if loc[1] == loc[0] {
				start = loc[1] + 1
			} else {
				start = loc[1]
			}
		}
		return out, nil
	}

	start := 0
	if pat.Global() && ctx == ScalarCtx {
		start = target.pos
		if start > len(s) {
			target.pos = 0
			return one(boolVal(m.Negate)), nil
		}
	}
	loc := pat.FindSubmatchIndex(s, start)
	if loc == nil {
		if pat.Global() && ctx == ScalarCtx {
			target.pos = 0
		}
		if m.Negate {
			return one(Num(1)), nil
		}
		if ctx == ListCtx {
			return nil, nil
		}
		return one(Str("")), nil
	}
	in.setMatchState(s, loc)
	if pat.Global() && ctx == ScalarCtx {
		if loc[1] == loc[0] {
			target.pos = loc[1] + 1
		} else {
			target.pos = loc[1]
		}
	}
	if m.Negate {
		return one(Str("")), nil
	}
	if ctx == ListCtx && pat.NumSubexp() > 0 {
		out := make([]*Scalar, pat.NumSubexp())
		for g := 1; g <= pat.NumSubexp(); g++ {
			if loc[2*g] >= 0 {
				out[g-1] = Str(s[loc[2*g]:loc[2*g+1]])
			} else {
				out[g-1] = Undef()
			}
		}
		return out, nil
	}
	return one(Num(1)), nil
}

func (in *Interp) evalSubst(sb *Subst) ([]*Scalar, error) {
	if strings.ContainsRune(sb.Flags, 'e') {
		return nil, in.dief(sb.Line, "substitution with /e is not supported")
	}
	src, err := in.interpolate(sb.Pattern, interpPattern, sb.Line)
	if err != nil {
		return nil, err
	}
	pat, err := in.compilePattern(src, sb.Flags, sb.Line)
	if err != nil {
		return nil, err
	}

	ret := strings.ContainsRune(sb.Flags, 'r')
	var target *Scalar
	if sb.Target == nil {
		target = in.Topic()
	} else if ret {
		target, err = in.evalScalar(sb.Target)
		if err != nil {
			return nil, err
		}
	} else {
		target, err = in.lvalue(sb.Target)
		if err != nil {
			return nil, err
		}
	}

	s := target.Str()
	global := pat.Global()
	var out strings.Builder
	count := 0
	start := 0
	for start <= len(s) {
		loc := pat.FindSubmatchIndex(s, start)
		if loc == nil {
			break
		}
		in.setMatchState(s, loc)
		rep, err := in.interpolate(sb.Replacement, interpReplacement, sb.Line)
		if err != nil {
			return nil, err
		}
		out.WriteString(s[start:loc[0]])
		out.WriteString(rep)
		count++
		if loc[1] == loc[0] {
			if loc[1] < len(s) {
				out.WriteByte(s[loc[1]])
			}
			start = loc[1] + 1
		} else {
			start = loc[1]
		}
		if !global {
			break
		}
	}
	if count == 0 {
		if ret {
			return one(Str(s)), nil
		}
		return one(Str("")), nil
	}
	if start <= len(s) {
		out.WriteString(s[start:])
	}
	if ret {
		return one(Str(out.String())), nil
	}
	target.SetStr(out.String())
	return one(Num(float64(count))), nil
}

func (in *Interp) evalTrans(tr *Trans) ([]*Scalar, error) {
	ret := strings.ContainsRune(tr.Flags, 'r')
	var target *Scalar
	var err error
	if tr.Target == nil {
		target = in.Topic()
	} else if ret {
		target, err = in.evalScalar(tr.Target)
		if err != nil {
			return nil, err
		}
	} else {
		target, err = in.lvalue(tr.Target)
		if err != nil {
			return nil, err
		}
	}
	res, count := Transliterate(target.Str(), tr.From, tr.To, tr.Flags)
	if ret {
		return one(Str(res)), nil
	}
	target.SetStr(res)
	return one(Num(float64(count))), nil
}
