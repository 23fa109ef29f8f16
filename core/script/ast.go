package script

// Node is anything the evaluator can walk.
type Node interface {
	Pos() int // source line
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

type base struct{ Line int }

func (b base) Pos() int { return b.Line }

// --- Literals ---

type NumberLit struct {
	base
	Val float64
}

type StringLit struct {
	base
	Text   string
	Interp bool
}

// --- Variables and access paths ---

// Var names a variable with its sigil: '$', '@' or '%'.
type Var struct {
	base
	Sigil byte
	Name  string
}

// MyDecl declares lexical variables. It is an expression so it can be an
// assignment target: my ($a, $b) = @_;
type MyDecl struct {
	base
	Vars []*Var
}

// Elem is an array element: $a[0], $r->[0], or a hash element: $h{k},
// $r->{k}. Hash is true for brace subscripts.
type Elem struct {
	base
	Base  Expr // Var with '$' sigil, or a deref/arrow chain
	Index Expr
	Hash  bool
	// Arrow marks $r->[...] / $r->{...}: Base is a reference value.
	Arrow bool
}

// Slice is @a[...] or @h{...}.
type Slice struct {
	base
	Base  Expr
	Index []Expr
	Hash  bool
}

// LastIndex is $#array or $#$ref.
type LastIndex struct {
	base
	Base Expr
}

// Deref is ${...}, @{...}, %{...}, $$r, @$r, %$r.
type Deref struct {
	base
	Sigil   byte
	Operand Expr
}

// RefOf is \expr, producing a reference.
type RefOf struct {
	base
	Operand Expr
}

// SubRef is \&name.
type SubRef struct {
	base
	Name string
}

// --- Composite constructors ---

type ListExpr struct {
	base
	Elems []Expr
}

type AnonArray struct {
	base
	Elems []Expr
}

type AnonHash struct {
	base
	Elems []Expr
}

type AnonSub struct {
	base
	Body *Block
}

// --- Operations ---

type Unary struct {
	base
	Op      TokenType
	Operand Expr
}

type Binary struct {
	base
	Op   TokenType
	L, R Expr
}

type Assign struct {
	base
	Op   TokenType // ASSIGN or a compound op token
	L, R Expr
}

type IncDec struct {
	base
	Op      TokenType // INC or DEC
	Prefix  bool
	Operand Expr
}

type Ternary struct {
	base
	Cond, Then, Else Expr
}

// Call is a builtin or user-defined sub call. Args is nil for a bare call
// like `time`. Block holds the leading block of sort/map/grep.
type Call struct {
	base
	Name  string
	Args  []Expr
	Block *Block
	// Handle is the leading filehandle of print/printf/say, if any.
	Handle Expr
	// Amp is set for &name(...) calls, which bypass builtins.
	Amp bool
}

// CallRef invokes a code reference: $f->(...) or &$f(...).
type CallRef struct {
	base
	Callee Expr
	Args   []Expr
}

// ReadLine is <$fh>, <STDIN>, or <> (the driver input stream).
type ReadLine struct {
	base
	Handle string // "", "STDIN", "ARGV", or a bareword handle
	Var    Expr   // set for <$fh>
}

// FileTest is -e/-f/-d/-s/-z on a path.
type FileTest struct {
	base
	Op      byte
	Operand Expr
}

// --- Regex family ---

type RegexLit struct {
	base
	Pattern string
	Flags   string
}

// Match is expr =~ /pat/ or a bare /pat/ against $_. When the pattern is
// held in a variable (qr// value or plain string) PatExpr is set instead
// of Re.
type Match struct {
	base
	Target  Expr // nil means $_
	Re      *RegexLit
	PatExpr Expr
	Negate  bool
}

// Subst is expr =~ s/pat/rep/flags.
type Subst struct {
	base
	Target      Expr // nil means $_
	Pattern     string
	Replacement string
	Flags       string
}

// Trans is expr =~ tr/from/to/flags.
type Trans struct {
	base
	Target   Expr // nil means $_
	From, To string
	Flags    string
}

func (*NumberLit) exprNode() {}
func (*StringLit) exprNode() {}
func (*Var) exprNode()       {}
func (*MyDecl) exprNode()    {}
func (*Elem) exprNode()      {}
func (*Slice) exprNode()     {}
func (*LastIndex) exprNode() {}
func (*Deref) exprNode()     {}
func (*RefOf) exprNode()     {}
func (*SubRef) exprNode()    {}
func (*ListExpr) exprNode()  {}
func (*AnonArray) exprNode() {}
func (*AnonHash) exprNode()  {}
func (*AnonSub) exprNode()   {}
func (*Unary) exprNode()     {}
func (*Binary) exprNode()    {}
func (*Assign) exprNode()    {}
func (*IncDec) exprNode()    {}
func (*Ternary) exprNode()   {}
func (*Call) exprNode()      {}
func (*CallRef) exprNode()   {}
func (*ReadLine) exprNode()  {}
func (*FileTest) exprNode()  {}
func (*RegexLit) exprNode()  {}
func (*Match) exprNode()     {}
func (*Subst) exprNode()     {}
func (*Trans) exprNode()     {}

// --- Statements ---

type Block struct {
	base
	Stmts []Stmt
}

// ModKind is a statement modifier: EXPR if COND; EXPR while COND; ...
type ModKind int

const (
	ModNone ModKind = iota
	ModIf
	ModUnless
	ModWhile
	ModUntil
	ModForeach
)

type ExprStmt struct {
	base
	X   Expr
	Mod ModKind
	// Cond is the modifier condition, or the foreach list.
	Cond Expr
}

type IfStmt struct {
	base
	Cond Expr
	Then *Block
	// Elifs chain elsif clauses; Else may be nil.
	Elifs []IfClause
	Else  *Block
	// Unless negates the condition.
	Unless bool
}

type IfClause struct {
	Cond Expr
	Then *Block
}

type WhileStmt struct {
	base
	Cond  Expr
	Body  *Block
	Until bool
	// Post is set for do {} while; the body runs before the first test.
	Post bool
}

type ForStmt struct {
	base
	Init, Cond, Update Expr // any may be nil
	Body               *Block
}

type ForeachStmt struct {
	base
	// Loop variable; nil aliases $_.
	Var  Expr
	List []Expr
	Body *Block
}

type SubDecl struct {
	base
	Name string
	Body *Block
}

type LoopCtl struct {
	base
	Op TokenType // LAST or NEXT
}

type ReturnStmt struct {
	base
	Val Expr // nil for plain return
}

type BlockStmt struct {
	base
	Body *Block
}

func (*Block) stmtNode()       {}
func (*ExprStmt) stmtNode()    {}
func (*IfStmt) stmtNode()      {}
func (*WhileStmt) stmtNode()   {}
func (*ForStmt) stmtNode()     {}
func (*ForeachStmt) stmtNode() {}
func (*SubDecl) stmtNode()     {}
func (*LoopCtl) stmtNode()     {}
func (*ReturnStmt) stmtNode()  {}
func (*BlockStmt) stmtNode()   {}

// Program is a parsed script with its compile phases separated: BEGIN
// blocks run before the main line, END blocks after.
type Program struct {
	Begins []*Block
	Mains  []Stmt
	Ends   []*Block
}
