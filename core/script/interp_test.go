package script

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHost is an in-memory Host: canned streams, a map of files, and a
// pinned clock so time-dependent output is stable.
type testHost struct {
	stdin  io.Reader
	stdout bytes.Buffer
	stderr bytes.Buffer

	env   []string
	args  []string
	files map[string][]byte
	dirs  map[string]bool

	ran        [][]string
	runExit    int
	captureOut string
}

func newTestHost(args ...string) *testHost {
	if len(args) == 0 {
		args = []string{"t.pl"}
	}
	return &testHost{
		stdin: strings.NewReader(""),
		env:   []string{"HOME=/home/alex", "PATH=/usr/bin:/bin", "USER=alex"},
		args:  args,
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (h *testHost) Stdin() io.Reader  { return h.stdin }
func (h *testHost) Stdout() io.Writer { return &h.stdout }
func (h *testHost) Stderr() io.Writer { return &h.stderr }
func (h *testHost) Environ() []string { return h.env }
func (h *testHost) Args() []string    { return h.args }

func (h *testHost) Open(name string) (io.ReadCloser, error) {
	data, ok := h.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (h *testHost) Create(name string) (io.WriteCloser, error) {
	h.files[name] = nil
	return &testFileWriter{host: h, name: name}, nil
}

func (h *testHost) Append(name string) (io.WriteCloser, error) {
	return &testFileWriter{host: h, name: name}, nil
}

func (h *testHost) Remove(name string) error {
	if _, ok := h.files[name]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(h.files, name)
	return nil
}

func (h *testHost) Rename(oldname, newname string) error {
	data, ok := h.files[oldname]
	if !ok {
		return &fs.PathError{Op: "rename", Path: oldname, Err: fs.ErrNotExist}
	}
	delete(h.files, oldname)
	h.files[newname] = data
	return nil
}

func (h *testHost) Mkdir(name string) error {
	h.dirs[name] = true
	return nil
}

func (h *testHost) Stat(name string) (fs.FileInfo, error) {
	if h.dirs[name] {
		return testFileInfo{name: path.Base(name), dir: true, mod: h.Now()}, nil
	}
	data, ok := h.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return testFileInfo{name: path.Base(name), size: int64(len(data)), mod: h.Now()}, nil
}

func (h *testHost) Glob(pattern string) ([]string, error) {
	var names []string
	for name := range h.files {
		if ok, _ := path.Match(pattern, name); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (h *testHost) Now() time.Time {
	return time.Date(2006, 1, 2, 3, 4, 5, 0, time.UTC)
}

func (h *testHost) Interactive() bool { return false }

func (h *testHost) Run(argv []string) (int, error) {
	h.ran = append(h.ran, argv)
	return h.runExit, nil
}

func (h *testHost) Capture(argv []string) (string, int, error) {
	h.ran = append(h.ran, argv)
	return h.captureOut, h.runExit, nil
}

type testFileWriter struct {
	host *testHost
	name string
}

func (w *testFileWriter) Write(p []byte) (int, error) {
	w.host.files[w.name] = append(w.host.files[w.name], p...)
	return len(p), nil
}

func (w *testFileWriter) Close() error { return nil }

type testFileInfo struct {
	name string
	size int64
	dir  bool
	mod  time.Time
}

func (fi testFileInfo) Name() string { return fi.name }
func (fi testFileInfo) Size() int64  { return fi.size }
func (fi testFileInfo) Mode() fs.FileMode {
	if fi.dir {
		return fs.ModeDir | 0755
	}
	return 0644
}
func (fi testFileInfo) ModTime() time.Time { return fi.mod }
func (fi testFileInfo) IsDir() bool        { return fi.dir }
func (fi testFileInfo) Sys() interface{}   { return nil }

// runCode executes src against a fresh host and returns its stdout,
// failing the test on a parse error, runtime error, or nonzero exit.
func runCode(t *testing.T, src string) string {
	t.Helper()
	host := newTestHost()
	out, code := runCodeHost(t, host, src)
	require.Equal(t, 0, code, "exit status; stderr: %s", host.stderr.String())
	return out
}

// runCodeHost executes src against host and returns stdout and the exit
// status. Runtime errors are rendered to stderr the way the driver does.
func runCodeHost(t *testing.T, host *testHost, src string) (string, int) {
	t.Helper()
	prog, err := Parse(src)
	require.NoError(t, err)

	in := NewInterp(host)
	code, err := in.RunProgram(prog)
	if err != nil {
		host.stderr.WriteString(err.Error())
	}
	return host.stdout.String(), code
}

// scriptCases maps a test name to a source snippet and its expected
// stdout.
type scriptCases map[string]struct {
	Src  string
	Want string
}

func (sc scriptCases) Run(t *testing.T) {
	t.Helper()
	for tn, tc := range sc {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.Want, runCode(t, tc.Src))
		})
	}
}

func TestRun_scalars(t *testing.T) {
	cases := scriptCases{
		"assign and print":   {`my $x = 5; print $x;`, "5"},
		"interpolation":      {`my $name = "world"; print "hello $name\n";`, "hello world\n"},
		"single quotes":      {`my $name = "world"; print 'hello $name';`, "hello $name"},
		"undef prints empty": {`my $u; print "[$u]";`, "[]"},
		"swap":               {`my ($x, $y) = (1, 2); ($x, $y) = ($y, $x); print "$x$y";`, "21"},
		"chained assign":     {`my $x; my $y; $x = $y = 7; print "$x$y";`, "77"},
		"global without my":  {`$count = 3; print $count;`, "3"},
	}
	cases.Run(t)
}

func TestRun_stringsAndNumbers(t *testing.T) {
	cases := scriptCases{
		"string plus number":  {`print "42" + 8;`, "50"},
		"leading prefix":      {`print "3 apples" + 4;`, "7"},
		"no prefix is zero":   {`print "apples" + 1;`, "1"},
		"concat numbers":      {`print 10 . 3;`, "103"},
		"numeric eq":          {`print "10" == "10.0" ? "y" : "n";`, "y"},
		"string eq":           {`print "10" eq "10.0" ? "y" : "n";`, "n"},
		"spaceship":           {`print 2 <=> 10, " ", "2" cmp "10";`, "-1 1"},
		"exponent":            {`print 2 ** 10;`, "1024"},
		"integer division":    {`print 7 / 2;`, "3.5"},
		"modulus":             {`print 7 % 3, " ", -7 % 3;`, "1 2"},
		"string repeat":       {`print "ab" x 3;`, "ababab"},
		"clean integer print": {`print 0.5 + 0.5;`, "1"},
	}
	cases.Run(t)
}

func TestRun_truthiness(t *testing.T) {
	cases := scriptCases{
		"zero":        {`print 0 ? "T" : "F";`, "F"},
		"string zero": {`print "0" ? "T" : "F";`, "F"},
		"empty":       {`print "" ? "T" : "F";`, "F"},
		"undef":       {`my $u; print $u ? "T" : "F";`, "F"},
		"double zero": {`print "00" ? "T" : "F";`, "T"},
		"zero point":  {`print "0.0" ? "T" : "F";`, "T"},
		"one":         {`print 1 ? "T" : "F";`, "T"},
		"word":        {`print "false" ? "T" : "F";`, "T"},
	}
	cases.Run(t)
}

func TestRun_arrays(t *testing.T) {
	cases := scriptCases{
		"list assign":     {`my @a = (1, 2, 3); print "@a";`, "1 2 3"},
		"index":           {`my @a = ("x", "y", "z"); print $a[1];`, "y"},
		"negative index":  {`my @a = ("x", "y", "z"); print $a[-1];`, "z"},
		"last index":      {`my @a = (1, 2, 3); print $#a;`, "2"},
		"scalar context":  {`my @a = (1, 2, 3); my $n = @a; print $n;`, "3"},
		"scalar builtin":  {`my @a = (4, 5); print scalar(@a);`, "2"},
		"push pop":        {`my @a; push @a, 1, 2; push @a, 3; print pop @a; print "@a";`, "31 2"},
		"shift unshift":   {`my @a = (2, 3); unshift @a, 1; print shift @a; print "@a";`, "12 3"},
		"slice":           {`my @a = (10, 20, 30, 40); my @s = @a[1, 3]; print "@s";`, "20 40"},
		"range slice":     {`my @a = ("a" .. "e"); print "@a[1 .. 3]";`, "b c d"},
		"reverse":         {`print join(",", reverse(1, 2, 3));`, "3,2,1"},
		"flatten":         {`my @a = (1, 2); my @b = (@a, 3); print scalar(@b);`, "3"},
		"empty is false":  {`my @a; print @a ? "T" : "F";`, "F"},
		"assign expands":  {`my @a; $a[3] = "x"; print scalar(@a);`, "4"},
		"splice":          {`my @a = (1, 2, 3, 4); splice(@a, 1, 2); print "@a";`, "1 4"},
		"list in string":  {`my @a = (1, 2); print "have @a here";`, "have 1 2 here"},
		"join":            {`print join("-", "a", "b", "c");`, "a-b-c"},
		"repeat list":     {`my @a = (0) x 3; print "@a";`, "0 0 0"},
		"numeric context": {`my @a = (1, 2, 3); print 0 + @a;`, "3"},
	}
	cases.Run(t)
}

func TestRun_hashes(t *testing.T) {
	cases := scriptCases{
		"store fetch":    {`my %h; $h{name} = "ada"; print $h{name};`, "ada"},
		"list init":      {`my %h = (a => 1, b => 2); print $h{b};`, "2"},
		"fat comma":      {`my %h = (one => 1); print $h{"one"};`, "1"},
		"keys sorted":    {`my %h = (b => 2, a => 1, c => 3); print join(",", keys %h);`, "a,b,c"},
		"values":         {`my %h = (b => 2, a => 1); print join(",", values %h);`, "1,2"},
		"exists":         {`my %h = (k => undef); print exists $h{k} ? "y" : "n";`, "y"},
		"defined no":     {`my %h = (k => undef); print defined $h{k} ? "y" : "n";`, "n"},
		"delete":         {`my %h = (a => 1, b => 2); delete $h{a}; print join(",", keys %h);`, "b"},
		"hash slice":     {`my %h = (a => 1, b => 2, c => 3); my @v = @h{"a", "c"}; print "@v";`, "1 3"},
		"count":          {`my %h = (a => 1, b => 2); print scalar(keys %h);`, "2"},
		"each":           {`my %h = (a => 1, b => 2); while (my ($k, $v) = each %h) { print "$k=$v;"; }`, "a=1;b=2;"},
		"missing undef":  {`my %h; print defined $h{nope} ? "y" : "n";`, "n"},
		"invert":         {`my %h = (a => 1); my %r = reverse %h; print $r{1};`, "a"},
		"nested":         {`my %h; $h{x}{y} = "deep"; print $h{x}{y};`, "deep"},
		"mixed counts":   {`my %h = (a => 1, b => 2); my @pairs = %h; print scalar(@pairs);`, "4"},
	}
	cases.Run(t)
}

func TestRun_control(t *testing.T) {
	cases := scriptCases{
		"if elsif else":  {`my $n = 5; if ($n > 9) { print "big" } elsif ($n > 3) { print "mid" } else { print "small" }`, "mid"},
		"unless":         {`unless (0) { print "ran" }`, "ran"},
		"postfix if":     {`print "yes" if 1;`, "yes"},
		"postfix unless": {`print "no" unless 1; print "done";`, "done"},
		"while":          {`my $i = 0; while ($i < 3) { print $i; $i++ }`, "012"},
		"until":          {`my $i = 0; until ($i == 3) { print $i; $i++ }`, "012"},
		"c style for":    {`for (my $i = 0; $i < 3; $i++) { print $i }`, "012"},
		"foreach":        {`foreach my $x (10, 20) { print "$x;" }`, "10;20;"},
		"foreach topic":  {`for (1, 2, 3) { print }`, "123"},
		"last":           {`for my $i (1 .. 10) { last if $i > 3; print $i }`, "123"},
		"next":           {`for my $i (1 .. 5) { next if $i % 2; print $i }`, "24"},
		"do while":       {`my $i = 9; do { print $i; $i++ } while ($i < 3);`, "9"},
		"postfix for":    {`print for 1 .. 3;`, "123"},
		"ternary":        {`print 1 ? "a" : "b";`, "a"},
		"nested loops":   {`for my $i (1, 2) { for my $j (1, 2) { print "$i$j " } }`, "11 12 21 22 "},
	}
	cases.Run(t)
}

func TestRun_foreachAliases(t *testing.T) {
	// The loop variable is the element, not a copy.
	out := runCode(t, `my @a = (1, 2, 3); for my $x (@a) { $x *= 2 } print "@a";`)
	assert.Equal(t, "2 4 6", out)

	out = runCode(t, `my @a = (1, 2, 3); $_ *= 10 for @a; print "@a";`)
	assert.Equal(t, "10 20 30", out)
}

func TestRun_subs(t *testing.T) {
	cases := scriptCases{
		"basic": {`sub greet { return "hi" } print greet();`, "hi"},
		"args":  {`sub add { my ($a, $b) = @_; return $a + $b } print add(2, 3);`, "5"},
		"implicit return": {`sub last_expr { 42 } print last_expr();`, "42"},
		"list return":     {`sub pair { return (1, 2) } my @p = pair(); print "@p";`, "1 2"},
		"recursion":       {`sub fib { my $n = shift; return $n < 2 ? $n : fib($n - 1) + fib($n - 2) } print fib(10);`, "55"},
		"defaults shift":  {`sub first { shift } print first("a", "b");`, "a"},
		"call before def": {`print double(21); sub double { return 2 * $_[0] }`, "42"},
		"amp call":        {`sub f { "sub" } print &f();`, "sub"},
		"arg alias":       {`sub bump { $_[0]++ } my $n = 5; bump($n); print $n;`, "6"},
		"nested calls":    {`sub inc { return $_[0] + 1 } print inc(inc(inc(0)));`, "3"},
		"array args flatten": {`sub count { return scalar(@_) } my @a = (1, 2); print count(@a, 3);`, "3"},
	}
	cases.Run(t)
}

func TestRun_closures(t *testing.T) {
	out := runCode(t, `
sub make_counter {
    my $n = 0;
    return sub { return ++$n };
}
my $c = make_counter();
my $d = make_counter();
print $c->(), $c->(), $c->(), $d->();
`)
	assert.Equal(t, "1231", out)
}

func TestRun_references(t *testing.T) {
	cases := scriptCases{
		"array ref":        {`my @a = (1, 2, 3); my $r = \@a; print $r->[1];`, "2"},
		"hash ref":         {`my %h = (k => "v"); my $r = \%h; print $r->{k};`, "v"},
		"scalar ref":       {`my $x = 10; my $r = \$x; print $$r;`, "10"},
		"write through":    {`my $x = 1; my $r = \$x; $$r = 99; print $x;`, "99"},
		"anon array":       {`my $r = [1, [2, 3]]; print $r->[1][0];`, "2"},
		"anon hash":        {`my $r = {a => {b => "c"}}; print $r->{a}{b};`, "c"},
		"deref array":      {`my $r = [5, 6]; my @copy = @$r; print "@copy";`, "5 6"},
		"deref hash keys":  {`my $r = {x => 1, y => 2}; print join(",", sort keys %$r);`, "x,y"},
		"ref of ref":       {`my $x = "deep"; my $rr = \\$x; print $$$rr;`, "deep"},
		"ref builtin":      {`print ref([]), " ", ref({}), " ", ref(\1), " ", ref(sub {});`, "ARRAY HASH SCALAR CODE"},
		"ref on plain":     {`my $s = "x"; print ref($s) eq "" ? "plain" : "ref";`, "plain"},
		"aoh":              {`my @rows = ({n => 1}, {n => 2}); print $rows[1]{n};`, "2"},
		"hoa":              {`my %h = (list => [10, 20]); print $h{list}[1];`, "20"},
		"autovivify":       {`my %h; $h{a}{b}{c} = 1; print exists $h{a}{b} ? "made" : "no";`, "made"},
		"arrow chains":     {`my $data = {rows => [[1, 2], [3, 4]]}; print $data->{rows}[1][0];`, "3"},
		"ref stringify":    {`my $r = []; print $r =~ /^ARRAY\(0x[0-9a-f]+\)$/ ? "ok" : "bad";`, "ok"},
		"refs are true":    {`print [] ? "T" : "F";`, "T"},
		"scalar deref arrow": {`my @a = (7); my $r = \@a; print $r->[0];`, "7"},
		"push through ref": {`my $r = []; push @$r, "x"; print scalar(@$r);`, "1"},
	}
	cases.Run(t)
}

func TestRun_context(t *testing.T) {
	cases := scriptCases{
		"array scalar ctx":   {`my @a = (1, 2, 3); my $n = @a; print $n;`, "3"},
		"list of array":      {`my @a = (1, 2, 3); my ($first) = @a; print $first;`, "1"},
		"forced scalar":      {`my @a = (7, 8); print "count: " . @a;`, "count: 2"},
		"list assign count":  {`my $n = () = (1, 2, 3, 4); print $n;`, "4"},
		"reverse scalar":     {`print scalar reverse("abc");`, "cba"},
		"hash scalar truthy": {`my %h = (a => 1); print %h ? "full" : "empty";`, "full"},
	}
	cases.Run(t)
}

func TestRun_stringBuiltins(t *testing.T) {
	cases := scriptCases{
		"length":        {`print length("hello");`, "5"},
		"length undef":  {`my $u; print defined(length($u)) ? "def" : "undef";`, "undef"},
		"substr":        {`print substr("hello world", 6);`, "world"},
		"substr len":    {`print substr("hello", 1, 3);`, "ell"},
		"substr neg":    {`print substr("hello", -3, 2);`, "ll"},
		"substr replace": {`my $s = "hello"; substr($s, 0, 1, "J"); print $s;`, "Jello"},
		"index":         {`print index("hello", "l");`, "2"},
		"index missing": {`print index("hello", "z");`, "-1"},
		"rindex":        {`print rindex("hello", "l");`, "3"},
		"uc lc":         {`print uc("mix") . lc("MIX");`, "MIXmix"},
		"ucfirst":       {`print ucfirst("perl") . lcfirst("PERL");`, "PerlpERL"},
		"sprintf":       {`print sprintf("%05.2f|%d|%s", 3.14159, 42.9, "x");`, "03.14|42|x"},
		"sprintf hex":   {`print sprintf("%x %o %b %e", 255, 8, 5, 12345);`, "ff 10 101 1.234500e+04"},
		"chomp":         {`my $s = "line\n"; chomp $s; print "[$s]";`, "[line]"},
		"chomp returns": {`my $s = "x\n"; my $n = chomp $s; print $n;`, "1"},
		"chop":          {`my $s = "cart"; chop $s; print $s;`, "car"},
		"chr ord":       {`print chr(65), ord("A");`, "A65"},
		"hex oct":       {`print hex("ff"), " ", oct("0x10"), " ", oct("755");`, "255 16 493"},
		"lc on topic":   {`$_ = "ABC"; print lc;`, "abc"},
		"quotemeta":     {`print quotemeta("a.b*c");`, "a\\.b\\*c"},
	}
	cases.Run(t)
}

func TestRun_numericBuiltins(t *testing.T) {
	cases := scriptCases{
		"abs":      {`print abs(-7.5);`, "7.5"},
		"int":      {`print int(3.7), " ", int(-3.7);`, "3 -3"},
		"sqrt":     {`print sqrt(144);`, "12"},
		"exp log":  {`print log(exp(1));`, "1"},
		"atan2":    {`printf "%.5f", atan2(1, 1);`, "0.78540"},
		"hex sums": {`print 0x10 + 0b101 + 0o17;`, "36"},
	}
	cases.Run(t)
}

func TestRun_sortMapGrep(t *testing.T) {
	cases := scriptCases{
		"sort default":  {`print join(",", sort(10, 9, 100));`, "10,100,9"},
		"sort numeric":  {`print join(",", sort { $a <=> $b } 10, 9, 100);`, "9,10,100"},
		"sort reverse":  {`print join(",", sort { $b cmp $a } "a", "c", "b");`, "c,b,a"},
		"sort by value": {`my %age = (ada => 36, bob => 25); print join(",", sort { $age{$a} <=> $age{$b} } keys %age);`, "bob,ada"},
		"map":           {`print join(",", map { $_ * 2 } 1, 2, 3);`, "2,4,6"},
		"map expr":      {`print join(",", map uc, "a", "b");`, "A,B"},
		"map expand":    {`print scalar(my @x = map { ($_, $_) } 1, 2);`, "4"},
		"grep":          {`print join(",", grep { $_ % 2 } 1 .. 6);`, "1,3,5"},
		"grep regex":    {`print join(",", grep { /o/ } "one", "two", "three");`, "one,two"},
		"grep count":    {`my $n = grep { $_ > 2 } 1 .. 5; print $n;`, "3"},
		"chained":       {`print join(",", sort { $a <=> $b } map { $_ * 2 } grep { $_ % 2 } 5, 2, 3);`, "6,10"},
	}
	cases.Run(t)
}

func TestRun_regex(t *testing.T) {
	cases := scriptCases{
		"match":           {`print "hello" =~ /ell/ ? "y" : "n";`, "y"},
		"no match":        {`print "hello" =~ /xyz/ ? "y" : "n";`, "n"},
		"negated":         {`print "hello" !~ /xyz/ ? "y" : "n";`, "y"},
		"captures":        {`"2026-08-23" =~ /(\d+)-(\d+)/; print "$1 $2";`, "2026 08"},
		"capture list":    {`my ($y, $m) = "2026-08" =~ /(\d+)-(\d+)/; print "$y/$m";`, "2026/08"},
		"topic match":     {`$_ = "abc"; print /b/ ? "y" : "n";`, "y"},
		"case fold":       {`print "HELLO" =~ /hello/i ? "y" : "n";`, "y"},
		"global list":     {`my @n = "1a2b3" =~ /(\d)/g; print "@n";`, "1 2 3"},
		"global count":    {`my $n = () = "aaa" =~ /a/g; print $n;`, "3"},
		"subst":           {`my $s = "dog bites dog"; $s =~ s/dog/cat/; print $s;`, "cat bites dog"},
		"subst global":    {`my $s = "dog bites dog"; $s =~ s/dog/cat/g; print $s;`, "cat bites cat"},
		"subst count":     {`my $s = "aaa"; my $n = ($s =~ s/a/b/g); print $n;`, "3"},
		"subst backref":   {`my $s = "john smith"; $s =~ s/(\w+) (\w+)/$2, $1/; print $s;`, "smith, john"},
		"subst r flag":    {`my $s = "abc"; my $t = $s =~ s/b/X/r; print "$s $t";`, "abc aXc"},
		"tr count":        {`my $s = "banana"; my $n = ($s =~ tr/a/A/); print "$s $n";`, "bAnAnA 3"},
		"tr ranges":       {`my $s = "Hello"; $s =~ tr/a-z/A-Z/; print $s;`, "HELLO"},
		"anchors":         {`print "hat" =~ /^h.t$/ ? "y" : "n";`, "y"},
		"alternation":     {`print "cat" =~ /^(cat|dog)$/ ? $1 : "no";`, "cat"},
		"quantifier":      {`print "aaab" =~ /^a{2,3}b$/ ? "y" : "n";`, "y"},
		"class":           {`my @hits = "a1 b2" =~ /([a-z])(\d)/g; print "@hits";`, "a 1 b 2"},
		"prematch":        {"\"abcdef\" =~ /cd/; print \"$` [$&] $'\";", "ab [cd] ef"},
		"dollar under":    {`$_ = "x=1"; s/=/ is /; print;`, "x is 1"},
		"scalar g walk":   {`my $s = "a1b2"; my @out; while ($s =~ /(\d)/g) { push @out, $1 } print "@out";`, "1 2"},
		"interp pattern":  {`my $re = "l+"; print "hello" =~ /he$re/ ? "y" : "n";`, "y"},
		"qr object":       {`my $re = qr/\d+/; print "a42" =~ $re ? "y" : "n";`, "y"},
	}
	cases.Run(t)
}

func TestRun_split(t *testing.T) {
	cases := scriptCases{
		"basic":          {`print join("|", split(/,/, "a,b,c"));`, "a|b|c"},
		"awk default":    {`print join("|", split(" ", "  a  b c "));`, "a|b|c"},
		"limit":          {`print join("|", split(/,/, "a,b,c,d", 2));`, "a|b,c,d"},
		"trailing empty": {`print scalar(my @f = split(/,/, "a,b,,,"));`, "2"},
		"keep captures":  {`print join("|", split(/(-)/, "a-b"));`, "a|-|b"},
		"empty pattern":  {`print join("|", split(//, "abc"));`, "a|b|c"},
		"topic default":  {`$_ = "x y z"; print join(",", split);`, "x,y,z"},
		"char class":     {`print join("|", split(/[,;]/, "a,b;c"));`, "a|b|c"},
	}
	cases.Run(t)
}

func TestRun_specialVars(t *testing.T) {
	host := newTestHost("t.pl", "one", "two")
	out, code := runCodeHost(t, host, `print "$0 @ARGV ", scalar(@ARGV);`)
	assert.Equal(t, 0, code)
	assert.Equal(t, "t.pl one two 2", out)

	cases := scriptCases{
		"list separator":   {`my @a = (1, 2); $" = "-"; print "@a";`, "1-2"},
		"output separator": {`$, = ","; print "a", "b";`, "a,b"},
		"output terminator": {`$\ = "!\n"; print "done";`, "done!\n"},
		"env":              {`print $ENV{USER};`, "alex"},
		"env exists":       {`print exists $ENV{HOME} ? "y" : "n";`, "y"},
	}
	cases.Run(t)
}

func TestRun_globalsAcrossSubs(t *testing.T) {
	out := runCode(t, `
$x = "shared";
sub show { print $x }
show();
$x = "changed";
show();
`)
	assert.Equal(t, "sharedchanged", out)
}

func TestRun_evalDie(t *testing.T) {
	cases := scriptCases{
		"catch":        {`eval { die "boom\n" }; print "got: $@";`, "got: boom\n"},
		"no error":     {`eval { 1 }; print $@ eq "" ? "clean" : "dirty";`, "clean"},
		"die position": {`eval { die "oops" }; print $@ =~ /^oops at t\.pl line \d+\.$/m ? "tagged" : $@;`, "tagged"},
		"nested":       {`eval { eval { die "inner\n" }; print "mid: $@"; die "outer\n" }; print "out: $@";`, "mid: inner\nout: outer\n"},
		"die ref":      {`eval { die {code => 42} }; print $@->{code};`, "42"},
		"eval value":   {`my $v = eval { "fine" }; print $v;`, "fine"},
		"eval fails":   {`my $v = eval { die "x\n"; "unreached" }; print defined $v ? "def" : "undef";`, "undef"},
	}
	cases.Run(t)
}

func TestRun_dieExitStatus(t *testing.T) {
	host := newTestHost()
	out, code := runCodeHost(t, host, `print "before\n"; die "fatal error\n"; print "after\n";`)

	assert.Equal(t, "before\n", out)
	assert.Equal(t, 255, code)
	assert.Contains(t, host.stderr.String(), "fatal error")
}

func TestRun_exitStatus(t *testing.T) {
	host := newTestHost()
	out, code := runCodeHost(t, host, `print "a"; exit 3; print "b";`)

	assert.Equal(t, "a", out)
	assert.Equal(t, 3, code)
}

func TestRun_beginEnd(t *testing.T) {
	out := runCode(t, `
END { print "end1 " }
print "main ";
BEGIN { print "begin " }
END { print "end2" }
`)
	assert.Equal(t, "begin main end1 end2", out)

	// exit still runs END blocks.
	host := newTestHost()
	got, code := runCodeHost(t, host, `END { print "cleanup" } exit 7;`)
	assert.Equal(t, "cleanup", got)
	assert.Equal(t, 7, code)
}

func TestRun_ranges(t *testing.T) {
	cases := scriptCases{
		"numeric":   {`print join(",", 1 .. 5);`, "1,2,3,4,5"},
		"letters":   {`print join("", "a" .. "e");`, "abcde"},
		"backwards": {`print scalar(my @r = (5 .. 1));`, "0"},
		"in loop":   {`print $_ for 1 .. 3;`, "123"},
	}
	cases.Run(t)
}

func TestRun_stdinLoop(t *testing.T) {
	host := newTestHost()
	host.stdin = strings.NewReader("pearl\nonion\nleek\n")

	out, code := runCodeHost(t, host, `while (<STDIN>) { chomp; print "$.:$_ " }`)
	assert.Equal(t, 0, code)
	assert.Equal(t, "1:pearl 2:onion 3:leek ", out)
}

func TestRun_diamondReadsArgvFiles(t *testing.T) {
	host := newTestHost("t.pl", "a.txt", "b.txt")
	host.files["a.txt"] = []byte("first\n")
	host.files["b.txt"] = []byte("second\n")

	out, code := runCodeHost(t, host, `while (<>) { print "$ARGV: $_" }`)
	assert.Equal(t, 0, code)
	assert.Equal(t, "a.txt: first\nb.txt: second\n", out)
}

func TestRun_diamondFallsBackToStdin(t *testing.T) {
	host := newTestHost()
	host.stdin = strings.NewReader("from stdin\n")

	out, code := runCodeHost(t, host, `while (<>) { print }`)
	assert.Equal(t, 0, code)
	assert.Equal(t, "from stdin\n", out)
}

func TestRun_lineNumbersAccumulate(t *testing.T) {
	host := newTestHost("t.pl", "a.txt", "b.txt")
	host.files["a.txt"] = []byte("1\n2\n")
	host.files["b.txt"] = []byte("3\n")

	out, _ := runCodeHost(t, host, `while (<>) { print $. } print "|", $.;`)
	assert.Equal(t, "123|3", out)
}

func TestRun_flipFlopLineRanges(t *testing.T) {
	host := newTestHost("t.pl", "f.txt")
	host.files["f.txt"] = []byte("a\nb\nc\nd\ne\n")

	out, _ := runCodeHost(t, host, `while (<>) { print if 2 .. 4 }`)
	assert.Equal(t, "b\nc\nd\n", out)
}

func TestRun_fileIO(t *testing.T) {
	host := newTestHost()

	_, code := runCodeHost(t, host, `
open(my $out, ">", "notes.txt") or die "open: $!";
print $out "line one\n";
print $out "line two\n";
close($out);
`)
	assert.Equal(t, 0, code)
	assert.Equal(t, "line one\nline two\n", string(host.files["notes.txt"]))

	host2 := newTestHost()
	host2.files["in.txt"] = []byte("alpha\nbeta\n")
	out, code := runCodeHost(t, host2, `
open(my $fh, "<", "in.txt") or die;
while (my $line = <$fh>) { chomp $line; print "[$line]" }
close($fh);
`)
	assert.Equal(t, 0, code)
	assert.Equal(t, "[alpha][beta]", out)
}

func TestRun_fileIOAppend(t *testing.T) {
	host := newTestHost()
	host.files["log.txt"] = []byte("old\n")

	_, code := runCodeHost(t, host, `open(my $fh, ">>", "log.txt") or die; print $fh "new\n"; close $fh;`)
	assert.Equal(t, 0, code)
	assert.Equal(t, "old\nnew\n", string(host.files["log.txt"]))
}

func TestRun_openFailureSetsErrno(t *testing.T) {
	host := newTestHost()
	out, code := runCodeHost(t, host, `
if (open(my $fh, "<", "missing.txt")) { print "opened" }
else { print "no: $!" }
`)
	assert.Equal(t, 0, code)
	assert.Equal(t, "no: No such file or directory", out)
}

func TestRun_barewordHandles(t *testing.T) {
	host := newTestHost()
	host.files["data.txt"] = []byte("x\ny\n")

	out, code := runCodeHost(t, host, `
open(FH, "<", "data.txt") or die;
my @lines = <FH>;
close(FH);
print scalar(@lines), ":", $lines[0];
`)
	assert.Equal(t, 0, code)
	assert.Equal(t, "2:x\n", out)
}

func TestRun_slurpMode(t *testing.T) {
	host := newTestHost()
	host.files["all.txt"] = []byte("a\nb\nc")

	out, _ := runCodeHost(t, host, `
open(my $fh, "<", "all.txt") or die;
undef $/;
my $all = <$fh>;
print length($all);
`)
	assert.Equal(t, "5", out)
}

func TestRun_printStderr(t *testing.T) {
	host := newTestHost()
	out, code := runCodeHost(t, host, `print STDERR "warning\n"; print STDOUT "normal\n";`)

	assert.Equal(t, 0, code)
	assert.Equal(t, "normal\n", out)
	assert.Equal(t, "warning\n", host.stderr.String())
}

func TestRun_warnGoesToStderr(t *testing.T) {
	host := newTestHost()
	out, code := runCodeHost(t, host, `warn "careful\n"; print "ok";`)

	assert.Equal(t, 0, code)
	assert.Equal(t, "ok", out)
	assert.Equal(t, "careful\n", host.stderr.String())
}

func TestRun_fileTests(t *testing.T) {
	host := newTestHost()
	host.files["present.txt"] = []byte("data")
	host.dirs["subdir"] = true

	out, _ := runCodeHost(t, host, `
print -e "present.txt" ? "e" : "-";
print -f "present.txt" ? "f" : "-";
print -d "subdir" ? "d" : "-";
print -e "ghost.txt" ? "e" : "-";
print -s "present.txt";
`)
	assert.Equal(t, "efd-4", out)
}

func TestRun_unlinkRename(t *testing.T) {
	host := newTestHost()
	host.files["old.txt"] = []byte("v")
	host.files["gone.txt"] = []byte("x")

	_, code := runCodeHost(t, host, `
rename("old.txt", "new.txt") or die "rename: $!";
unlink("gone.txt") or die "unlink: $!";
`)
	assert.Equal(t, 0, code)
	assert.Contains(t, host.files, "new.txt")
	assert.NotContains(t, host.files, "old.txt")
	assert.NotContains(t, host.files, "gone.txt")
}

func TestRun_system(t *testing.T) {
	host := newTestHost()
	out, code := runCodeHost(t, host, `my $rc = system("ls", "-l"); print $rc, " ", $? >> 8;`)

	assert.Equal(t, 0, code)
	assert.Equal(t, "0 0", out)
	require.Len(t, host.ran, 1)
	assert.Equal(t, []string{"ls", "-l"}, host.ran[0])
}

func TestRun_backticks(t *testing.T) {
	host := newTestHost()
	host.captureOut = "one\ntwo\n"

	out, code := runCodeHost(t, host, "my @lines = `ls`; print scalar(@lines), \":\", $lines[0];")
	assert.Equal(t, 0, code)
	assert.Equal(t, "2:one\n", out)
}

func TestRun_timeBuiltins(t *testing.T) {
	cases := scriptCases{
		"epoch":     {`print time;`, "1136171045"},
		"ctime":     {`print scalar(localtime);`, "Mon Jan  2 03:04:05 2006"},
		"gmtime at": {`print scalar(gmtime(0));`, "Thu Jan  1 00:00:00 1970"},
		"fields":    {`my @t = localtime; print "$t[5] $t[4] $t[3]";`, "106 0 2"},
	}
	cases.Run(t)
}

func TestRun_randDeterministic(t *testing.T) {
	// Identical seeds give identical streams.
	a := runCode(t, `srand(42); print int(rand(100)), ",", int(rand(100));`)
	b := runCode(t, `srand(42); print int(rand(100)), ",", int(rand(100));`)
	assert.Equal(t, a, b)

	out := runCode(t, `srand(1); my $r = rand(10); print $r >= 0 && $r < 10 ? "in" : "out";`)
	assert.Equal(t, "in", out)
}

func TestRun_json(t *testing.T) {
	cases := scriptCases{
		"encode hash":   {`print to_json({b => 2, a => 1});`, `{"a":1,"b":2}`},
		"encode array":  {`print to_json([1, "two", [3]]);`, `[1,"two",[3]]`},
		"encode nested": {`print to_json({rows => [{id => 1}]});`, `{"rows":[{"id":1}]}`},
		"decode":        {`my $d = from_json('{"name":"ada","tags":["a","b"]}'); print $d->{name}, "-", $d->{tags}[1];`, "ada-b"},
		"round trip":    {`my $d = from_json(to_json({n => 5})); print $d->{n};`, "5"},
	}
	cases.Run(t)
}

func TestRun_sprintfVectors(t *testing.T) {
	cases := scriptCases{
		"padding":   {`printf "%-5s|%5s|", "ab", "cd";`, "ab   |   cd|"},
		"zero pad":  {`printf "%03d", 7;`, "007"},
		"star":      {`printf "%*d", 5, 42;`, "   42"},
		"percent":   {`printf "%d%%", 99;`, "99%"},
		"truncate":  {`printf "%d", 3.9;`, "3"},
		"string num": {`printf "%d", "42abc";`, "42"},
	}
	cases.Run(t)
}

func TestRun_stringIncrement(t *testing.T) {
	out := runCode(t, `my $id = "aa9"; $id++; print $id;`)
	assert.Equal(t, "ab0", out)
}

func TestRun_chainedStringOps(t *testing.T) {
	cases := scriptCases{
		"dot equals":    {`my $s = "a"; $s .= "b"; $s .= "c"; print $s;`, "abc"},
		"plus equals":   {`my $n = 1; $n += 2; $n *= 3; print $n;`, "9"},
		"or equals":     {`my $x; $x ||= "default"; print $x;`, "default"},
		"or eq false":   {`my $x = 0; $x ||= 5; print $x;`, "5"},
		"defined or":    {`my $x = 0; $x //= 5; print $x;`, "0"},
		"x equals":      {`my $s = "ab"; $s x= 2; print $s;`, "abab"},
	}
	cases.Run(t)
}

func TestRun_waitsOnlyInteractive(t *testing.T) {
	// The fixture host is non-interactive, so sleep returns at once.
	start := time.Now()
	out := runCode(t, `sleep 60; print "awake";`)
	assert.Equal(t, "awake", out)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRun_undefAndDefined(t *testing.T) {
	cases := scriptCases{
		"undef var":     {`my $x = 5; undef $x; print defined $x ? "d" : "u";`, "u"},
		"undef literal": {`print defined undef ? "d" : "u";`, "u"},
		"undef array":   {`my @a = (1, 2); undef @a; print scalar(@a);`, "0"},
		"undef hash":    {`my %h = (a => 1); undef %h; print scalar(keys %h);`, "0"},
		"defined zero":  {`my $z = 0; print defined $z ? "d" : "u";`, "d"},
	}
	cases.Run(t)
}

func TestRun_parseError(t *testing.T) {
	_, err := Parse(`my $x = ;`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
}

func TestRun_unknownSub(t *testing.T) {
	host := newTestHost()
	_, code := runCodeHost(t, host, `no_such_function(1);`)
	assert.Equal(t, 255, code)
	assert.Contains(t, host.stderr.String(), "Undefined subroutine &main::no_such_function called")
}

func TestRun_divByZero(t *testing.T) {
	host := newTestHost()
	_, code := runCodeHost(t, host, `print 1 / 0;`)
	assert.Equal(t, 255, code)
	assert.Contains(t, host.stderr.String(), "Illegal division by zero")
}
