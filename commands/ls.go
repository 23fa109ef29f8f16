package commands

import (
	"fmt"
	"io/fs"
	"math"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	fcolor "github.com/fatih/color"
	getopt "github.com/pborman/getopt/v2"
	"github.com/sigil-lang/sigil/core/vos"
)

// lsEntry is one row of a listing: the name to display plus the stat
// information and absolute path behind it.
type lsEntry struct {
	name string
	abs  string
	info os.FileInfo
}

// ownerForPath guesses ownership from /etc/passwd home directories. The
// sandbox filesystem doesn't track per-file owners, so paths under a
// user's home belong to that user and everything else to root.
func ownerForPath(virtOS vos.VOS) func(abs string) (uid, gid int) {
	type homeDir struct {
		home string
		uid  int
		gid  int
	}
	var homes []homeDir

	if passwdBytes, err := readFile(virtOS, "/etc/passwd"); err == nil {
		for _, line := range strings.Split(string(passwdBytes), "\n") {
			// name:x:uid:gid:gecos:home:shell
			entry := strings.Split(line, ":")
			if len(entry) < 6 || entry[5] == "" || entry[5] == "/" {
				continue
			}
			uid, uidErr := strconv.Atoi(entry[2])
			gid, gidErr := strconv.Atoi(entry[3])
			if uidErr != nil || gidErr != nil {
				continue
			}
			homes = append(homes, homeDir{home: entry[5], uid: uid, gid: gid})
		}
	}

	return func(abs string) (int, int) {
		for _, h := range homes {
			if abs == h.home || strings.HasPrefix(abs, h.home+"/") {
				return h.uid, h.gid
			}
		}
		return 0, 0
	}
}

// Ls implements the UNIX ls command.
func Ls(virtOS vos.VOS) int {
	opts := getopt.New()
	listAll := opts.Bool('a', "don't ignore entries starting with .")
	longListing := opts.Bool('l', "use a long listing format")
	humanSize := opts.BoolLong("human-readable", 'h', "print human readable sizes")
	lineWidth := opts.IntLong("width", 'w', virtOS.GetPTY().Width, "set the column width, 0 is infinite")
	helpOpt := opts.BoolLong("help", '?', "show help and exit")

	var color ColorPrinter
	color.Init(opts, virtOS)

	if err := opts.Getopt(virtOS.Args(), nil); err != nil || *helpOpt {
		w := virtOS.Stderr()
		if err != nil {
			virtOS.LogInvalidInvocation(err)
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "Usage: ls [OPTION]... [FILE]...")
		fmt.Fprintln(w, "List information about the FILEs (the current directory by default).")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flags:")
		opts.PrintOptions(w)
		return 1
	}

	pathsToList := opts.Args()
	if len(pathsToList) == 0 {
		pathsToList = append(pathsToList, ".")
	}
	sort.Strings(pathsToList)

	showDirectoryNames := len(pathsToList) > 1

	sizeFmt := func(bytes int64) string {
		return fmt.Sprintf("%d", bytes)
	}
	if *humanSize {
		sizeFmt = BytesToHuman
	}

	if *lineWidth == 0 {
		*lineWidth = math.MaxInt32
	}

	uid2name := UidResolver(virtOS)
	gid2name := GidResolver(virtOS)
	owner := ownerForPath(virtOS)

	wd, _ := virtOS.Getwd()
	abs := func(name string) string {
		if path.IsAbs(name) {
			return path.Clean(name)
		}
		return path.Join(wd, name)
	}

	printLong := func(entries []lsEntry, showTotal bool) {
		if showTotal {
			var totalSize int64
			for _, e := range entries {
				totalSize += e.info.Size()
			}
			fmt.Fprintf(virtOS.Stdout(), "total %d\n", totalSize)
		}

		tw := tabwriter.NewWriter(virtOS.Stdout(), 0, 0, 1, ' ', 0)
		for _, e := range entries {
			// Approximate hard links as 2 for directories (self and
			// parent) and 1 for everything else.
			hardLinks := 1
			if e.info.IsDir() {
				hardLinks = 2
			}

			// Include time instead of year for recent entries.
			modTime := e.info.ModTime().Format("Jan _2 2006")
			if e.info.ModTime().Year() >= virtOS.Now().Year() {
				modTime = e.info.ModTime().Format("Jan _2 15:04")
			}

			uid, gid := owner(e.abs)
			fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
				e.info.Mode().String(),
				hardLinks,
				uid2name(uid),
				gid2name(gid),
				sizeFmt(e.info.Size()),
				modTime,
				color.Sprintf(Dircolor(e.info), "%s", e.name))
		}
		tw.Flush()
	}

	printColumns := func(entries []lsEntry) {
		colWidths := columnize(entries, *lineWidth)
		cols := len(colWidths)
		rows := len(entries) / cols
		if len(entries)%cols > 0 {
			rows++
		}

		tw := virtOS.Stdout()
		for row := 0; row < rows; row++ {
			for col, width := range colWidths {
				// Add padding if there was a column before this.
				if col > 0 {
					fmt.Fprint(tw, "  ")
				}
				// Find and print the file entry.
				if index := (col * rows) + row; index < len(entries) {
					e := entries[index]
					width -= len(e.name) // Subtract off padding.
					fmt.Fprint(tw, color.Sprintf(Dircolor(e.info), "%s", e.name))
				}
				// Add padding for alignment.
				if width > 0 {
					fmt.Fprint(tw, strings.Repeat(" ", width))
				}
			}
			fmt.Fprintln(tw)
		}
	}

	exitCode := 0

	for _, listPath := range pathsToList {
		info, err := virtOS.Stat(listPath)
		if err != nil {
			fmt.Fprintf(virtOS.Stderr(), "%s: %v\n", listPath, err)
			exitCode = 1
			continue
		}

		// A non-directory lists as a single row under its given name.
		if !info.IsDir() {
			entries := []lsEntry{{name: listPath, abs: abs(listPath), info: info}}
			if *longListing {
				printLong(entries, false)
			} else {
				printColumns(entries)
			}
			continue
		}

		file, err := virtOS.Open(listPath)
		if err != nil {
			fmt.Fprintf(virtOS.Stderr(), "%s: %v\n", listPath, err)
			exitCode = 1
			continue
		}

		children, err := file.Readdir(-1)
		file.Close()
		if err != nil {
			fmt.Fprintf(virtOS.Stderr(), "%s: %v\n", listPath, err)
			exitCode = 1
			continue
		}

		var entries []lsEntry
		for _, child := range children {
			if !*listAll && strings.HasPrefix(child.Name(), ".") {
				continue
			}
			entries = append(entries, lsEntry{
				name: child.Name(),
				abs:  path.Join(abs(listPath), child.Name()),
				info: child,
			})
		}

		sort.Slice(entries, func(i int, j int) bool {
			return entries[i].name < entries[j].name
		})

		if showDirectoryNames {
			fmt.Fprintf(virtOS.Stdout(), "%s:\n", listPath)
		}

		if *longListing {
			printLong(entries, true)
		} else if len(entries) > 0 {
			printColumns(entries)
		}
	}

	return exitCode
}

type LsColorTest struct {
	color *fcolor.Color
	test  func(fileInfo os.FileInfo) bool
}

// Color listing comes from: https://askubuntu.com/a/884513
var dircolors = []LsColorTest{
	// Directories are bold blue.
	{color: ColorBoldBlue, test: os.FileInfo.IsDir},
	// Symlinks are bold cyan.
	{color: ColorBoldCyan, test: func(fi os.FileInfo) bool {
		return fi.Mode()&fs.ModeSymlink > 0
	}},
	// Yellow with black background pipe, block device, char device.
	{color: fcolor.New(fcolor.FgYellow, fcolor.BgBlack, fcolor.Bold), test: func(fi os.FileInfo) bool {
		return fi.Mode()&(fs.ModeDevice|fs.ModeNamedPipe|fs.ModeSocket|fs.ModeCharDevice) > 0
	}},
	// Executables are bold green.
	{color: ColorBoldGreen, test: func(fi os.FileInfo) bool {
		return fi.Mode().Perm()&0111 > 0
	}},
	// Archives are bold red.
	{color: ColorBoldRed, test: func(fi os.FileInfo) bool {
		return map[string]bool{
			"tar": true,
			"tgz": true,
			"zip": true,
			"gz":  true,
			"bz2": true,
			"bz":  true,
			"tbz": true,
			"deb": true,
			"rpm": true,
			"jar": true,
			"war": true,
			"rar": true,
		}[strings.TrimPrefix(path.Ext(fi.Name()), ".")]
	}},
}

func Dircolor(fileInfo os.FileInfo) *fcolor.Color {
	for _, dc := range dircolors {
		if dc.test(fileInfo) {
			return dc.color
		}
	}

	// Anything else defaults to white.
	return fcolor.New(fcolor.FgHiWhite)
}

func columnize(entries []lsEntry, screenWidth int) []int {
	numFiles := len(entries)
	if numFiles == 0 {
		return []int{0}
	}

	const colPadding = 2

	// Size of the display of the file name, actual length may vary if there are
	// escape sequences to format it.
	displayLengths := make([]int, len(entries))
	for i, e := range entries {
		displayLengths[i] = len(e.name)
	}

	// Start with maximum number of columns and work down until all the data fits.
	// 3 is the minimum column width, 1 char filename + 2 padding.
	columns := screenWidth / (1 + colPadding)
	if columns > len(entries) {
		columns = len(entries)
	}
	var maximums []int // Holds maximum size of a name in the column.
	for ; columns >= 1; columns-- {
		maximums = make([]int, columns)
		total := (columns - 1) * colPadding
		rows := (numFiles / columns) + 1
		for i, nameLen := range displayLengths {
			prevMax := maximums[i/rows]
			if nameLen > prevMax {
				maximums[i/rows] = nameLen
				total = total - prevMax + nameLen
				if total > screenWidth {
					break
				}
			}
		}

		if total <= screenWidth {
			return maximums
		}
	}

	return maximums
}

var _ vos.ProcessFunc = Ls

func init() {
	mustAddBinCmd("ls", Ls)
}
