package commands

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/juju/ratelimit"
	"github.com/sigil-lang/sigil/core/logger"
	"github.com/sigil-lang/sigil/core/vos"
)

// fetchContentType guesses a Content-Type the way a tiny static file
// server would.
func fetchContentType(name string) string {
	switch path.Ext(name) {
	case ".html", ".htm":
		return "text/html"
	case ".txt":
		return "text/plain"
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

// Fetch implements a wget style downloader against the sandbox's virtual
// network. URLs resolve through the configured host table and transfers
// come out of the sandbox filesystem, so no bytes ever leave the machine.
func Fetch(virtOS vos.VOS) int {
	cmd := &SimpleCommand{
		Use:   "fetch [OPTION]... URL...",
		Short: "Download files over the virtual network.",
	}

	outputDoc := cmd.Flags().StringLong("output-document", 'O', "", "write documents to FILE, - for stdout")

	return cmd.Run(virtOS, func() int {
		args := cmd.Flags().Args()
		if len(args) == 0 {
			cmd.LogProgramError(virtOS, fmt.Errorf("missing URL"))
			return 1
		}

		exitCode := 0
		for _, rawURL := range args {
			if code := fetchOne(virtOS, rawURL, *outputDoc); code != 0 {
				exitCode = code
			}
		}
		return exitCode
	})
}

func fetchOne(virtOS vos.VOS, rawURL, outputDoc string) int {
	// Do this first, otherwise url.Parse has issues parsing URLs with ports.
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}

	w := virtOS.Stderr()
	timestamp := func() string {
		return virtOS.Now().Format("2006-01-02 15:04:05")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		fmt.Fprintf(w, "%s: invalid URL %q\n", commandName(virtOS), rawURL)
		return 1
	}
	if parsedURL.Path == "" {
		parsedURL.Path = "/"
	}

	fmt.Fprintf(w, "--%s--  %s\n", timestamp(), parsedURL.String())

	host := virtOS.LookupHost(parsedURL.Hostname())
	if host == nil {
		fmt.Fprintf(w, "Resolving %[1]s (%[1]s)... failed: Name or service not known.\n", parsedURL.Hostname())
		fmt.Fprintf(w, "%s: unable to resolve host address %q\n", commandName(virtOS), parsedURL.Hostname())
		return 4
	}

	port := parsedURL.Port()
	if port == "" {
		port = "80"
	}

	fmt.Fprintf(w, "Resolving %s (%s)... %s\n", parsedURL.Hostname(), host.Name, host.Address)
	fmt.Fprintf(w, "Connecting to %s (%s)|%s|:%s... connected.\n", parsedURL.Hostname(), host.Name, host.Address, port)
	fmt.Fprint(w, "HTTP request sent, awaiting response... ")

	filePath, ok := host.Paths[parsedURL.Path]
	if !ok {
		fmt.Fprintln(w, "404 Not Found")
		fmt.Fprintf(w, "%s ERROR 404: Not Found.\n", timestamp())
		return 8
	}

	fd, err := virtOS.Open(filePath)
	if err != nil {
		fmt.Fprintln(w, "500 Internal Server Error")
		fmt.Fprintf(w, "%s ERROR 500: Internal Server Error.\n", timestamp())
		return 8
	}
	defer fd.Close()

	length := int64(0)
	if info, err := fd.Stat(); err == nil {
		length = info.Size()
	}

	contentType := fetchContentType(filePath)
	fmt.Fprintf(w, "200 OK\nLength: %d (%s) [%s]\n", length, BytesToHuman(length), contentType)

	destName := outputDoc
	if destName == "" {
		destName = "index.html"
		if base := path.Base(parsedURL.Path); base != "." && base != "/" && base != "" {
			destName = base
		}
	}

	var out io.Writer
	if destName == "-" {
		out = virtOS.Stdout()
	} else {
		localFd, err := virtOS.Create(destName)
		if err != nil {
			fmt.Fprintf(w, "%s: %s: %v\n", commandName(virtOS), destName, err)
			return 3
		}
		defer localFd.Close()
		out = localFd
		fmt.Fprintf(w, "Saving to: '%s'\n", destName)
	}
	fmt.Fprintln(w)

	var body io.Reader = fd
	if virtOS.GetPTY().IsPTY {
		// Pace the copy so watching students see a believable transfer.
		tokenBucket := ratelimit.NewBucketWithRate(2*1000*1000, 2*1000*1000)
		body = ratelimit.Reader(fd, tokenBucket)

		progress := &fetchProgress{
			totalBytes: length,
			fileName:   destName,
			virtOS:     virtOS,
		}
		out = io.MultiWriter(out, progress)
	}

	written, err := io.Copy(out, body)
	if err != nil {
		fmt.Fprintf(w, "%s: read error: %v\n", commandName(virtOS), err)
		return 3
	}

	virtOS.LogFetch(&logger.Fetch{
		Source: parsedURL.String(),
		Dest:   destName,
		Bytes:  written,
	})

	if virtOS.GetPTY().IsPTY {
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "%s - '%s' saved [%d/%d]\n", timestamp(), destName, written, length)
	return 0
}

// fetchProgress redraws a wget style progress line as bytes flow.
type fetchProgress struct {
	bytesWritten int64
	totalBytes   int64
	fileName     string

	virtOS vos.VOS
}

func (c *fetchProgress) Write(b []byte) (int, error) {
	c.bytesWritten += int64(len(b))

	var percent float64
	if c.totalBytes > 0 {
		percent = 100 * (float64(c.bytesWritten) / float64(c.totalBytes))
	}
	bar := strings.Repeat("=", int(percent)/5) + ">"

	fmt.Fprintf(c.virtOS.Stderr(), "\r%-20.20s % 3.0f%%[%-20.20s] %8s",
		c.fileName, percent, bar, BytesToHuman(c.bytesWritten))

	return len(b), nil
}

var _ vos.ProcessFunc = Fetch

func init() {
	mustAddBinCmd("fetch", Fetch, "wget", "curl")
}
