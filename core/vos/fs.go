package vos

import (
	"archive/tar"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/sigil-lang/sigil/core/config"
	"github.com/spf13/afero"
)

// VFS implements a virtual filesystem and is the second layer of virtualization.
type VFS = afero.Fs

// skeletonDirs exist on every sandbox even when the corpus doesn't
// mention them.
var skeletonDirs = []string{
	"/bin",
	"/dev",
	"/etc",
	"/home",
	"/root",
	"/tmp",
	"/usr/bin",
	"/usr/share",
	"/var/log",
}

// binStub is the file behind a builtin executable. The userland runs
// in-process; these entries exist so PATH lookups, ls and which behave.
func binStub(name string) []byte {
	return []byte(fmt.Sprintf("#!/bin/sh\n# %s is built into the sandbox\n", name))
}

// NewBaseFS builds the shared base filesystem: skeleton directories, the
// teaching corpus, /etc/motd, user homes and one executable stub per
// builtin command. Timestamps are pinned to the boot instant so listings
// replay identically under a seeded clock.
func NewBaseFS(cfg *config.Configuration, binNames []string) (VFS, error) {
	bootTime := cfg.Clock.TimeSource()()
	base := afero.NewMemMapFs()

	for _, dir := range skeletonDirs {
		if err := base.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	corpus := cfg.CorpusFS()
	err := fs.WalkDir(corpus, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		dest := "/" + p
		if d.IsDir() {
			return base.MkdirAll(dest, 0755)
		}

		contents, err := fs.ReadFile(corpus, p)
		if err != nil {
			return err
		}
		return afero.WriteFile(base, dest, contents, 0644)
	})
	if err != nil {
		return nil, fmt.Errorf("materializing corpus: %v", err)
	}

	if cfg.Motd != "" {
		if err := afero.WriteFile(base, "/etc/motd", []byte(cfg.Motd), 0644); err != nil {
			return nil, err
		}
	}

	for _, user := range cfg.Users {
		if err := base.MkdirAll(user.Home, 0755); err != nil {
			return nil, err
		}
	}

	for _, name := range binNames {
		dest := path.Join("/bin", name)
		if err := afero.WriteFile(base, dest, binStub(name), 0755); err != nil {
			return nil, err
		}
	}

	// Directories pick up wall-clock timestamps as they're created, so
	// pin every entry to the boot instant in one pass at the end.
	err = afero.Walk(base, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		return base.Chtimes(p, bootTime, bootTime)
	})
	if err != nil {
		return nil, err
	}

	// Workspaces can drop a corpus.tar.gz next to config.yaml to lay
	// extra files over the defaults. Those entries keep the timestamps
	// recorded in the archive.
	if fd, tarErr := cfg.OpenCorpusTarGz(); tarErr == nil {
		defer fd.Close()
		gr, err := gzip.NewReader(fd)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %v", config.CorpusTarName, err)
		}
		if err := ExtractTarToVFS(base, tar.NewReader(gr)); err != nil {
			return nil, fmt.Errorf("extracting %s: %v", config.CorpusTarName, err)
		}
	}

	return base, nil
}

// ExtractTarToVFS unpacks a tar stream onto the filesystem. Entry types
// the sandbox can't represent, symlinks included, are skipped.
func ExtractTarToVFS(vfs VFS, t *tar.Reader) error {
	for {
		hdr, err := t.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		if err := (func() error {
			hdr.Name = "/" + strings.TrimPrefix(strings.TrimSuffix(hdr.Name, "/"), "/")

			// Make parents
			vfs.MkdirAll(path.Dir(hdr.Name), 0777)

			mode := hdr.FileInfo().Mode()
			switch {
			case mode&fs.ModeDir > 0:
				err := vfs.Mkdir(hdr.Name, mode)
				switch {
				case os.IsExist(err):
					// Do nothing
				case err != nil:
					return err
				}
			case !mode.IsRegular():
				return nil
			default:
				fd, err := vfs.OpenFile(hdr.Name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, mode)
				if err != nil {
					return err
				}
				// Don't defer the close because it'll update the modification time.
				if _, err := io.CopyN(fd, t, hdr.Size); err != nil {
					fd.Close()
					return err
				}
				fd.Close()
			}

			if err := vfs.Chown(hdr.Name, hdr.Uid, hdr.Gid); err != nil {
				return err
			}
			if err := vfs.Chmod(hdr.Name, mode); err != nil {
				return err
			}
			if err := vfs.Chtimes(hdr.Name, hdr.FileInfo().ModTime(), hdr.FileInfo().ModTime()); err != nil {
				return err
			}

			return nil
		}()); err != nil {
			return fmt.Errorf("extracting %q: %v", hdr.Name, err)
		}
	}
}

// NewMemCopyOnWriteFs overlays an in-memory writable layer on a read only
// base so every tenant can scribble on a shared filesystem.
func NewMemCopyOnWriteFs(base VFS) VFS {
	return afero.NewCopyOnWriteFs(base, afero.NewMemMapFs())
}

// NewRelativeFs resolves relative paths against the process working
// directory so commands can open files the way users type them.
func NewRelativeFs(base VFS, getwd func() (dir string, err error)) VFS {
	return NewPathMappingFs(base, func(op FsOp, name string) (string, error) {
		if path.IsAbs(name) {
			return path.Clean(name), nil
		}
		wd, err := getwd()
		if err != nil {
			return "", err
		}
		return path.Join(wd, name), nil
	})
}
