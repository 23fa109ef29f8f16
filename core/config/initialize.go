package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/crypto/ssh"
)

// Initialize scaffolds a workspace in the given directory and returns the
// resulting configuration. Existing files are left alone so it's safe to
// re-run after upgrades to pick up new corpus files.
func Initialize(dir string, logger *log.Logger) (*Configuration, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	if err := writeIfMissing(logger, filepath.Join(dir, ConfigurationName), defaultConfigData, 0644); err != nil {
		return nil, err
	}

	corpus := DefaultCorpusFS()
	err := fs.WalkDir(corpus, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		dest := filepath.Join(dir, CorpusDirName, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(dest, 0755)
		}

		contents, err := fs.ReadFile(corpus, path)
		if err != nil {
			return err
		}
		return writeIfMissing(logger, dest, contents, 0644)
	})
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Join(dir, LogsDirName), 0755); err != nil {
		return nil, err
	}

	if err := initHostKey(dir, logger); err != nil {
		return nil, err
	}

	return Load(dir)
}

func writeIfMissing(logger *log.Logger, path string, contents []byte, perm fs.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		logger.Printf("skipping %s, already exists", path)
		return nil
	}

	logger.Printf("creating %s", path)
	return os.WriteFile(path, contents, perm)
}

func initHostKey(dir string, logger *log.Logger) error {
	keyPath := filepath.Join(dir, PrivateKeyName)
	if _, err := os.Stat(keyPath); err == nil {
		logger.Printf("skipping %s, already exists", keyPath)
		return nil
	}

	logger.Printf("generating SSH host key %s", keyPath)
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}

	block, err := ssh.MarshalPrivateKey(priv, "classroom host key")
	if err != nil {
		return err
	}

	return os.WriteFile(keyPath, pem.EncodeToMemory(block), 0600)
}
