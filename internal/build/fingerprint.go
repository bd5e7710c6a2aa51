package build

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// tagLength is how many hex characters of the fingerprint become the image tag.
const tagLength = 12

// skippedDirs are directories excluded from the fingerprint because their
// contents do not affect the built image.
var skippedDirs = map[string]struct{}{
	".git": {},
}

// Fingerprint computes a deterministic content hash over every regular file
// under dir. The walk order is lexical, so identical trees always hash to the
// same value and the hash doubles as a cache-friendly image tag.
func Fingerprint(dir string) (string, error) {
	h := sha256.New()

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if _, skip := skippedDirs[d.Name()]; skip && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		// Hash the relative path first so renames change the fingerprint.
		fmt.Fprintf(h, "%s\x00", filepath.ToSlash(rel))

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		_, copyErr := io.Copy(h, f)
		closeErr := f.Close()
		if copyErr != nil {
			return copyErr
		}
		return closeErr
	})
	if err != nil {
		return "", fmt.Errorf("fingerprint %q: %w", dir, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// ShortTag truncates a fingerprint to the tag length used in image references.
func ShortTag(fingerprint string) string {
	if len(fingerprint) <= tagLength {
		return fingerprint
	}
	return fingerprint[:tagLength]
}
