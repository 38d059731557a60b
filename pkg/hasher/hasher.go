package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"
)

// Algorithms lists the supported checksum algorithms.
var Algorithms = []string{"md5", "sha1", "sha256", "sha512"}

var constructors = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
}

// Supported reports whether algo (case-insensitive) is in Algorithms.
func Supported(algo string) bool {
	_, ok := constructors[strings.ToLower(algo)]
	return ok
}

// New returns a fresh hash for algo.
func New(algo string) (hash.Hash, error) {
	mk, ok := constructors[strings.ToLower(algo)]
	if !ok {
		return nil, fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
	return mk(), nil
}

// Sum returns the hex digest of everything read from r.
func Sum(r io.Reader, algo string) (string, error) {
	h, err := New(algo)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SumFile is Sum over the contents of the file at path.
func SumFile(path, algo string) (string, error) {
	if !Supported(algo) {
		return "", fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return Sum(f, algo)
}
