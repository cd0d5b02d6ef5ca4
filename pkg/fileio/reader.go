package fileio

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// blocklistPatterns mirrors the secret-file names a sandboxed reader must
// never serve, regardless of how the caller requested them.
var blocklistPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\.env(\..*)?$`),
	regexp.MustCompile(`(?i)\.pem$`),
	regexp.MustCompile(`(?i)_rsa$`),
	regexp.MustCompile(`(?i)^credentials.*$`),
	regexp.MustCompile(`(?i)\.key$`),
}

// Reader reads files relative to a fixed project root, rejecting path
// escapes and known secret-file names.
type Reader struct {
	root        string
	maxFileSize int64
}

// NewReader builds a Reader rooted at root, capping reads at maxFileSize
// bytes (spec default 2 MiB).
func NewReader(root string, maxFileSize int64) *Reader {
	return &Reader{root: root, maxFileSize: maxFileSize}
}

// Read loads relativePath relative to the configured root.
func (r *Reader) Read(ctx context.Context, relativePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if filepath.IsAbs(relativePath) {
		return "", &PathError{Path: relativePath, Reason: "absolute paths are not allowed"}
	}
	cleaned := filepath.Clean(relativePath)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "/../") {
		return "", &PathError{Path: relativePath, Reason: "path escapes the project root"}
	}

	base := filepath.Base(cleaned)
	for _, pattern := range blocklistPatterns {
		if pattern.MatchString(base) {
			return "", &PathError{Path: relativePath, Reason: "matches the secret-file blocklist"}
		}
	}

	fullPath := filepath.Join(r.root, cleaned)

	info, err := os.Stat(fullPath)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", &PathError{Path: relativePath, Reason: "is a directory"}
	}
	if r.maxFileSize > 0 && info.Size() > r.maxFileSize {
		return "", &SizeError{Path: relativePath, Size: info.Size(), MaxSize: r.maxFileSize}
	}

	f, err := os.Open(fullPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, r.maxFileSize+1))
	if err != nil {
		return "", err
	}
	return string(data), nil
}
