// Package imp implements IMPORT: recursive discovery of a file's imports
// via a pluggable FileReader, producing an acyclic dependency graph and a
// topologically ordered compilation unit. IMPORT is the only phase that
// touches the filesystem.
package imp

import (
	"context"
	"os"
	"strings"

	"github.com/viant/afs"

	"github.com/urdwyrd/urd/dgraph"
)

// ReadErrorKind classifies why a FileReader.ReadFile call failed.
type ReadErrorKind int

const (
	ReadNotFound ReadErrorKind = iota
	ReadPermissionDenied
	ReadInvalidUTF8
	ReadIOError
	ReadTooLarge
)

// ReadError is returned by FileReader.ReadFile.
type ReadError struct {
	Kind    ReadErrorKind
	Size    int // populated when Kind == ReadTooLarge
	Message string
}

func (e *ReadError) Error() string {
	return e.Message
}

// FileReader abstracts filesystem access so IMPORT can be tested without
// real I/O, and so production code can point at any afs-backed storage.
type FileReader interface {
	// ReadFile reads the file at fsPath, returning its contents.
	ReadFile(fsPath string) (string, *ReadError)
	// CanonicalFilename reports the actual casing of filename within dir
	// on case-insensitive filesystems, when it differs from the
	// requested casing. It returns ("", false) when casing matches, the
	// file does not exist, or the platform can't detect casing
	// differences.
	CanonicalFilename(dir, filename string) (string, bool)
}

// OsFileReader is the production FileReader, backed by viant/afs so file
// access can be pointed at any afs-registered scheme (local disk by
// default) rather than hardcoding os.ReadFile.
type OsFileReader struct {
	fs  afs.Service
	ctx context.Context
}

// NewOsFileReader returns a FileReader backed by a fresh afs.Service
// rooted at the local filesystem.
func NewOsFileReader() *OsFileReader {
	return &OsFileReader{fs: afs.New(), ctx: context.Background()}
}

// ReadFile reads fsPath via afs's DownloadWithURL, the same call the
// teacher uses to pull file content in inspector/info/document.go. Size
// is checked against dgraph.MaxFileSize after download — a pre-read stat
// would be preferable but afs.Service's object-listing surface is not
// uniformly implemented across backends, so this is the "belt-and-braces"
// post-read check the reference implementation also performs.
func (r *OsFileReader) ReadFile(fsPath string) (string, *ReadError) {
	data, err := r.fs.DownloadWithURL(r.ctx, fsPath)
	if err != nil {
		return "", classifyReadError(err)
	}
	if len(data) > dgraph.MaxFileSize {
		return "", &ReadError{Kind: ReadTooLarge, Size: len(data), Message: "file exceeds size limit"}
	}
	if !isValidUTF8Bytes(data) {
		return "", &ReadError{Kind: ReadInvalidUTF8, Message: "file contains invalid UTF-8"}
	}
	return string(data), nil
}

// CanonicalFilename enumerates dir via afs looking for a case-insensitive
// match with a different casing than filename.
func (r *OsFileReader) CanonicalFilename(dir, filename string) (string, bool) {
	root := dir
	if root == "" {
		root = "."
	}
	objects, err := r.fs.List(r.ctx, root)
	if err != nil {
		return "", false
	}
	for _, obj := range objects {
		name := obj.Name()
		if strings.EqualFold(name, filename) && name != filename {
			return name, true
		}
	}
	return "", false
}

// classifyReadError maps an afs error to a ReadErrorKind. afs wraps the
// standard library's os errors for local-disk access, so os.IsNotExist /
// os.IsPermission recognize the common cases; anything else is a generic
// I/O error.
func classifyReadError(err error) *ReadError {
	switch {
	case os.IsNotExist(err):
		return &ReadError{Kind: ReadNotFound, Message: err.Error()}
	case os.IsPermission(err):
		return &ReadError{Kind: ReadPermissionDenied, Message: err.Error()}
	default:
		return &ReadError{Kind: ReadIOError, Message: err.Error()}
	}
}

func isValidUTF8Bytes(b []byte) bool {
	for i := 0; i < len(b); {
		c := b[i]
		if c < 0x80 {
			i++
			continue
		}
		n := utf8SeqLen(c)
		if n == 0 || i+n > len(b) {
			return false
		}
		for j := 1; j < n; j++ {
			if b[i+j]&0xC0 != 0x80 {
				return false
			}
		}
		i += n
	}
	return true
}

func utf8SeqLen(b byte) int {
	switch {
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 0
	}
}
