// Package testutil provides a txtar-backed FileReader for end-to-end
// compiler fixtures that span multiple files.
package testutil

import (
	"golang.org/x/tools/txtar"

	"github.com/urdwyrd/urd/imp"
)

// ArchiveReader is an in-memory imp.FileReader backed by a parsed txtar
// archive, so a multi-file fixture can live as one literal string in a
// test rather than as files on disk.
type ArchiveReader struct {
	files []txtar.File
	byName map[string]string
}

// ParseArchive parses data as a txtar archive and returns a FileReader
// serving its files by name. The first file in the archive is the
// conventional entry point (see EntryPath).
func ParseArchive(data string) *ArchiveReader {
	a := txtar.Parse([]byte(data))
	byName := make(map[string]string, len(a.Files))
	for _, f := range a.Files {
		byName[f.Name] = string(f.Data)
	}
	return &ArchiveReader{files: a.Files, byName: byName}
}

// ReadFile implements imp.FileReader.
func (r *ArchiveReader) ReadFile(fsPath string) (string, *imp.ReadError) {
	content, ok := r.byName[fsPath]
	if !ok {
		return "", &imp.ReadError{Kind: imp.ReadNotFound, Message: "not found: " + fsPath}
	}
	return content, nil
}

// CanonicalFilename always reports no casing mismatch: txtar archives are
// keyed by exact name, so there's no underlying filesystem to disagree
// with the requested casing.
func (r *ArchiveReader) CanonicalFilename(dir, filename string) (string, bool) {
	return "", false
}

// EntryPath returns the name of the archive's first file, the conventional
// entry point for these fixtures.
func (r *ArchiveReader) EntryPath() string {
	if len(r.files) == 0 {
		return ""
	}
	return r.files[0].Name
}
