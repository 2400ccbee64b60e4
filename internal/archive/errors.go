package archive

import "errors"

// Archiver-specific error types
var (
	ErrArchiverClosed   = errors.New("archiver is closed")
	ErrWriteTimeout     = errors.New("archive write operation timeout")
	ErrSnapshotNotFound = errors.New("no archived snapshot for canvas")
)
