package log

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/afero"
)

// FileLogger appends events to a CBOR log file.
// It is safe for concurrent use.
type FileLogger struct {
	file    afero.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
	written uint64
}

// NewFileLogger opens path on the OS filesystem for appending, creating it
// with mode 0644 if needed.
func NewFileLogger(path string) (*FileLogger, error) {
	return OpenFileLogger(afero.NewOsFs(), path)
}

// OpenFileLogger opens path on fs for appending.
func OpenFileLogger(fs afero.Fs, path string) (*FileLogger, error) {
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		file:    f,
		encoder: NewEncoder(f),
	}, nil
}

// Log appends an event. Encoding errors are ignored; logging must not
// disrupt packet handling.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.encoder.Encode(event); err == nil {
		l.written++
	}
}

// Written returns the number of events written.
func (l *FileLogger) Written() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written
}

// Close closes the log file. It is safe to call more than once; Log calls
// after Close are ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
