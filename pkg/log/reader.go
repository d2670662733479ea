package log

import (
	"errors"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/afero"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	// RunID filters by exact run ID.
	RunID string

	// Category filters by event category.
	Category *Category

	// PacketID filters admission events by packet; other categories never match.
	PacketID *uint32

	// TimeStart filters events at or after this time.
	TimeStart *time.Time

	// TimeEnd filters events before this time.
	TimeEnd *time.Time
}

func (f *Filter) matches(event Event) bool {
	if f.RunID != "" && event.RunID != f.RunID {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.PacketID != nil && (event.Admission == nil || event.Admission.PacketID != *f.PacketID) {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// Reader streams events from a CBOR log file.
type Reader struct {
	file    afero.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens path on the OS filesystem and reads all events.
func NewReader(path string) (*Reader, error) {
	return OpenReader(afero.NewOsFs(), path, Filter{})
}

// NewFilteredReader opens path on the OS filesystem and reads matching events.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	return OpenReader(afero.NewOsFs(), path, filter)
}

// OpenReader opens path on fs and reads events matching filter.
func OpenReader(fs afero.Fs, path string, filter Filter) (*Reader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next matching event, or io.EOF at the end of the file.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
