package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/afero"

	twlog "github.com/mesh-radio/txwindow/pkg/log"
)

// FilterOptions specifies filtering criteria for the filter and view commands.
type FilterOptions struct {
	RunID     string
	Category  string
	PacketID  string
	TimeStart string
	TimeEnd   string
}

// BuildFilter converts command-line options to a log filter.
func BuildFilter(opts FilterOptions) (twlog.Filter, error) {
	filter := twlog.Filter{RunID: opts.RunID}

	if opts.Category != "" {
		c, err := ParseCategoryFlag(opts.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	if opts.PacketID != "" {
		id, err := ParsePacketFlag(opts.PacketID)
		if err != nil {
			return filter, err
		}
		filter.PacketID = &id
	}
	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	return filter, nil
}

// RunFilter copies the events of path matching opts to output and returns
// how many were written.
func RunFilter(fs afero.Fs, path, output string, opts FilterOptions) (int, error) {
	filter, err := BuildFilter(opts)
	if err != nil {
		return 0, err
	}

	reader, err := twlog.OpenReader(fs, path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	out, err := twlog.OpenFileLogger(fs, output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return int(out.Written()), fmt.Errorf("failed to read event: %w", err)
		}
		out.Log(event)
	}
	return int(out.Written()), nil
}
