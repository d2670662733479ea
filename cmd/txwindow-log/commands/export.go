package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/afero"

	twlog "github.com/mesh-radio/txwindow/pkg/log"
)

// RunExport writes the events of path to w as jsonl or csv.
func RunExport(fs afero.Fs, path, format string, w io.Writer) error {
	reader, err := twlog.OpenReader(fs, path, twlog.Filter{})
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *twlog.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
}

func exportCSV(reader *twlog.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "run_id", "category", "type", "packet_id", "open"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		packetID, open := "", ""
		switch {
		case event.Admission != nil:
			packetID = strconv.FormatUint(uint64(event.Admission.PacketID), 10)
			open = strconv.FormatBool(event.Admission.Open)
		case event.Transition != nil:
			open = strconv.FormatBool(event.Transition.Open)
		}

		row := []string{
			event.Timestamp.UTC().Format(timestampLayout),
			event.RunID,
			event.Category.String(),
			typeLabel(event),
			packetID,
			open,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
}
