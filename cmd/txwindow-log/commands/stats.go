package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/afero"

	twlog "github.com/mesh-radio/txwindow/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents      int
	EventsByCategory map[twlog.Category]int
	Outcomes         map[string]int
	DropReasons      map[string]int
	Runs             map[string]*RunSummary
	Opened           int
	Closed           int
	DrainPasses      int
	DrainTransmitted int
	DrainExpired     int
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// RunSummary holds statistics for a single gate run.
type RunSummary struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	NodeName  string
}

// CollectStats reads every event of path.
func CollectStats(fs afero.Fs, path string) (*Stats, error) {
	reader, err := twlog.OpenReader(fs, path, twlog.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory: make(map[twlog.Category]int),
		Outcomes:         make(map[string]int),
		DropReasons:      make(map[string]int),
		Runs:             make(map[string]*RunSummary),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	return stats, nil
}

func (s *Stats) add(event twlog.Event) {
	s.TotalEvents++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	run, ok := s.Runs[event.RunID]
	if !ok {
		run = &RunSummary{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
		s.Runs[event.RunID] = run
	}
	run.Events++
	if event.Timestamp.After(run.LastSeen) {
		run.LastSeen = event.Timestamp
	}
	if run.NodeName == "" {
		run.NodeName = event.NodeName
	}

	switch {
	case event.Admission != nil:
		s.Outcomes[event.Admission.Outcome]++
		if event.Admission.Reason != "" {
			s.DropReasons[event.Admission.Reason]++
		}
	case event.Transition != nil:
		if event.Transition.Open {
			s.Opened++
		} else {
			s.Closed++
		}
	case event.Drain != nil:
		s.DrainPasses++
		s.DrainTransmitted += event.Drain.Transmitted
		s.DrainExpired += event.Drain.Expired
	case event.Error != nil:
		s.Errors++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(fs afero.Fs, path string, w io.Writer) error {
	stats, err := CollectStats(fs, path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Transmit Window Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for c := twlog.CategoryAdmission; c <= twlog.CategoryError; c++ {
		if count := stats.EventsByCategory[c]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.Outcomes) > 0 {
		fmt.Fprintln(w, "Admission Outcomes:")
		printCounts(w, stats.Outcomes)
		fmt.Fprintln(w)
	}
	if len(stats.DropReasons) > 0 {
		fmt.Fprintln(w, "Drop Reasons:")
		printCounts(w, stats.DropReasons)
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Window: opened %d, closed %d\n", stats.Opened, stats.Closed)
	fmt.Fprintf(w, "Drains: %d passes, %d transmitted, %d expired\n",
		stats.DrainPasses, stats.DrainTransmitted, stats.DrainExpired)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Runs: %d\n", len(stats.Runs))
	type runInfo struct {
		id    string
		stats *RunSummary
	}
	runs := make([]runInfo, 0, len(stats.Runs))
	for id, rs := range stats.Runs {
		runs = append(runs, runInfo{id, rs})
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].stats.FirstSeen.Before(runs[j].stats.FirstSeen)
	})
	for _, r := range runs {
		duration := r.stats.LastSeen.Sub(r.stats.FirstSeen).Round(time.Millisecond)
		fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenRunID(r.id), r.stats.Events, duration)
		if r.stats.NodeName != "" {
			fmt.Fprintf(w, "           Node: %s\n", r.stats.NodeName)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}

func printCounts(w io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-16s %d\n", k+":", counts[k])
	}
}
