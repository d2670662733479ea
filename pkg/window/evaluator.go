package window

import "time"

// IsOpen reports whether the window is open at minute-of-day now.
// It is pure and total: any input combination yields a result.
func IsOpen(cfg Config, now TimeOfDay) bool {
	if !cfg.Enabled {
		return true
	}

	start, end := cfg.Start, cfg.End
	switch {
	case start < end:
		return now >= start && now < end
	case start > end:
		// Spans midnight
		return now >= start || now < end
	default:
		// Zero-length window
		return false
	}
}

// IsOpenAt reports whether the window is open at instant t, evaluated in the
// configured location.
func IsOpenAt(cfg Config, t time.Time) bool {
	return IsOpen(cfg, cfg.TimeOfDayAt(t))
}

// NextTransition returns the next instant after t at which IsOpenAt changes
// value. It returns the zero time when the state never changes (window
// disabled or zero-length).
func NextTransition(cfg Config, t time.Time) time.Time {
	if !cfg.Enabled || cfg.Start == cfg.End {
		return time.Time{}
	}

	target := cfg.Start
	if IsOpenAt(cfg, t) {
		target = cfg.End
	}

	local := t.In(cfg.location())
	y, m, d := local.Date()
	next := time.Date(y, m, d, target.Hour(), target.Minute(), 0, 0, local.Location())
	if !next.After(local) {
		next = time.Date(y, m, d+1, target.Hour(), target.Minute(), 0, 0, local.Location())
	}
	return next
}
