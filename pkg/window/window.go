package window

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Window configuration limits and defaults.
const (
	// MinutesPerDay is the number of distinct TimeOfDay values.
	MinutesPerDay = 24 * 60

	// DefaultCapacity is the queue capacity applied when QUEUE mode is
	// selected without an explicit capacity.
	DefaultCapacity = 32

	// MinCapacity is the smallest accepted queue capacity.
	MinCapacity = 1

	// MaxCapacity is the largest accepted queue capacity.
	MaxCapacity = 100

	// DefaultExpiry is the packet expiry applied when QUEUE mode is
	// selected without an explicit expiry.
	DefaultExpiry = time.Hour

	// MinExpiry is the shortest accepted packet expiry.
	MinExpiry = time.Second
)

// ErrInvalidConfiguration is returned (wrapped) for every out-of-range
// configuration value.
var ErrInvalidConfiguration = errors.New("invalid window configuration")

// TimeOfDay is a minute-of-day value in [0, MinutesPerDay).
type TimeOfDay uint16

// NewTimeOfDay builds a TimeOfDay from an hour in [0,23] and a minute in [0,59].
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: hour %d out of range 0-23", ErrInvalidConfiguration, hour)
	}
	if minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: minute %d out of range 0-59", ErrInvalidConfiguration, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// MustTimeOfDay is like NewTimeOfDay but panics on invalid input.
// Intended for constants and tests.
func MustTimeOfDay(hour, minute int) TimeOfDay {
	t, err := NewTimeOfDay(hour, minute)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimeOfDay parses an "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("%w: time %q is not in HH:MM format", ErrInvalidConfiguration, s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q is not in HH:MM format", ErrInvalidConfiguration, s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("%w: time %q is not in HH:MM format", ErrInvalidConfiguration, s)
	}
	return NewTimeOfDay(hour, minute)
}

// FromTime returns the minute of day of t in t's location.
func FromTime(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Valid reports whether t is within [0, MinutesPerDay).
func (t TimeOfDay) Valid() bool { return t < MinutesPerDay }

// String returns the "HH:MM" form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalText implements encoding.TextMarshaler.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: minute of day %d out of range", ErrInvalidConfiguration, uint16(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	v, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Mode selects what happens to outbound packets while the window is closed.
// Values match the node's persisted configuration enum.
type Mode uint8

const (
	// ModeDrop discards outbound packets while closed.
	ModeDrop Mode = iota

	// ModeQueue holds outbound packets until the window opens.
	ModeQueue

	// ModeReceiveOnly refuses transmit while closed; reception is unaffected.
	ModeReceiveOnly
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case ModeDrop:
		return "DROP"
	case ModeQueue:
		return "QUEUE"
	case ModeReceiveOnly:
		return "RECEIVE_ONLY"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m <= ModeReceiveOnly
}

// ParseMode accepts the console spellings drop, queue and receive
// (also receive-only / receive_only), case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "drop":
		return ModeDrop, nil
	case "queue":
		return ModeQueue, nil
	case "receive", "receive-only", "receive_only", "receiveonly":
		return ModeReceiveOnly, nil
	}
	return 0, fmt.Errorf("%w: unknown mode %q (use drop, queue or receive)", ErrInvalidConfiguration, s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case ModeDrop:
		return []byte("drop"), nil
	case ModeQueue:
		return []byte("queue"), nil
	case ModeReceiveOnly:
		return []byte("receive"), nil
	}
	return nil, fmt.Errorf("%w: unknown mode %d", ErrInvalidConfiguration, uint8(m))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Config is an immutable snapshot of the window settings used per evaluation.
type Config struct {
	// Enabled restricts transmit to the window. When false the window is
	// always open.
	Enabled bool

	// Start is the first minute of the window.
	Start TimeOfDay

	// End is the first minute after the window.
	End TimeOfDay

	// Mode selects the closed-window policy.
	Mode Mode

	// Capacity is the maximum number of queued packets.
	Capacity int

	// Expiry is how long a queued packet may wait before it is discarded.
	Expiry time.Duration

	// Location is the time zone the window is defined in. Nil means time.Local.
	Location *time.Location
}

// DefaultConfig returns the factory settings: disabled, 21:00-23:00,
// receive-only, 32 packets, one hour expiry.
func DefaultConfig() Config {
	return Config{
		Enabled:  false,
		Start:    MustTimeOfDay(21, 0),
		End:      MustTimeOfDay(23, 0),
		Mode:     ModeReceiveOnly,
		Capacity: DefaultCapacity,
		Expiry:   DefaultExpiry,
	}
}

// WithDefaults fills capacity and expiry when QUEUE mode is selected and
// they are unset. It applies when a configuration is loaded or switched into
// QUEUE mode, never to an explicit field update.
func (c Config) WithDefaults() Config {
	if c.Mode == ModeQueue {
		if c.Capacity == 0 {
			c.Capacity = DefaultCapacity
		}
		if c.Expiry == 0 {
			c.Expiry = DefaultExpiry
		}
	}
	return c
}

// Validate checks every field. Capacity and expiry may be zero only when the
// mode does not use the queue.
func (c Config) Validate() error {
	if !c.Start.Valid() {
		return fmt.Errorf("%w: start %d out of range", ErrInvalidConfiguration, uint16(c.Start))
	}
	if !c.End.Valid() {
		return fmt.Errorf("%w: end %d out of range", ErrInvalidConfiguration, uint16(c.End))
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %d", ErrInvalidConfiguration, uint8(c.Mode))
	}

	if c.Capacity != 0 || c.Mode == ModeQueue {
		if err := ValidateCapacity(c.Capacity); err != nil {
			return err
		}
	}
	if c.Expiry != 0 || c.Mode == ModeQueue {
		if err := ValidateExpiry(c.Expiry); err != nil {
			return err
		}
	}
	return nil
}

// ValidateCapacity checks n against MinCapacity and MaxCapacity.
func ValidateCapacity(n int) error {
	if n < MinCapacity || n > MaxCapacity {
		return fmt.Errorf("%w: capacity %d out of range %d-%d",
			ErrInvalidConfiguration, n, MinCapacity, MaxCapacity)
	}
	return nil
}

// ValidateExpiry checks d against MinExpiry.
func ValidateExpiry(d time.Duration) error {
	if d < MinExpiry {
		return fmt.Errorf("%w: expiry %v below %v", ErrInvalidConfiguration, d, MinExpiry)
	}
	return nil
}

// location returns the configured location or time.Local.
func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// TimeOfDayAt converts an instant to the window's minute of day.
func (c Config) TimeOfDayAt(t time.Time) TimeOfDay {
	return FromTime(t.In(c.location()))
}

// String returns a one-line summary, e.g. "21:00-23:00 QUEUE".
func (c Config) String() string {
	if !c.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("%s-%s %s", c.Start, c.End, c.Mode)
}
