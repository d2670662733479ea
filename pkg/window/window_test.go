package window

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enabledConfig(start, end TimeOfDay) Config {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Start = start
	cfg.End = end
	cfg.Location = time.UTC
	return cfg
}

// referenceOpen restates the evaluation rules independently of IsOpen.
func referenceOpen(start, end, cur int) bool {
	if start < end {
		return start <= cur && cur < end
	}
	if start > end {
		return cur >= start || cur < end
	}
	return false
}

func TestIsOpenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Start = MustTimeOfDay(8, 0)
	cfg.End = MustTimeOfDay(8, 0)

	for cur := TimeOfDay(0); cur < MinutesPerDay; cur += 17 {
		if !IsOpen(cfg, cur) {
			t.Fatalf("IsOpen(disabled, %s) = false, want true", cur)
		}
	}
}

func TestIsOpenCases(t *testing.T) {
	tests := []struct {
		name  string
		start TimeOfDay
		end   TimeOfDay
		now   TimeOfDay
		want  bool
	}{
		{"SameDayBeforeStart", MustTimeOfDay(9, 0), MustTimeOfDay(17, 0), MustTimeOfDay(8, 59), false},
		{"SameDayAtStart", MustTimeOfDay(9, 0), MustTimeOfDay(17, 0), MustTimeOfDay(9, 0), true},
		{"SameDayInside", MustTimeOfDay(9, 0), MustTimeOfDay(17, 0), MustTimeOfDay(14, 0), true},
		{"SameDayAtEnd", MustTimeOfDay(9, 0), MustTimeOfDay(17, 0), MustTimeOfDay(17, 0), false},
		{"MidnightLateEvening", MustTimeOfDay(22, 0), MustTimeOfDay(6, 0), MustTimeOfDay(23, 30), true},
		{"MidnightEarlyMorning", MustTimeOfDay(22, 0), MustTimeOfDay(6, 0), MustTimeOfDay(5, 59), true},
		{"MidnightAtEnd", MustTimeOfDay(22, 0), MustTimeOfDay(6, 0), MustTimeOfDay(6, 0), false},
		{"MidnightDaytime", MustTimeOfDay(22, 0), MustTimeOfDay(6, 0), MustTimeOfDay(12, 0), false},
		{"MidnightExactly", MustTimeOfDay(22, 0), MustTimeOfDay(6, 0), 0, true},
		{"ZeroLengthAtStart", MustTimeOfDay(8, 0), MustTimeOfDay(8, 0), MustTimeOfDay(8, 0), false},
		{"ZeroLengthElsewhere", MustTimeOfDay(8, 0), MustTimeOfDay(8, 0), MustTimeOfDay(20, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsOpen(enabledConfig(tt.start, tt.end), tt.now)
			if got != tt.want {
				t.Errorf("IsOpen(%s-%s, %s) = %v, want %v", tt.start, tt.end, tt.now, got, tt.want)
			}
		})
	}
}

// TestIsOpenWraparoundExhaustive checks every start/end pair against the
// reference rules at the boundary minutes of each pair.
func TestIsOpenWraparoundExhaustive(t *testing.T) {
	cfg := enabledConfig(0, 0)
	wrap := func(v int) int { return (v + MinutesPerDay) % MinutesPerDay }

	for start := 0; start < MinutesPerDay; start++ {
		for end := 0; end < MinutesPerDay; end++ {
			cfg.Start = TimeOfDay(start)
			cfg.End = TimeOfDay(end)
			samples := [...]int{
				0, MinutesPerDay - 1,
				wrap(start - 1), start, wrap(start + 1),
				wrap(end - 1), end, wrap(end + 1),
			}
			for _, cur := range samples {
				if got, want := IsOpen(cfg, TimeOfDay(cur)), referenceOpen(start, end, cur); got != want {
					t.Fatalf("IsOpen(start=%d end=%d cur=%d) = %v, want %v", start, end, cur, got, want)
				}
			}
		}
	}
}

func TestIsOpenAtUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	cfg := enabledConfig(MustTimeOfDay(9, 0), MustTimeOfDay(10, 0))
	cfg.Location = loc

	// 07:30 UTC is 09:30 in UTC+2.
	now := time.Date(2026, 3, 1, 7, 30, 0, 0, time.UTC)
	assert.True(t, IsOpenAt(cfg, now))

	cfg.Location = time.UTC
	assert.False(t, IsOpenAt(cfg, now))
}

func TestNextTransition(t *testing.T) {
	day := func(h, m int) time.Time { return time.Date(2026, 3, 1, h, m, 0, 0, time.UTC) }

	tests := []struct {
		name  string
		start TimeOfDay
		end   TimeOfDay
		now   time.Time
		want  time.Time
	}{
		{"ClosedBeforeStart", MustTimeOfDay(21, 0), MustTimeOfDay(23, 0), day(20, 15), day(21, 0)},
		{"OpenInside", MustTimeOfDay(21, 0), MustTimeOfDay(23, 0), day(21, 30), day(23, 0)},
		{"ClosedAfterEnd", MustTimeOfDay(21, 0), MustTimeOfDay(23, 0), day(23, 30), day(21, 0).AddDate(0, 0, 1)},
		{"WrapOpenLate", MustTimeOfDay(22, 0), MustTimeOfDay(6, 0), day(23, 0), day(6, 0).AddDate(0, 0, 1)},
		{"WrapOpenEarly", MustTimeOfDay(22, 0), MustTimeOfDay(6, 0), day(2, 0), day(6, 0)},
		{"WrapClosed", MustTimeOfDay(22, 0), MustTimeOfDay(6, 0), day(12, 0), day(22, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextTransition(enabledConfig(tt.start, tt.end), tt.now)
			if !got.Equal(tt.want) {
				t.Errorf("NextTransition() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("ZeroLength", func(t *testing.T) {
		got := NextTransition(enabledConfig(MustTimeOfDay(8, 0), MustTimeOfDay(8, 0)), day(8, 0))
		assert.True(t, got.IsZero())
	})

	t.Run("Disabled", func(t *testing.T) {
		assert.True(t, NextTransition(DefaultConfig(), day(8, 0)).IsZero())
	})
}

func TestTimeOfDayParse(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"00:00", 0, false},
		{"21:05", MustTimeOfDay(21, 5), false},
		{"23:59", MinutesPerDay - 1, false},
		{" 7:30 ", MustTimeOfDay(7, 30), false},
		{"24:00", 0, true},
		{"12:60", 0, true},
		{"-1:00", 0, true},
		{"1200", 0, true},
		{"ab:cd", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidConfiguration))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"drop":         ModeDrop,
		"QUEUE":        ModeQueue,
		"receive":      ModeReceiveOnly,
		"receive-only": ModeReceiveOnly,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("broadcast")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"Default", func(c *Config) {}, false},
		{"QueueMinimums", func(c *Config) { c.Mode = ModeQueue; c.Capacity = 1; c.Expiry = time.Second }, false},
		{"QueueMaxCapacity", func(c *Config) { c.Mode = ModeQueue; c.Capacity = MaxCapacity }, false},
		{"CapacityTooLarge", func(c *Config) { c.Capacity = MaxCapacity + 1 }, true},
		{"CapacityNegative", func(c *Config) { c.Capacity = -1 }, true},
		{"QueueZeroCapacity", func(c *Config) { c.Mode = ModeQueue; c.Capacity = 0 }, true},
		{"DropZeroCapacity", func(c *Config) { c.Mode = ModeDrop; c.Capacity = 0; c.Expiry = 0 }, false},
		{"ExpiryTooShort", func(c *Config) { c.Expiry = 500 * time.Millisecond }, true},
		{"StartOutOfRange", func(c *Config) { c.Start = MinutesPerDay }, true},
		{"EndOutOfRange", func(c *Config) { c.End = 5000 }, true},
		{"UnknownMode", func(c *Config) { c.Mode = 9 }, true},
		{"EndBeforeStartAccepted", func(c *Config) { c.Start = MustTimeOfDay(22, 0); c.End = MustTimeOfDay(6, 0) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfiguration) {
				t.Errorf("Validate() error = %v, want wrapped ErrInvalidConfiguration", err)
			}
		})
	}
}

func TestValidateCapacityAndExpiry(t *testing.T) {
	for _, n := range []int{0, -1, MaxCapacity + 1} {
		assert.ErrorIs(t, ValidateCapacity(n), ErrInvalidConfiguration, "capacity %d", n)
	}
	assert.NoError(t, ValidateCapacity(MinCapacity))
	assert.NoError(t, ValidateCapacity(MaxCapacity))

	assert.ErrorIs(t, ValidateExpiry(0), ErrInvalidConfiguration)
	assert.ErrorIs(t, ValidateExpiry(-time.Minute), ErrInvalidConfiguration)
	assert.NoError(t, ValidateExpiry(MinExpiry))
}

func TestConfigWithDefaults(t *testing.T) {
	cfg := Config{Mode: ModeQueue}
	cfg = cfg.WithDefaults()
	assert.Equal(t, DefaultCapacity, cfg.Capacity)
	assert.Equal(t, DefaultExpiry, cfg.Expiry)

	cfg = Config{Mode: ModeQueue, Capacity: 5, Expiry: time.Minute}.WithDefaults()
	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, time.Minute, cfg.Expiry)

	cfg = Config{Mode: ModeDrop}.WithDefaults()
	assert.Zero(t, cfg.Capacity)
	assert.Zero(t, cfg.Expiry)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "DROP", ModeDrop.String())
	assert.Equal(t, "QUEUE", ModeQueue.String())
	assert.Equal(t, "RECEIVE_ONLY", ModeReceiveOnly.String())
	assert.Equal(t, "UNKNOWN", Mode(7).String())
}
