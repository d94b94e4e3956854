package statscache

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Uptime reads and persists a single-line startup_time_millis artifact so
// the operational uptime reported in /work/stats survives restarts.
type Uptime struct {
	startup time.Time
}

// LoadUptime reads the startup timestamp from path. If the file is
// missing or unparseable, the current time is written and used instead.
func LoadUptime(path string) (*Uptime, error) {
	if data, err := os.ReadFile(path); err == nil {
		if ms, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64); err == nil {
			return &Uptime{startup: time.UnixMilli(ms).UTC()}, nil
		}
	}

	now := time.Now().UTC()
	if err := os.WriteFile(path, []byte(strconv.FormatInt(now.UnixMilli(), 10)), 0o644); err != nil {
		return nil, fmt.Errorf("write startup time artifact: %w", err)
	}
	return &Uptime{startup: now}, nil
}

// Elapsed returns the duration since startup.
func (u *Uptime) Elapsed() time.Duration {
	return time.Since(u.startup)
}

// Formatted renders Elapsed as "NdNhNmNs", omitting zero leading units.
func (u *Uptime) Formatted() string {
	d := u.Elapsed()
	days := int64(d / (24 * time.Hour))
	d -= time.Duration(days) * 24 * time.Hour
	hours := int64(d / time.Hour)
	d -= time.Duration(hours) * time.Hour
	minutes := int64(d / time.Minute)
	d -= time.Duration(minutes) * time.Minute
	seconds := int64(d / time.Second)

	var b strings.Builder
	if days > 0 {
		fmt.Fprintf(&b, "%dd", days)
	}
	if hours > 0 || days > 0 {
		fmt.Fprintf(&b, "%dh", hours)
	}
	if minutes > 0 || hours > 0 || days > 0 {
		fmt.Fprintf(&b, "%dm", minutes)
	}
	fmt.Fprintf(&b, "%ds", seconds)
	return b.String()
}
