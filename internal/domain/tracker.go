package domain

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Marker keys for the time tracker preferences.
const (
	TrackerPauseOnLock = "TR_PauseOnLock"
	TrackerPauseOnIdle = "TR_PauseOnIdle"
	TrackerMinTime     = "TR_MinTime"
	TrackerRoundTime   = "TR_RoundTime"
	TrackerRoundOpr    = "TR_RoundOpr"
)

var TrackerKeys = []string{
	TrackerPauseOnLock,
	TrackerPauseOnIdle,
	TrackerMinTime,
	TrackerRoundTime,
	TrackerRoundOpr,
}

type RoundOperation string

const (
	RoundNone RoundOperation = ""
	RoundNear RoundOperation = "round"
	RoundUp   RoundOperation = "ceil"
	RoundDown RoundOperation = "floor"
)

const defaultMin = "00:05"

var allowedRoundMinutes = []int{5, 10, 15, 30, 60}

type TrackerSettings struct {
	PauseOnLock    bool           `json:"pauseOnLock"`
	PauseOnIdle    bool           `json:"pauseOnIdle"`
	MinTime        string         `json:"minTime"`
	RoundTime      int            `json:"roundTime"`
	RoundOperation RoundOperation `json:"roundOperation"`
}

func DefaultTrackerSettings() TrackerSettings {
	return TrackerSettings{MinTime: defaultMin, RoundTime: 5, RoundOperation: RoundNone}
}

// ValidateTrackerValue checks a single stored value. Empty means "unset".
func ValidateTrackerValue(key, value string) error {
	if value == "" {
		if !slices.Contains(TrackerKeys, key) {
			return fmt.Errorf("unknown tracker setting %q", key)
		}
		return nil
	}

	switch key {
	case TrackerPauseOnLock, TrackerPauseOnIdle:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%s must be a boolean", key)
		}
	case TrackerMinTime:
		if _, err := parseClock(value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	case TrackerRoundTime:
		n, err := strconv.Atoi(value)
		if err != nil || !slices.Contains(allowedRoundMinutes, n) {
			return fmt.Errorf("%s must be one of 5, 10, 15, 30, 60", key)
		}
	case TrackerRoundOpr:
		switch RoundOperation(value) {
		case RoundNear, RoundUp, RoundDown:
		default:
			return fmt.Errorf("%s must be round, ceil or floor", key)
		}
	default:
		return fmt.Errorf("unknown tracker setting %q", key)
	}
	return nil
}

// TrackerSettingsFrom builds settings from stored marker values, keeping
// defaults for keys that are missing.
func TrackerSettingsFrom(values map[string]string) (TrackerSettings, error) {
	s := DefaultTrackerSettings()
	for _, key := range TrackerKeys {
		v := values[key]
		if v == "" {
			continue
		}
		if err := ValidateTrackerValue(key, v); err != nil {
			return s, err
		}
		switch key {
		case TrackerPauseOnLock:
			s.PauseOnLock, _ = strconv.ParseBool(v)
		case TrackerPauseOnIdle:
			s.PauseOnIdle, _ = strconv.ParseBool(v)
		case TrackerMinTime:
			s.MinTime = v
		case TrackerRoundTime:
			s.RoundTime, _ = strconv.Atoi(v)
		case TrackerRoundOpr:
			s.RoundOperation = RoundOperation(v)
		}
	}
	return s, nil
}

func (s TrackerSettings) MinDuration() time.Duration {
	d, err := parseClock(s.MinTime)
	if err != nil {
		d, _ = parseClock(defaultMin)
	}
	return d
}

// Apply drops tracked time below MinTime and rounds the remainder to RoundTime minutes.
func (s TrackerSettings) Apply(tracked time.Duration) time.Duration {
	if tracked < s.MinDuration() {
		return 0
	}

	unit := time.Duration(s.RoundTime) * time.Minute
	if unit <= 0 {
		return tracked
	}

	switch s.RoundOperation {
	case RoundNear:
		return tracked.Round(unit)
	case RoundDown:
		return tracked.Truncate(unit)
	case RoundUp:
		if r := tracked.Truncate(unit); r != tracked {
			return r + unit
		}
		return tracked
	default:
		return tracked
	}
}

func parseClock(v string) (time.Duration, error) {
	h, m, ok := strings.Cut(v, ":")
	if !ok || len(h) != 2 || len(m) != 2 {
		return 0, fmt.Errorf("time %q must be HH:MM", v)
	}
	hours, err := strconv.Atoi(h)
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("time %q has invalid hours", v)
	}
	minutes, err := strconv.Atoi(m)
	if err != nil || minutes < 0 || minutes >= 60 {
		return 0, fmt.Errorf("time %q has invalid minutes", v)
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
}
