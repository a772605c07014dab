package app

import (
	"encoding/json"
	"fmt"

	"github.com/lokeshkumarbalu/jira-assistant/internal/domain"
)

// MergeLayers merges settings layers given lowest to highest precedence.
// A key present in a later layer replaces the earlier value, including nil.
// Inputs are never modified.
func MergeLayers(layers ...domain.Settings) domain.Settings {
	size := 0
	for _, l := range layers {
		size += len(l)
	}

	out := make(domain.Settings, size)
	for _, l := range layers {
		for k, v := range l {
			out[k] = v
		}
	}
	return out
}

// ResolveStored normalizes a stored value against its default.
// Absent and falsy values yield dflt. Decoded values of type T are returned as is; other
// decoded shapes (JSONB maps) are converted through JSON. Raw text is decoded,
// and a decode failure is reported as KindDataCorruption.
func ResolveStored[T any](v domain.StoredValue, dflt T) (T, error) {
	if v.IsAbsent() {
		return dflt, nil
	}

	switch v.Kind {
	case domain.StoredDecoded:
		if t, ok := v.Decoded.(T); ok {
			return t, nil
		}
		b, err := json.Marshal(v.Decoded)
		if err != nil {
			return dflt, corrupt(err)
		}
		return decodeInto(b, dflt)
	case domain.StoredRaw:
		var generic any
		if err := json.Unmarshal([]byte(v.Text), &generic); err != nil {
			return dflt, corrupt(err)
		}
		// Encoded null, false, 0 and "" fall back like their decoded forms.
		if domain.Decoded(generic).IsAbsent() {
			return dflt, nil
		}
		return decodeInto([]byte(v.Text), dflt)
	default:
		return dflt, corrupt(fmt.Errorf("unknown stored kind %d", v.Kind))
	}
}

func decodeInto[T any](b []byte, dflt T) (T, error) {
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return dflt, corrupt(err)
	}
	return out, nil
}

func corrupt(err error) *domain.AuthError {
	return &domain.AuthError{Kind: domain.KindDataCorruption, Op: "decode_stored_value", Err: err}
}

// ComposePageSettings resolves every page sub-section against its default.
func ComposePageSettings(raw map[string]domain.StoredValue) (domain.PageSettings, error) {
	var ps domain.PageSettings
	var err error

	ps.Calendar, err = ResolveStored(raw[domain.PageKeyCalendar], domain.DefaultCalendarSettings())
	if err != nil {
		return ps, withOp(err, domain.PageKeyCalendar)
	}

	ps.ReportsUserDayWise, err = ResolveStored(raw[domain.PageKeyReportsUserDayWise], domain.DefaultUserDayWiseSettings())
	if err != nil {
		return ps, withOp(err, domain.PageKeyReportsUserDayWise)
	}

	return ps, nil
}

func withOp(err error, op string) error {
	if ae, ok := err.(*domain.AuthError); ok {
		c := *ae
		c.Op = op
		return &c
	}
	return err
}

// stringValue coerces an attribute to a string; absent values become "".
func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
