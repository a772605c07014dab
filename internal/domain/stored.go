package domain

// StoredKind tags how a persisted settings value arrived.
type StoredKind int

const (
	StoredAbsent StoredKind = iota
	StoredRaw               // textual encoding, still to be decoded
	StoredDecoded           // already structured
)

// StoredValue is a persisted settings value whose representation is known up front,
// so callers never have to probe its dynamic type.
type StoredValue struct {
	Kind    StoredKind
	Text    string
	Decoded any
}

func Absent() StoredValue {
	return StoredValue{}
}

func Raw(text string) StoredValue {
	return StoredValue{Kind: StoredRaw, Text: text}
}

func Decoded(v any) StoredValue {
	return StoredValue{Kind: StoredDecoded, Decoded: v}
}

// IsAbsent reports whether the value should fall back to its default.
// Empty text and falsy decoded values (nil, false, zero, "") count as absent.
func (v StoredValue) IsAbsent() bool {
	switch v.Kind {
	case StoredRaw:
		return v.Text == ""
	case StoredDecoded:
		return isFalsy(v.Decoded)
	default:
		return true
	}
}

func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	default:
		return false
	}
}
