package fields

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"sidecar-sync/core/luatable"
)

// SidecarTimeLayout is how KOReader stamps datetimes inside sidecars.
const SidecarTimeLayout = "2006-01-02 15:04:05"

// Transform converts a raw sidecar value into a typed column value.
type Transform func(luatable.Value) (TypedValue, error)

// FractionToPercent rounds a 0-1 progress fraction to the nearest whole
// percent for integer-percent columns.
func FractionToPercent(v luatable.Value) (TypedValue, error) {
	if v.Kind() != luatable.KindInt && v.Kind() != luatable.KindFloat {
		return TypedValue{}, fmt.Errorf("fields: progress value is not a number")
	}
	return Integer(int64(math.Round(v.Number() * 100))), nil
}

// RatingScale rescales KOReader's 0-5 star rating to the library's 0-10
// half-star scale.
func RatingScale(v luatable.Value) (TypedValue, error) {
	if v.Kind() != luatable.KindInt && v.Kind() != luatable.KindFloat {
		return TypedValue{}, fmt.Errorf("fields: rating value is not a number")
	}
	return Rating(int64(math.Round(v.Number() * 2))), nil
}

// StatusIsComplete maps the status string onto a boolean finished flag.
func StatusIsComplete(v luatable.Value) (TypedValue, error) {
	if v.Kind() != luatable.KindString {
		return TypedValue{}, fmt.Errorf("fields: status value is not a string")
	}
	return Bool(v.Str() == "complete"), nil
}

// TableToJSON serializes any table-valued field (bookmarks, highlights) into
// indented JSON for a long-text column.
func TableToJSON(v luatable.Value) (TypedValue, error) {
	if v.Kind() != luatable.KindTable {
		return TypedValue{}, fmt.Errorf("fields: value is not a table")
	}
	data, err := luatable.ToJSON(&luatable.Document{Root: v.Table()})
	if err != nil {
		return TypedValue{}, err
	}
	return LongText(string(data)), nil
}

// DocumentToJSON serializes the whole sidecar into JSON, excluding the
// calculated sub-map this tool injects after decode. This is the raw-sidecar
// column used by the reverse sync path.
func DocumentToJSON(v luatable.Value) (TypedValue, error) {
	if v.Kind() != luatable.KindTable {
		return TypedValue{}, fmt.Errorf("fields: value is not a table")
	}
	root := v.Table().Clone()
	root.DeleteStr("calculated")
	data, err := luatable.ToJSON(&luatable.Document{Root: root})
	if err != nil {
		return TypedValue{}, err
	}
	return LongText(string(data)), nil
}

// ParseTime parses a sidecar timestamp string: the device's own layout
// first, RFC 3339 for values this tool injected.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(SidecarTimeLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("fields: unrecognized timestamp %q", s)
	}
	return t, nil
}

// convert applies the default conversion for a target kind when a field has
// no explicit transform.
func convert(kind Kind, v luatable.Value) (TypedValue, error) {
	switch kind {
	case KindText, KindLongText:
		s, err := asString(v)
		if err != nil {
			return TypedValue{}, err
		}
		if kind == KindLongText {
			return LongText(s), nil
		}
		return Text(s), nil
	case KindInteger:
		switch v.Kind() {
		case luatable.KindInt:
			return Integer(v.Int()), nil
		case luatable.KindFloat:
			return Integer(int64(math.Round(v.Float()))), nil
		case luatable.KindString:
			i, err := strconv.ParseInt(strings.TrimSpace(v.Str()), 10, 64)
			if err != nil {
				return TypedValue{}, fmt.Errorf("fields: %q is not an integer", v.Str())
			}
			return Integer(i), nil
		}
		return TypedValue{}, fmt.Errorf("fields: cannot convert to integer")
	case KindFloat:
		if v.Kind() != luatable.KindInt && v.Kind() != luatable.KindFloat {
			return TypedValue{}, fmt.Errorf("fields: cannot convert to float")
		}
		return Float(v.Number()), nil
	case KindBool:
		if v.Kind() != luatable.KindBool {
			return TypedValue{}, fmt.Errorf("fields: cannot convert to bool")
		}
		return Bool(v.Bool()), nil
	case KindRating:
		if v.Kind() != luatable.KindInt && v.Kind() != luatable.KindFloat {
			return TypedValue{}, fmt.Errorf("fields: cannot convert to rating")
		}
		return Rating(int64(math.Round(v.Number()))), nil
	case KindTimestamp:
		if v.Kind() != luatable.KindString {
			return TypedValue{}, fmt.Errorf("fields: cannot convert to timestamp")
		}
		t, err := ParseTime(v.Str())
		if err != nil {
			return TypedValue{}, err
		}
		return Timestamp(t), nil
	}
	return TypedValue{}, fmt.Errorf("fields: unknown kind %q", kind)
}

func asString(v luatable.Value) (string, error) {
	switch v.Kind() {
	case luatable.KindString:
		return v.Str(), nil
	case luatable.KindInt:
		return strconv.FormatInt(v.Int(), 10), nil
	case luatable.KindFloat:
		return strconv.FormatFloat(v.Float(), 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("fields: cannot convert to text")
	}
}
