// Package fields is the static registry of syncable sidecar fields.
//
// Each field names where its value lives inside a decoded sidecar, which
// typed library column kind it targets, and an optional transform applied on
// extraction. The registry is built once at startup and never mutated.
package fields

import (
	"fmt"
	"time"
)

// Kind is a typed library column kind.
type Kind string

const (
	// KindText is a short text column.
	KindText Kind = "text"
	// KindInteger is an integer column.
	KindInteger Kind = "integer"
	// KindFloat is a floating-point column.
	KindFloat Kind = "float"
	// KindBool is a boolean column.
	KindBool Kind = "bool"
	// KindRating is a 0-10 half-star rating column.
	KindRating Kind = "rating"
	// KindTimestamp is a date/time column.
	KindTimestamp Kind = "timestamp"
	// KindLongText is a long-form text column (comments, serialized blobs).
	KindLongText Kind = "longtext"
)

// TypedValue is one extracted, transformed value ready for a library column.
type TypedValue struct {
	Kind  Kind
	Text  string
	Int   int64
	Float float64
	Bool  bool
	Time  time.Time
}

// Text returns a text value.
func Text(s string) TypedValue { return TypedValue{Kind: KindText, Text: s} }

// Integer returns an integer value.
func Integer(i int64) TypedValue { return TypedValue{Kind: KindInteger, Int: i} }

// Float returns a float value.
func Float(f float64) TypedValue { return TypedValue{Kind: KindFloat, Float: f} }

// Bool returns a boolean value.
func Bool(b bool) TypedValue { return TypedValue{Kind: KindBool, Bool: b} }

// Rating returns a rating value on the 0-10 scale.
func Rating(i int64) TypedValue { return TypedValue{Kind: KindRating, Int: i} }

// Timestamp returns a timestamp value.
func Timestamp(t time.Time) TypedValue { return TypedValue{Kind: KindTimestamp, Time: t} }

// LongText returns a long-text value.
func LongText(s string) TypedValue { return TypedValue{Kind: KindLongText, Text: s} }

// Equal reports whether two values are the same, kind included.
func (v TypedValue) Equal(other TypedValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindText, KindLongText:
		return v.Text == other.Text
	case KindInteger, KindRating:
		return v.Int == other.Int
	case KindFloat:
		return v.Float == other.Float
	case KindBool:
		return v.Bool == other.Bool
	case KindTimestamp:
		return v.Time.Equal(other.Time)
	}
	return false
}

// String renders the value for audit display in sync reports.
func (v TypedValue) String() string {
	switch v.Kind {
	case KindText, KindLongText:
		return v.Text
	case KindInteger, KindRating:
		return fmt.Sprintf("%d", v.Int)
	case KindFloat:
		return fmt.Sprintf("%g", v.Float)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case KindTimestamp:
		return v.Time.Format(time.RFC3339)
	}
	return ""
}
