package sidecar

import (
	"time"

	"sidecar-sync/core/luatable"
	"sidecar-sync/feature/sidecar/fields"
	"sidecar-sync/feature/sidecar/reconcile"
)

// InjectCalculated populates the document's calculated sub-map: values the
// pipeline derives that are never present in the original sidecar bytes.
// The sub-map is excluded again when a document is serialized for storage
// or written back to the device.
func InjectCalculated(doc *luatable.Document, modTime, syncTime time.Time) {
	calc := luatable.NewTable()

	if first, last, ok := bookmarkRange(doc); ok {
		calc.SetStr("first_bookmark", timeValue(first))
		calc.SetStr("last_bookmark", timeValue(last))
	}

	if !modTime.IsZero() {
		calc.SetStr("date_sidecar_modified", timeValue(modTime))
	}
	calc.SetStr("date_synced", timeValue(syncTime))

	injectStatusDates(doc, calc)

	doc.Root.SetStr("calculated", luatable.TableVal(calc))
}

// bookmarkRange scans the bookmarks table for the earliest and latest
// bookmark datetimes.
func bookmarkRange(doc *luatable.Document) (first, last time.Time, ok bool) {
	raw, found := doc.Lookup("bookmarks")
	if !found || raw.Kind() != luatable.KindTable {
		return time.Time{}, time.Time{}, false
	}
	bookmarks := raw.Table()

	consider := func(v luatable.Value) {
		if v.Kind() != luatable.KindTable {
			return
		}
		dt, has := v.Table().GetStr("datetime")
		if !has || dt.Kind() != luatable.KindString {
			return
		}
		t, err := fields.ParseTime(dt.Str())
		if err != nil {
			return
		}
		if !ok || t.Before(first) {
			first = t
		}
		if !ok || t.After(last) {
			last = t
		}
		ok = true
	}

	for _, k := range bookmarks.IntKeys() {
		v, _ := bookmarks.GetInt(k)
		consider(v)
	}
	for _, k := range bookmarks.StrKeys() {
		v, _ := bookmarks.GetStr(k)
		consider(v)
	}
	return first, last, ok
}

// injectStatusDates derives the status-change timestamps from the summary's
// modified date: the date the status last changed, doubling as the started
// or finished date depending on the status it changed to.
func injectStatusDates(doc *luatable.Document, calc *luatable.Table) {
	modified, ok := doc.Lookup("summary", "modified")
	if !ok || modified.Kind() != luatable.KindString {
		return
	}
	t, err := parseSummaryDate(modified.Str())
	if err != nil {
		return
	}
	calc.SetStr("date_status_changed", timeValue(t))

	status, ok := doc.Lookup("summary", "status")
	if !ok || status.Kind() != luatable.KindString {
		return
	}
	switch status.Str() {
	case reconcile.StatusReading:
		calc.SetStr("date_started", timeValue(t))
	case reconcile.StatusComplete:
		calc.SetStr("date_finished", timeValue(t))
	}
}

// parseSummaryDate parses summary.modified, which KOReader writes as a bare
// date, tolerating the full datetime layout some versions use.
func parseSummaryDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	return fields.ParseTime(s)
}

func timeValue(t time.Time) luatable.Value {
	return luatable.String(t.UTC().Format(fields.SidecarTimeLayout))
}
