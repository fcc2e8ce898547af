package fields

import (
	"fmt"

	"sidecar-sync/core/luatable"
)

// Well-known field names. Configuration maps these to library columns.
const (
	PercentRead       = "percent_read"
	PercentReadInt    = "percent_read_int"
	LastReadLocation  = "last_read_location"
	Rating5           = "rating"
	Review            = "review"
	Status            = "status"
	StatusBool        = "status_bool"
	Bookmarks         = "bookmarks"
	MD5               = "md5"
	DateSynced        = "date_synced"
	DateModified      = "date_sidecar_modified"
	FirstBookmark     = "first_bookmark"
	LastBookmark      = "last_bookmark"
	DateStatusChanged = "date_status_changed"
	DateStarted       = "date_started"
	DateFinished      = "date_finished"
	RawSidecar        = "raw_sidecar"
)

// Spec describes one syncable field: where its value lives in a decoded
// sidecar, the column kind it targets, and an optional transform. An empty
// Location means the whole document.
type Spec struct {
	Name      string
	Kind      Kind
	Location  []string
	Transform Transform
}

// Catalog is the immutable, ordered field registry.
type Catalog struct {
	specs  []Spec
	byName map[string]int
}

// Builder assembles a Catalog. Populate it once at startup.
type Builder struct {
	specs []Spec
}

// NewBuilder creates an empty catalog builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a field spec. Order of addition is extraction order.
func (b *Builder) Add(spec Spec) *Builder {
	b.specs = append(b.specs, spec)
	return b
}

// Build validates the specs and returns the catalog.
func (b *Builder) Build() (*Catalog, error) {
	byName := make(map[string]int, len(b.specs))
	for i, spec := range b.specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("fields: spec %d has no name", i)
		}
		if spec.Kind == "" {
			return nil, fmt.Errorf("fields: spec %q has no kind", spec.Name)
		}
		if _, dup := byName[spec.Name]; dup {
			return nil, fmt.Errorf("fields: duplicate spec %q", spec.Name)
		}
		byName[spec.Name] = i
	}
	return &Catalog{specs: b.specs, byName: byName}, nil
}

// Specs returns the registry in declaration order.
func (c *Catalog) Specs() []Spec { return c.specs }

// Get returns the spec with the given name.
func (c *Catalog) Get(name string) (Spec, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Spec{}, false
	}
	return c.specs[i], true
}

// Resolve extracts the typed value of a field from a document. A missing
// location yields ok=false, not an error; so do empty raw values (nil,
// empty string, empty table), since a sidecar routinely lacks most fields.
func (c *Catalog) Resolve(doc *luatable.Document, spec Spec) (TypedValue, bool, error) {
	raw, found := doc.Lookup(spec.Location...)
	if !found {
		return TypedValue{}, false, nil
	}
	if isEmpty(raw) {
		return TypedValue{}, false, nil
	}
	if spec.Transform != nil {
		v, err := spec.Transform(raw)
		if err != nil {
			return TypedValue{}, false, fmt.Errorf("field %s: %w", spec.Name, err)
		}
		return v, true, nil
	}
	v, err := convert(spec.Kind, raw)
	if err != nil {
		return TypedValue{}, false, fmt.Errorf("field %s: %w", spec.Name, err)
	}
	return v, true, nil
}

// isEmpty mirrors the skip rule for absent-ish raw values. Numbers and
// booleans are never empty, so a false finished flag still syncs.
func isEmpty(v luatable.Value) bool {
	switch v.Kind() {
	case luatable.KindNil:
		return true
	case luatable.KindString:
		return v.Str() == ""
	case luatable.KindTable:
		return v.Table().Len() == 0
	}
	return false
}

// Default returns the standard KOReader sidecar catalog.
func Default() *Catalog {
	c, err := NewBuilder().
		Add(Spec{Name: PercentRead, Kind: KindFloat, Location: []string{"percent_finished"}}).
		Add(Spec{Name: PercentReadInt, Kind: KindInteger, Location: []string{"percent_finished"}, Transform: FractionToPercent}).
		Add(Spec{Name: LastReadLocation, Kind: KindText, Location: []string{"last_xpointer"}}).
		Add(Spec{Name: Rating5, Kind: KindRating, Location: []string{"summary", "rating"}, Transform: RatingScale}).
		Add(Spec{Name: Review, Kind: KindLongText, Location: []string{"summary", "note"}}).
		Add(Spec{Name: Status, Kind: KindText, Location: []string{"summary", "status"}}).
		Add(Spec{Name: StatusBool, Kind: KindBool, Location: []string{"summary", "status"}, Transform: StatusIsComplete}).
		Add(Spec{Name: Bookmarks, Kind: KindLongText, Location: []string{"bookmarks"}, Transform: TableToJSON}).
		Add(Spec{Name: MD5, Kind: KindText, Location: []string{"partial_md5_checksum"}}).
		Add(Spec{Name: DateSynced, Kind: KindTimestamp, Location: []string{"calculated", "date_synced"}}).
		Add(Spec{Name: DateModified, Kind: KindTimestamp, Location: []string{"calculated", "date_sidecar_modified"}}).
		Add(Spec{Name: FirstBookmark, Kind: KindTimestamp, Location: []string{"calculated", "first_bookmark"}}).
		Add(Spec{Name: LastBookmark, Kind: KindTimestamp, Location: []string{"calculated", "last_bookmark"}}).
		Add(Spec{Name: DateStatusChanged, Kind: KindTimestamp, Location: []string{"calculated", "date_status_changed"}}).
		Add(Spec{Name: DateStarted, Kind: KindTimestamp, Location: []string{"calculated", "date_started"}}).
		Add(Spec{Name: DateFinished, Kind: KindTimestamp, Location: []string{"calculated", "date_finished"}}).
		Add(Spec{Name: RawSidecar, Kind: KindLongText, Location: nil, Transform: DocumentToJSON}).
		Build()
	if err != nil {
		// The default catalog is static; a build failure is a programming error.
		panic(err)
	}
	return c
}
