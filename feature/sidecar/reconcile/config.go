package reconcile

import "sidecar-sync/feature/sidecar/fields"

// Config controls the reconciliation gates and the field-to-column mapping.
// It is read once per reconcile call; there is no global mutable state.
type Config struct {
	// SyncIfNewer enables the recency gate: only sync a book whose sidecar
	// is newer than the library state (by modification time when available,
	// by read progress otherwise).
	SyncIfNewer bool `mapstructure:"sync_if_newer" default:"false"`
	// NoSyncIfFinished enables the already-finished gate: books the library
	// considers finished are never overwritten by in-progress data.
	NoSyncIfFinished bool `mapstructure:"no_sync_if_finished" default:"false"`
	// DryRun logs what would change without writing to the library.
	DryRun bool `mapstructure:"dry_run" default:"false"`
	// Workers is the number of books reconciled concurrently in a batch.
	Workers int `mapstructure:"workers" default:"1"`
	// Columns maps sidecar fields to library columns. Unmapped fields are
	// not synced.
	Columns Columns `mapstructure:"columns"`
}

// Columns maps each syncable field to a library column name. An empty name
// leaves the field unsynced, mirroring an unmapped column in the UI the
// engine replaces.
type Columns struct {
	PercentRead       string `mapstructure:"percent_read" default:""`
	PercentReadInt    string `mapstructure:"percent_read_int" default:""`
	LastReadLocation  string `mapstructure:"last_read_location" default:""`
	Rating            string `mapstructure:"rating" default:""`
	Review            string `mapstructure:"review" default:""`
	Status            string `mapstructure:"status" default:""`
	StatusBool        string `mapstructure:"status_bool" default:""`
	Bookmarks         string `mapstructure:"bookmarks" default:""`
	MD5               string `mapstructure:"md5" default:""`
	DateSynced        string `mapstructure:"date_synced" default:""`
	DateModified      string `mapstructure:"date_sidecar_modified" default:""`
	FirstBookmark     string `mapstructure:"first_bookmark" default:""`
	LastBookmark      string `mapstructure:"last_bookmark" default:""`
	DateStatusChanged string `mapstructure:"date_status_changed" default:""`
	DateStarted       string `mapstructure:"date_started" default:""`
	DateFinished      string `mapstructure:"date_finished" default:""`
	RawSidecar        string `mapstructure:"raw_sidecar" default:""`
}

// Column returns the mapped library column for a field, or "" if unmapped.
func (c Columns) Column(field string) string {
	switch field {
	case fields.PercentRead:
		return c.PercentRead
	case fields.PercentReadInt:
		return c.PercentReadInt
	case fields.LastReadLocation:
		return c.LastReadLocation
	case fields.Rating5:
		return c.Rating
	case fields.Review:
		return c.Review
	case fields.Status:
		return c.Status
	case fields.StatusBool:
		return c.StatusBool
	case fields.Bookmarks:
		return c.Bookmarks
	case fields.MD5:
		return c.MD5
	case fields.DateSynced:
		return c.DateSynced
	case fields.DateModified:
		return c.DateModified
	case fields.FirstBookmark:
		return c.FirstBookmark
	case fields.LastBookmark:
		return c.LastBookmark
	case fields.DateStatusChanged:
		return c.DateStatusChanged
	case fields.DateStarted:
		return c.DateStarted
	case fields.DateFinished:
		return c.DateFinished
	case fields.RawSidecar:
		return c.RawSidecar
	}
	return ""
}
