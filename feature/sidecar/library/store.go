package library

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sidecar-sync/feature/sidecar/fields"
	"sidecar-sync/feature/sidecar/reconcile"
)

// Store implements reconcile.Library on top of the library database.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a store. Migrate must be called once before use on a
// fresh database.
func NewStore(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&Book{}, &BookField{}); err != nil {
		return fmt.Errorf("library: migrate: %w", err)
	}
	return nil
}

// Resolve implements reconcile.Library.
func (s *Store) Resolve(ctx context.Context, uuid string) (*reconcile.Record, error) {
	var book Book
	err := s.db.WithContext(ctx).Where("uuid = ?", uuid).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reconcile.ErrBookNotFound
		}
		return nil, fmt.Errorf("library: resolve %s: %w", uuid, err)
	}

	var rows []BookField
	if err := s.db.WithContext(ctx).Where("book_id = ?", book.ID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("library: load fields for %s: %w", uuid, err)
	}

	values := make(map[string]fields.TypedValue, len(rows))
	for _, row := range rows {
		values[row.Column] = rowToValue(row)
	}

	return &reconcile.Record{
		ID:     book.ID,
		UUID:   book.UUID,
		Title:  book.Title,
		Values: values,
	}, nil
}

// Update implements reconcile.Library. All changes for one book are written
// in a single transaction; concurrent batches for different books do not
// contend.
func (s *Store) Update(ctx context.Context, bookID int64, changes map[string]fields.TypedValue) error {
	if len(changes) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for column, v := range changes {
			row := valueToRow(bookID, column, v)
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "book_id"}, {Name: "name"}},
				UpdateAll: true,
			}).Create(&row).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("library: update book %d: %w", bookID, err)
	}
	return nil
}

// DeviceBook pairs a library book with its device path.
type DeviceBook struct {
	UUID  string
	Title string
	Path  string
	LPath string
}

// ListDeviceBooks returns every book that has been sent to the device,
// ordered by id for deterministic batches.
func (s *Store) ListDeviceBooks(ctx context.Context) ([]DeviceBook, error) {
	var books []Book
	err := s.db.WithContext(ctx).Where("lpath <> ''").Order("id").Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("library: list device books: %w", err)
	}
	out := make([]DeviceBook, 0, len(books))
	for _, b := range books {
		out = append(out, DeviceBook{UUID: b.UUID, Title: b.Title, Path: b.Path, LPath: b.LPath})
	}
	return out, nil
}

// DeviceBook returns a single book that has been sent to the device.
func (s *Store) DeviceBook(ctx context.Context, uuid string) (*DeviceBook, error) {
	var book Book
	err := s.db.WithContext(ctx).Where("uuid = ? AND lpath <> ''", uuid).First(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reconcile.ErrBookNotFound
		}
		return nil, fmt.Errorf("library: device book %s: %w", uuid, err)
	}
	return &DeviceBook{UUID: book.UUID, Title: book.Title, Path: book.Path, LPath: book.LPath}, nil
}

// RawSidecar returns the JSON stored in the mapped raw-sidecar column for a
// book, or ok=false when the column has never been populated.
func (s *Store) RawSidecar(ctx context.Context, uuid, column string) (string, bool, error) {
	record, err := s.Resolve(ctx, uuid)
	if err != nil {
		return "", false, err
	}
	v, ok := record.Values[column]
	if !ok || v.Text == "" {
		return "", false, nil
	}
	return v.Text, true, nil
}

func rowToValue(row BookField) fields.TypedValue {
	v := fields.TypedValue{Kind: fields.Kind(row.Kind)}
	if row.TextVal != nil {
		v.Text = *row.TextVal
	}
	if row.IntVal != nil {
		v.Int = *row.IntVal
	}
	if row.FloatVal != nil {
		v.Float = *row.FloatVal
	}
	if row.BoolVal != nil {
		v.Bool = *row.BoolVal
	}
	if row.TimeVal != nil {
		v.Time = *row.TimeVal
	}
	return v
}

func valueToRow(bookID int64, column string, v fields.TypedValue) BookField {
	row := BookField{BookID: bookID, Column: column, Kind: string(v.Kind)}
	switch v.Kind {
	case fields.KindText, fields.KindLongText:
		row.TextVal = &v.Text
	case fields.KindInteger, fields.KindRating:
		row.IntVal = &v.Int
	case fields.KindFloat:
		row.FloatVal = &v.Float
	case fields.KindBool:
		row.BoolVal = &v.Bool
	case fields.KindTimestamp:
		row.TimeVal = &v.Time
	}
	return row
}
