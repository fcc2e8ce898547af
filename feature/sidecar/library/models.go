// Package library is the gorm-backed library store: it resolves book UUIDs
// to records, reads current typed column values, and durably writes the
// updates the reconciliation pipeline proposes.
package library

import "time"

// Book is one library entry.
type Book struct {
	ID int64 `gorm:"column:id;primaryKey"`
	// UUID is the stable identifier shared with device book lists.
	UUID  string `gorm:"column:uuid;uniqueIndex;size:36"`
	Title string `gorm:"column:title"`
	// Path is the book file inside the library, used for fingerprinting.
	Path string `gorm:"column:path"`
	// LPath is the device-relative path, empty when the book was never sent
	// to a device.
	LPath string `gorm:"column:lpath"`
}

// TableName overrides the table name.
func (Book) TableName() string { return "books" }

// BookField is one typed column value for one book. One row per populated
// column; the Kind discriminates which value column is meaningful.
type BookField struct {
	ID       int64      `gorm:"column:id;primaryKey"`
	BookID   int64      `gorm:"column:book_id;uniqueIndex:idx_book_column"`
	Column   string     `gorm:"column:name;uniqueIndex:idx_book_column;size:64"`
	Kind     string     `gorm:"column:kind;size:16"`
	TextVal  *string    `gorm:"column:text_val"`
	IntVal   *int64     `gorm:"column:int_val"`
	FloatVal *float64   `gorm:"column:float_val"`
	BoolVal  *bool      `gorm:"column:bool_val"`
	TimeVal  *time.Time `gorm:"column:time_val"`
}

// TableName overrides the table name.
func (BookField) TableName() string { return "book_fields" }
