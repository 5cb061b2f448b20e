// Package gormstore persists statuses, the catalog and rewards through gorm.
// Postgres, MySQL and SQLite are supported.
package gormstore

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// maxInsertRetries bounds reruns of a status write that lost its first insert
// to a concurrent writer.
const maxInsertRetries = 3

var errInsertRace = errors.New("row inserted concurrently")

// forUpdate row-locks the selected rows. SQLite serialises writers on its own
// and has no FOR UPDATE.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// notFoundAsNil maps a missing row to (nil, nil) at the call site.
func notFoundAsNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
