package services

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// lockForUpdate takes a row lock on MySQL so a precondition check and
// the following write cannot be interleaved with a concurrent writer.
// SQLite (used in tests) has no FOR UPDATE; its writes are serialized
// by the single-writer lock anyway.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "mysql" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
