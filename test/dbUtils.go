package test

import (
	dbUtils "github.com/hermeznetwork/slotauction/db"
	"github.com/jmoiron/sqlx"
)

// WipeDB redo all the migrations of the SQL DB, efectively recreating the
// original state
func WipeDB(db *sqlx.DB) {
	if err := dbUtils.MigrationsDown(db.DB, db.DriverName(), 0); err != nil {
		panic(err)
	}
	if err := dbUtils.MigrationsUp(db.DB, db.DriverName()); err != nil {
		panic(err)
	}
}
