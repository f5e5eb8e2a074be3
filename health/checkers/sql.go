package checkers

import (
	"database/sql"

	"github.com/dimiro1/health"
	dbHealth "github.com/dimiro1/health/db"
	"github.com/hermeznetwork/slotauction/db"
)

const lastMigrationQuery = `SELECT id FROM gorp_migrations ORDER BY id DESC LIMIT 1`

// SQLChecker struct to check current status of the db
type SQLChecker struct {
	db      *sql.DB
	dialect string
}

// NewCheckerWithDB creates new instance of the SQLChecker.  dialect is one
// of db.DialectPostgres or db.DialectSQLite.
func NewCheckerWithDB(sqlDB *sql.DB, dialect string) SQLChecker {
	return SQLChecker{
		db:      sqlDB,
		dialect: dialect,
	}
}

// Check function check is db is responding and returns status, version of db and id of the last migration
func (c SQLChecker) Check() health.Health {
	var h health.Health
	if c.dialect == db.DialectPostgres {
		h = dbHealth.NewPostgreSQLChecker(c.db).Check()
		if !h.IsUp() {
			return h
		}
	} else {
		h = health.NewHealth()
		var version string
		if err := c.db.QueryRow(`SELECT sqlite_version()`).Scan(&version); err != nil {
			h.Down().AddInfo("error", err.Error())
			return h
		}
		h.AddInfo("version", version)
	}

	var id string
	if err := c.db.QueryRow(lastMigrationQuery).Scan(&id); err != nil {
		h.Down().AddInfo("error", err.Error())
		return h
	}

	h.Up().AddInfo("last_migration", id)

	return h
}
