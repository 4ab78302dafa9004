package sqlstore

import "database/sql"

const (
	createTableUsers     = "create-table-users"
	createIndexUsersName = "create-index-users-name"
)

type migration struct {
	name string
	stmt string
}

var migrations = map[string][]migration{
	DriverSQLite: {
		{
			name: createTableUsers,
			stmt: `
CREATE TABLE IF NOT EXISTS users (
 id          TEXT PRIMARY KEY
,secret      TEXT UNIQUE
,name        TEXT NOT NULL DEFAULT ''
,email       TEXT NOT NULL UNIQUE
,image       TEXT NOT NULL DEFAULT ''
,permissions TEXT NOT NULL DEFAULT '[]'
,roles       TEXT NOT NULL DEFAULT '[]'
,created_at  INTEGER NOT NULL DEFAULT 0
,updated_at  INTEGER NOT NULL DEFAULT 0
);
`,
		},
		{
			name: createIndexUsersName,
			stmt: `CREATE INDEX IF NOT EXISTS users_name ON users(name);`,
		},
	},
	DriverPostgres: {
		{
			name: createTableUsers,
			stmt: `
CREATE TABLE IF NOT EXISTS users (
 id          TEXT PRIMARY KEY
,secret      TEXT UNIQUE
,name        TEXT NOT NULL DEFAULT ''
,email       TEXT NOT NULL UNIQUE
,image       TEXT NOT NULL DEFAULT ''
,permissions TEXT NOT NULL DEFAULT '[]'
,roles       TEXT NOT NULL DEFAULT '[]'
,created_at  BIGINT NOT NULL DEFAULT 0
,updated_at  BIGINT NOT NULL DEFAULT 0
);
`,
		},
		{
			name: createIndexUsersName,
			stmt: `CREATE INDEX IF NOT EXISTS users_name ON users(name);`,
		},
	},
}

// Migrate applies every migration of driver that is not yet recorded in the
// migrations table.
func Migrate(driver string, db *sql.DB) error {
	if err := createTable(db); err != nil {
		return err
	}

	completed, err := selectCompleted(db)
	if err != nil && err != sql.ErrNoRows {
		return err
	}
	for _, migration := range migrations[driver] {
		if _, ok := completed[migration.name]; ok {
			continue
		}

		if _, err := db.Exec(migration.stmt); err != nil {
			return err
		}
		if err := insertMigration(db, migration.name); err != nil {
			return err
		}
	}
	return nil
}

func createTable(db *sql.DB) error {
	_, err := db.Exec(migrationTableCreate)
	return err
}

func insertMigration(db *sql.DB, name string) error {
	_, err := db.Exec(migrationInsert, name)
	return err
}

func selectCompleted(db *sql.DB) (map[string]struct{}, error) {
	migrations := map[string]struct{}{}
	rows, err := db.Query(migrationSelect)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		migrations[name] = struct{}{}
	}
	return migrations, rows.Err()
}

//
// migration table ddl and sql
//

var migrationTableCreate = `
CREATE TABLE IF NOT EXISTS migrations (
 name VARCHAR(255)
,UNIQUE(name)
)
`

var migrationInsert = `
INSERT INTO migrations (name) VALUES ($1)
`

var migrationSelect = `
SELECT name FROM migrations
`
