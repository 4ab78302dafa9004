package sqlstore

import (
	"fmt"
	"strings"
)

const (
	selectUserBySecret = "select-user-by-secret"
	selectUserByID     = "select-user-by-id"
	selectUserByEmail  = "select-user-by-email"
	selectAllUsers     = "select-all-users"
	searchUsers        = "search-users"
	deleteUserByID     = "delete-user-by-id"
)

// Column list returned to clients. The secret is never part of it.
const publicColumns = "id, name, email, image, permissions, roles, created_at, updated_at"

var queries = map[string]map[string]string{
	DriverSQLite: {
		selectUserBySecret: `
SELECT id, secret, name, email, image, permissions, roles, created_at, updated_at
FROM users
WHERE secret = ?;
`,
		selectUserByID: `
SELECT ` + publicColumns + `
FROM users
WHERE id = ?;
`,
		selectUserByEmail: `
SELECT ` + publicColumns + `
FROM users
WHERE email = ?;
`,
		selectAllUsers: `
SELECT ` + publicColumns + `
FROM users
ORDER BY name;
`,
		searchUsers: `
SELECT ` + publicColumns + `
FROM users
WHERE LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'
ORDER BY name;
`,
		deleteUserByID: `
DELETE FROM users WHERE id = ?;
`,
	},
	DriverPostgres: {
		selectUserBySecret: `
SELECT id, secret, name, email, image, permissions, roles, created_at, updated_at
FROM users
WHERE secret = $1;
`,
		selectUserByID: `
SELECT ` + publicColumns + `
FROM users
WHERE id = $1;
`,
		selectUserByEmail: `
SELECT ` + publicColumns + `
FROM users
WHERE email = $1;
`,
		selectAllUsers: `
SELECT ` + publicColumns + `
FROM users
ORDER BY name;
`,
		searchUsers: `
SELECT ` + publicColumns + `
FROM users
WHERE LOWER(name) LIKE $1 ESCAPE '\' OR LOWER(email) LIKE $2 ESCAPE '\'
ORDER BY name;
`,
		deleteUserByID: `
DELETE FROM users WHERE id = $1;
`,
	},
}

// stmt returns the named query for driver.
func stmt(driver, name string) string {
	return queries[driver][name]
}

// placeholder returns the n-th (1-based) bind parameter for driver.
func placeholder(driver string, n int) string {
	if driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching s anywhere, case-folded.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
