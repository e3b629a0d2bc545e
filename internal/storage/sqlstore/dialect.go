package sqlstore

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"

	"modernc.org/sqlite"
)

// Dialect selects placeholder syntax and engine-specific SQL.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// Rebind rewrites ? placeholders into $n for PostgreSQL.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// offsetClause renders OFFSET without a LIMIT. SQLite needs LIMIT -1.
func (d Dialect) offsetClause() string {
	if d == SQLite {
		return " LIMIT -1 OFFSET ?"
	}
	return " OFFSET ?"
}

// readOptions returns the options used for View transactions. PostgreSQL
// reads run on a REPEATABLE READ snapshot; SQLite transactions already
// read a single snapshot.
func (d Dialect) readOptions() *sql.TxOptions {
	if d == Postgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

// foldFunc is registered with SQLite because its built-in LOWER only folds
// ASCII. Text folds the same way as strings.ToLower in the memory engine.
const foldFunc = "unicode_lower"

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(foldFunc, 1, foldText); err != nil {
		panic(fmt.Sprintf("register %s: %v", foldFunc, err))
	}
}

func foldText(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// fold wraps expr in the dialect's Unicode-aware lower-casing function.
func (d Dialect) fold(expr string) string {
	if d == SQLite {
		return foldFunc + "(" + expr + ")"
	}
	return "LOWER(" + expr + ")"
}
