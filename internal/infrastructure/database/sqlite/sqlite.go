package sqlite

import (
	"fmt"

	"github.com/XSAM/otelsql"
	"github.com/jmoiron/sqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	_ "modernc.org/sqlite"
)

const DriverName = "sqlite"

func init() {
	sqlx.BindDriver(DriverName, sqlx.QUESTION)
}

// Open returns a database backed by the file at path. Writes are serialized
// through a single connection, which SQLite requires for conditional updates
// to behave atomically across goroutines.
func Open(path string) (*sqlx.DB, error) {
	sqlDB, err := otelsql.Open(DriverName,
		fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path),
		otelsql.WithAttributes(
			semconv.DBSystemKey.String(DriverName),
		),
		otelsql.WithSpanOptions(otelsql.SpanOptions{
			DisableQuery: true,
		}),
	)
	if err != nil {
		return nil, err
	}

	db := sqlx.NewDb(sqlDB, DriverName)
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}
