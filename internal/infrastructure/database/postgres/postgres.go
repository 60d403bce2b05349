package postgres

import (
	"fmt"
	"sync"

	"github.com/XSAM/otelsql"
	"github.com/alimikegami/digital-store/settlement-service/config"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

var lock = &sync.Mutex{}
var db *sqlx.DB

func GetDBInstance(conf config.PostgreSQLConfig) (*sqlx.DB, error) {
	lock.Lock()
	defer lock.Unlock()

	if db != nil {
		log.Info().Str("component", "GetDBInstance").Msg("instance is already created")
		return db, nil
	}

	sqlDB, err := otelsql.Open("postgres",
		fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			conf.DBHost, conf.DBPort, conf.DBUsername, conf.DBPassword, conf.DBName, conf.SSLMode),
		otelsql.WithAttributes(
			semconv.DBSystemPostgreSQL,
			semconv.DBNameKey.String(conf.DBName),
		),
		otelsql.WithSpanOptions(otelsql.SpanOptions{
			DisableQuery: true,
		}),
	)
	if err != nil {
		return nil, err
	}

	instance := sqlx.NewDb(sqlDB, "postgres")
	if conf.MaxOpenConns > 0 {
		instance.SetMaxOpenConns(conf.MaxOpenConns)
	}
	if err := instance.Ping(); err != nil {
		return nil, err
	}

	db = instance
	return db, nil
}
