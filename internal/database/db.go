// Package database opens the SQL connection pool and creates the schema.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/seat-booking-engine/internal/repository"
)

// Options identifies the database server.
type Options struct {
	Dialect  repository.Dialect
	User     string
	Pass     string
	Host     string
	Port     string
	Name     string
	SSLMode  string // postgres only
	Attempts int    // connection attempts before giving up (default 10)
}

// DSN renders the driver-specific connection string.
func (o Options) DSN() string {
	switch o.Dialect {
	case repository.Postgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(o.User, o.Pass),
			Host:     o.Host + ":" + o.Port,
			Path:     "/" + o.Name,
			RawQuery: "sslmode=" + url.QueryEscape(orDefault(o.SSLMode, "disable")),
		}
		if o.Pass == "" {
			u.User = url.User(o.User)
		}
		return u.String()
	default:
		auth := o.User
		if o.Pass != "" {
			auth = fmt.Sprintf("%s:%s", o.User, o.Pass)
		}
		// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
		return fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			auth, o.Host, o.Port, o.Name)
	}
}

// Open connects and pings until the server answers or the attempts run out.
// Containers often start the service before the database accepts
// connections.
func Open(ctx context.Context, o Options) (*sql.DB, error) {
	driver := string(o.Dialect)
	if o.Dialect == repository.Postgres {
		driver = "postgres"
	}
	db, err := sql.Open(driver, o.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	attempts := o.Attempts
	if attempts <= 0 {
		attempts = 10
	}
	log := logrus.WithFields(logrus.Fields{"driver": driver, "host": o.Host, "db": o.Name})
	for i := 1; ; i++ {
		pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pctx)
		cancel()
		if err == nil {
			log.Info("database connected")
			return db, nil
		}
		if i >= attempts {
			break
		}
		log.WithError(err).WithField("attempt", i).Warn("database not ready, retrying")
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("connect %s after %d attempts: %w", driver, attempts, err)
}

func orDefault(v, d string) string {
	if v == "" {
		return d
	}
	return v
}
