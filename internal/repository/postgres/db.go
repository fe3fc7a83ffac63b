// internal/repository/postgres/db.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ConnConfig holds what is needed to reach the store.
type ConnConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	Charset  string
}

// DSN renders a postgres URL. The charset maps to client_encoding.
func (c ConnConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		Path:   "/" + c.Name,
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	if c.Charset != "" {
		q.Set("client_encoding", c.Charset)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Open opens a pooled handle through the pgx stdlib driver and pings it.
func Open(ctx context.Context, cfg ConnConfig) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}
