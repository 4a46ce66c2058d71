// Package dbtest provides throwaway postgres databases for repository tests.
package dbtest

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/require"
)

// MigrationsURL is the golang-migrate source url of the ledger migrations.
func MigrationsURL() string {
	_, file, _, _ := runtime.Caller(0)
	return "file://" + filepath.Join(filepath.Dir(file), "..", "migrations", "sql")
}

// PostgresURL returns the url of an empty database for t. With PG_URL set it creates a fresh
// database on that server, otherwise it starts a postgres container. The test is skipped when
// there is neither a PG_URL nor a docker daemon.
func PostgresURL(t *testing.T) string {
	t.Helper()
	if pgURL := os.Getenv("PG_URL"); pgURL != "" {
		return freshDatabase(t, pgURL)
	}
	return launchPostgresContainer(t)
}

func freshDatabase(t *testing.T, pgURL string) string {
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, pgURL)
	require.NoError(t, err)
	defer conn.Close(ctx)

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	var dbName string
	for i := 0; ; i++ {
		dbName = fmt.Sprintf("db%d", r.Uint64())
		_, err = conn.Exec(ctx, "CREATE DATABASE "+dbName)
		if err == nil {
			break
		}
		require.Less(t, i, 10, "create database: %v", err)
	}
	t.Cleanup(func() {
		c, err := pgx.Connect(context.Background(), pgURL)
		if err != nil {
			return
		}
		defer c.Close(context.Background())
		_, _ = c.Exec(context.Background(), "DROP DATABASE IF EXISTS "+dbName+" WITH (FORCE)")
	})

	u, err := url.Parse(pgURL)
	require.NoError(t, err)
	u.Path = dbName
	return u.String()
}

func launchPostgresContainer(t *testing.T) string {
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	pool.MaxWait = time.Minute

	pg, err := pool.Run("postgres", "16-alpine", []string{
		"POSTGRES_USER=auction",
		"POSTGRES_PASSWORD=auction",
		"POSTGRES_DB=auction",
	})
	require.NoError(t, err)
	require.NoError(t, pg.Expire(180))
	t.Cleanup(func() {
		require.NoError(t, pool.Purge(pg))
	})

	dsn := fmt.Sprintf("postgres://auction:auction@%s/auction?sslmode=disable", pg.GetHostPort("5432/tcp"))
	err = pool.Retry(func() error {
		conn, err := pgx.Connect(context.Background(), dsn)
		if err != nil {
			return err
		}
		defer conn.Close(context.Background())
		return conn.Ping(context.Background())
	})
	require.NoError(t, err)
	return dsn
}
