// Package testutil provides shared helpers for integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/reimagine/reimagine/internal/model"
)

// RequireEnv returns the value of the named environment variable, or
// skips the test when it is not set. Integration tests use it to
// opt in only when backing services are available.
func RequireEnv(t *testing.T, name string) string {
	t.Helper()
	v := os.Getenv(name)
	if v == "" {
		t.Skipf("skipping: %s not set", name)
	}
	return v
}

// NewPool connects a pgx pool to the database named by TEST_DATABASE_URL
// and registers cleanup. The test is skipped when the variable is unset.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := RequireEnv(t, "TEST_DATABASE_URL")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("ping test database: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// testDBLockKey serializes tests that reset shared tables. Any stable
// value works as long as every test in the suite uses the same one.
const testDBLockKey = 874311

// AcquireDBLock takes a session-level advisory lock so concurrent test
// packages do not trample each other's rows. Released on cleanup.
func AcquireDBLock(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()
	if _, err := pool.Exec(ctx, "SELECT pg_advisory_lock($1)", testDBLockKey); err != nil {
		t.Fatalf("acquire advisory lock: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", testDBLockKey)
	})
}

// ResetUsers truncates the users table so each test starts from an
// empty ledger.
func ResetUsers(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	if _, err := pool.Exec(context.Background(), "TRUNCATE users"); err != nil {
		t.Fatalf("reset users table: %v", err)
	}
}

// NewRedisClient connects to TEST_REDIS_URL and flushes the selected
// database so rate-limit and lock state never leaks between tests.
func NewRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	url := RequireEnv(t, "TEST_REDIS_URL")

	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse test redis url: %v", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping: redis unreachable: %v", err)
	}
	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("flush test redis: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// NewTestUser returns a user with a fresh ID and the given balance.
func NewTestUser(credits int64) *model.User {
	id := ulid.Make().String()
	return &model.User{
		ID:        id,
		Email:     fmt.Sprintf("user-%s@example.test", id[:8]),
		Credits:   credits,
		CreatedAt: time.Now().UTC(),
	}
}

// InsertUser writes a user row directly, bypassing the repository.
func InsertUser(t *testing.T, pool *pgxpool.Pool, u *model.User) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		"INSERT INTO users (id, email, credits, created_at) VALUES ($1, $2, $3, $4)",
		u.ID, u.Email, u.Credits, u.CreatedAt)
	if err != nil {
		t.Fatalf("insert test user: %v", err)
	}
}

// Credits reads the current balance for a user straight from the table.
func Credits(t *testing.T, pool *pgxpool.Pool, userID string) int64 {
	t.Helper()
	var credits int64
	err := pool.QueryRow(context.Background(),
		"SELECT credits FROM users WHERE id = $1", userID).Scan(&credits)
	if err != nil {
		t.Fatalf("read credits for %s: %v", userID, err)
	}
	return credits
}
