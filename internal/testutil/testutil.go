// Package testutil provides database and Redis helpers for integration tests.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	// pgx driver for database/sql in tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/lettermill/import-api/internal/migrate"
)

// TestingTB covers the subset of *testing.T and *testing.B the helpers need.
type TestingTB interface {
	Helper()
	Skip(args ...interface{})
	Skipf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	Logf(format string, args ...interface{})
}

// RunMigrations applies the production schema so integration tests always run
// against the same DDL the application ships.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate.Run(ctx, db)
}

// testDSN builds the test database DSN from TEST_DB_* env vars. The default
// port 55432 matches the docker-compose test profile; CI sets TEST_DB_PORT.
func testDSN(query url.Values) string {
	host := envOr("TEST_DB_HOST", "localhost")
	port := envOr("TEST_DB_PORT", "55432")
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(envOr("TEST_DB_USER", "lettermill"), envOr("TEST_DB_PASSWORD", "lettermill")),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + envOr("TEST_DB_NAME", "lettermill"),
	}
	if query == nil {
		query = url.Values{}
	}
	if query.Get("sslmode") == "" {
		query.Set("sslmode", envOr("DB_SSL_MODE", "disable"))
	}
	u.RawQuery = query.Encode()
	return u.String()
}

func openAndPing(dsn string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// SkipIfNoTestDB skips the test when the test database is unreachable. Set
// TEST_REQUIRE_DB (or TEST_REQUIRE_INFRA) to fail instead, for CI.
func SkipIfNoTestDB(t TestingTB) {
	t.Helper()
	db, err := openAndPing(testDSN(nil), 2*time.Second)
	if err != nil {
		if requireDB() {
			t.Fatal("test database not available:", err)
		}
		t.Skip("test database not available:", err)
	}
	if cerr := db.Close(); cerr != nil {
		t.Logf("close probe connection: %v", cerr)
	}
}

// WithAutoDB runs fn against a migrated database. With TEST_DB_EPHEMERAL set,
// each call gets its own schema; otherwise the shared test DB is truncated
// before and after fn.
func WithAutoDB(t TestingTB, fn func(*sql.DB)) {
	t.Helper()
	SkipIfNoTestDB(t)

	if envBool("TEST_DB_EPHEMERAL") {
		fn(setupEphemeralSchema(t))
		return
	}

	db, err := openAndPing(testDSN(nil), 5*time.Second)
	if err != nil {
		t.Fatal("connect shared test database:", err)
	}
	defer func() {
		truncateAll(t, db)
		if cerr := db.Close(); cerr != nil {
			t.Logf("close test database: %v", cerr)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatal("run migrations:", err)
	}
	truncateAll(t, db)

	fn(db)
}

// truncateAll clears the tables the import pipeline writes to.
func truncateAll(t TestingTB, db *sql.DB) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, table := range []string{"import_jobs", "subscribers"} {
		if _, err := db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("clean table %s: %v", table, err)
		}
	}
}

// setupEphemeralSchema creates a per-test schema, points search_path at it,
// migrates, and registers a cleanup that drops the schema.
func setupEphemeralSchema(t TestingTB) *sql.DB {
	t.Helper()

	admin, err := openAndPing(testDSN(nil), 5*time.Second)
	if err != nil {
		t.Fatal("connect admin database:", err)
	}

	schema := ephemeralSchemaName()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
		_ = admin.Close()
		t.Fatalf("create schema %s: %v", schema, err)
	}

	q := url.Values{}
	q.Set("search_path", schema+",public")
	db, err := openAndPing(testDSN(q), 10*time.Second)
	if err != nil {
		_ = admin.Close()
		t.Fatalf("connect schema %s: %v", schema, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	// Drop happens even if migration below fails.
	registerCleanup(t, func() {
		dropCtx, dropCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer dropCancel()
		if cerr := db.Close(); cerr != nil {
			t.Logf("close schema connection: %v", cerr)
		}
		if _, dropErr := admin.ExecContext(dropCtx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); dropErr != nil {
			t.Logf("drop schema %s: %v", schema, dropErr)
		}
		if cerr := admin.Close(); cerr != nil {
			t.Logf("close admin connection: %v", cerr)
		}
	})

	migCtx, migCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer migCancel()
	if err := RunMigrations(migCtx, db); err != nil {
		t.Fatalf("migrate schema %s: %v", schema, err)
	}
	t.Logf("using ephemeral schema %s", schema)
	return db
}

func ephemeralSchemaName() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("t_%d", time.Now().UnixNano())
	}
	return "t_" + hex.EncodeToString(b)
}

func registerCleanup(t TestingTB, fn func()) {
	if tc, ok := any(t).(interface{ Cleanup(func()) }); ok {
		tc.Cleanup(fn)
		return
	}
	fn()
}

// SetupTestRedis returns a Redis client on a reserved DB index, flushed and
// ready. Tests skip when no Redis is reachable unless TEST_REQUIRE_REDIS is
// set.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addr, ok := findTestRedis(t)
	if !ok {
		if requireRedis() {
			t.Fatal("redis not available for testing")
		}
		t.Skip("redis not available for testing")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: reserveRedisDB(t, addr)})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		if requireRedis() {
			t.Fatalf("redis not available at %s: %v", addr, err)
		}
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	client.FlushDB(ctx)
	return client
}

// findTestRedis probes REDIS_ADDR, common CI service addresses, and the local
// docker-compose test port, in that order.
func findTestRedis(t TestingTB) (string, bool) {
	t.Helper()

	candidates := []string{"redis:6379", "localhost:6379", "localhost:56379"}
	if env := os.Getenv("REDIS_ADDR"); env != "" {
		candidates = []string{env}
	}

	for _, addr := range candidates {
		client := redis.NewClient(&redis.Options{Addr: addr})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if cerr := client.Close(); cerr != nil {
			t.Logf("close redis probe: %v", cerr)
		}
		if err == nil {
			return addr, true
		}
		t.Logf("redis not reachable at %s: %v", addr, err)
	}
	return "", false
}

// reserveRedisDB picks a DB index in [1..15] by taking a lock key in DB 0, so
// concurrent test packages do not flush each other's data. TEST_REDIS_DB
// overrides the selection.
func reserveRedisDB(t TestingTB, addr string) int {
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
		t.Logf("invalid TEST_REDIS_DB=%q, auto-selecting", v)
	}

	meta := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
	defer func() {
		if err := meta.Close(); err != nil {
			t.Logf("close redis meta client: %v", err)
		}
	}()

	for i := 1; i <= 15; i++ {
		lockKey := fmt.Sprintf("lettermill:testutil:db_lock:%d", i)
		lockVal := fmt.Sprintf("%d:%d", os.Getpid(), time.Now().UnixNano())
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		locked, err := meta.SetNX(ctx, lockKey, lockVal, 30*time.Minute).Result()
		cancel()
		if err != nil || !locked {
			continue
		}
		registerCleanup(t, func() {
			c := redis.NewClient(&redis.Options{Addr: addr, DB: 0})
			relCtx, relCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer relCancel()
			if delErr := c.Del(relCtx, lockKey).Err(); delErr != nil {
				t.Logf("release redis db lock %s: %v", lockKey, delErr)
			}
			if cerr := c.Close(); cerr != nil {
				t.Logf("close redis cleanup client: %v", cerr)
			}
		})
		t.Logf("using redis DB=%d at %s", i, addr)
		return i
	}

	t.Logf("falling back to redis DB=1 at %s", addr)
	return 1
}

// TestTime is the fixed reference instant shared across tests.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// TestTimeProvider is a manually-advanced clock for repository tests.
type TestTimeProvider struct {
	current time.Time
}

// NewTestTimeProvider creates a TestTimeProvider starting at startTime.
func NewTestTimeProvider(startTime time.Time) *TestTimeProvider {
	return &TestTimeProvider{current: startTime}
}

// Now returns the provider's current time.
func (p *TestTimeProvider) Now() time.Time { return p.current }

// SetTime pins the provider to t.
func (p *TestTimeProvider) SetTime(t time.Time) { p.current = t }

// AddTime advances the provider by d.
func (p *TestTimeProvider) AddTime(d time.Duration) { p.current = p.current.Add(d) }

// Int64Ptr returns a pointer to the given int64 value.
func Int64Ptr(i int64) *int64 {
	return &i
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }
