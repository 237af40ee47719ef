//go:build integration

package integration

import (
	"context"
	"log"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/staffboard/staffboard/internal/app"
	"github.com/staffboard/staffboard/internal/config"
	"github.com/staffboard/staffboard/internal/testutil"
)

const (
	adminUsername = "root"
	adminEmail    = "root@example.com"
	adminPassword = "bootstrap-password"
)

var (
	testServer *httptest.Server
	testDB     *pgxpool.Pool

	// Mailpit for end-to-end password reset mail testing
	mailpitContainer *testutil.MailpitContainer
	mailpitClient    *MailpitClient
)

// newTestClient creates a fresh unauthenticated client for a test.
func newTestClient(t *testing.T) *testutil.Client {
	t.Helper()
	return testutil.NewClient(testServer.URL)
}

// superuserClient returns a client logged in as the bootstrap superuser.
func superuserClient(t *testing.T) *testutil.Client {
	t.Helper()
	client := testutil.NewClient(testServer.URL)
	client.LoginAs(t, adminEmail, adminPassword)
	return client
}

func TestMain(m *testing.M) {
	ctx := context.Background()

	pgContainer, err := testutil.NewPostgresContainer(ctx)
	if err != nil {
		log.Fatalf("start postgres: %v", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("terminate postgres: %v", err)
		}
	}()

	mailpitContainer, err = testutil.NewMailpitContainer(ctx)
	if err != nil {
		log.Fatalf("start mailpit: %v", err)
	}
	defer func() {
		if err := mailpitContainer.Terminate(ctx); err != nil {
			log.Printf("terminate mailpit: %v", err)
		}
	}()

	mailpitClient = NewMailpitClient(
		mailpitContainer.APIHost,
		mailpitContainer.APIPort,
	)

	migrator, err := migrate.New(
		"file://../../migrations",
		pgContainer.ConnectionString,
	)
	if err != nil {
		log.Fatalf("create migrator: %v", err)
	}
	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("run migrations: %v", err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         "0",
			MetricsPort:  "0",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Database: config.DatabaseConfig{
			URL:             pgContainer.ConnectionString,
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 3,
		},
		Log: config.LogConfig{
			Level:  "error",
			Format: "text",
		},
		JWT: config.JWTConfig{
			SecretKey:           "test-secret-key",
			AccessTokenDuration: 15 * time.Minute,
		},
		Mail: config.MailConfig{
			Enabled:      true,
			SMTPHost:     mailpitContainer.SMTPHost,
			SMTPPort:     mailpitContainer.SMTPPort,
			FromAddress:  "staffboard@example.com",
			ResetBaseURL: "http://staffboard.local",
		},
		Bootstrap: config.BootstrapConfig{
			AdminUsername: adminUsername,
			AdminEmail:    adminEmail,
			AdminPassword: adminPassword,
		},
		// Generous limits so parallel test logins never hit 429.
		RateLimit: config.RateLimitConfig{
			AuthPerSecond: 1000,
			AuthBurst:     1000,
		},
	}

	application, err := app.New(cfg)
	if err != nil {
		log.Fatalf("create app: %v", err)
	}

	// Direct DB connection for tests that assert on rows.
	testDB, err = pgxpool.New(ctx, pgContainer.ConnectionString)
	if err != nil {
		log.Fatalf("create test db pool: %v", err)
	}

	testServer = httptest.NewServer(application.Router())

	code := m.Run()

	testServer.Close()
	testDB.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown app: %v", err)
	}

	os.Exit(code)
}
