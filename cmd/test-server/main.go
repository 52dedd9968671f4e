// Command test-server starts a throwaway stack for local development and E2E tests:
// a Postgres container with the schema applied, an in-memory IMAP server seeded
// with verification mails, and a registered mail server pointing at it.
// Run cmd/server against the printed environment to search it.
package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	imapclient "github.com/emersion/go-imap/client"
	imapserver "github.com/emersion/go-imap/server"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vdavid/vcode/internal/config"
	"github.com/vdavid/vcode/internal/crypto"
	"github.com/vdavid/vcode/internal/db"
	"github.com/vdavid/vcode/internal/models"
)

const (
	testEncryptionKey = "dGVzdC1rZXktMTIzNDU2Nzg5MDEyMzQ1Njc4OTAxMjM="
	testDBPassword    = "vcode"
	testMailbox       = "shared@example.com"

	// The in-memory backend ships a single account with these credentials.
	imapUsername = "username"
	imapPassword = "password"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := setupTestEnvironment(); err != nil {
		log.Fatalf("Failed to setup test environment: %v", err)
	}

	postgresContainer, host, port, err := startPostgres(ctx)
	if err != nil {
		log.Fatalf("Failed to start Postgres: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(context.Background()); err != nil {
			log.Printf("Failed to terminate Postgres container: %v", err)
		}
	}()

	imapServer, imapAddr, err := startIMAPServer()
	if err != nil {
		log.Fatalf("Failed to start IMAP server: %v", err)
	}
	defer func() { _ = imapServer.Close() }()

	if err := seedMailbox(imapAddr, time.Now()); err != nil {
		log.Fatalf("Failed to seed IMAP server: %v", err)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.DBHost = host
	cfg.DBPort = port

	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to setup database: %v", err)
	}
	defer db.CloseConnection(pool)

	if err := seedDatabase(ctx, pool, cfg, imapAddr); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	printEnvironment(host, port, imapAddr)
	log.Println("Test stack ready. Press Ctrl+C to stop.")

	<-ctx.Done()
	log.Println("Shutting down test stack...")
}

// setupTestEnvironment sets the variables config.NewConfig needs in test mode.
func setupTestEnvironment() error {
	vars := map[string]string{
		"VCODE_TEST_MODE":             "true",
		"VCODE_ENCRYPTION_KEY_BASE64": testEncryptionKey,
		"VCODE_DB_PASSWORD":           testDBPassword,
		"VCODE_DB_NAME":               "vcode_test",
	}
	for k, v := range vars {
		if err := os.Setenv(k, v); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}
	return nil
}

// startPostgres starts a Postgres container and returns its host and mapped port.
func startPostgres(ctx context.Context) (testcontainers.Container, string, string, error) {
	log.Println("Starting test Postgres database...")
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("vcode_test"),
		postgres.WithUsername("vcode"),
		postgres.WithPassword(testDBPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to start Postgres container: %w", err)
	}

	host, err := postgresContainer.Host(ctx)
	if err != nil {
		_ = postgresContainer.Terminate(ctx)
		return nil, "", "", fmt.Errorf("failed to get container host: %w", err)
	}
	mapped, err := postgresContainer.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = postgresContainer.Terminate(ctx)
		return nil, "", "", fmt.Errorf("failed to get mapped port: %w", err)
	}

	log.Printf("Test Postgres database started on %s:%s", host, mapped.Port())
	return postgresContainer, host, mapped.Port(), nil
}

// startIMAPServer serves the go-imap memory backend on a random local port.
func startIMAPServer() (*imapserver.Server, string, error) {
	s := imapserver.New(memory.New())
	s.AllowInsecureAuth = true

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, "", fmt.Errorf("failed to listen: %w", err)
	}

	go func() {
		if err := s.Serve(listener); err != nil {
			log.Printf("IMAP server stopped: %v", err)
		}
	}()

	addr := listener.Addr().String()
	log.Printf("Test IMAP server started on %s", addr)
	return s, addr, nil
}

type seedMessage struct {
	to      string
	subject string
	body    string
	age     time.Duration
}

// seedMessages covers a fresh code, a stale code, a link, and an unrelated mail.
var seedMessages = []seedMessage{
	{testMailbox, "Your sign-in code", "Enter this code to sign in: 482913", 2 * time.Minute},
	{testMailbox, "Your sign-in code", "Enter this code to sign in: 111111", 3 * time.Hour},
	{testMailbox, "How to update your Netflix Household",
		"Yes, this was me: https://www.netflix.com/account/travel/verify?nftoken=abc123", 5 * time.Minute},
	{testMailbox, "Weekly digest", "Nothing to see here 777777", time.Minute},
	{"family@example.com", "Your one-time passcode for Disney+", "Your passcode is 905112", 4 * time.Minute},
}

func seedMailbox(addr string, now time.Time) error {
	c, err := imapclient.Dial(addr)
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}
	defer func() { _ = c.Logout() }()

	if err := c.Login(imapUsername, imapPassword); err != nil {
		return fmt.Errorf("failed to login: %w", err)
	}

	for i, msg := range seedMessages {
		sentAt := now.Add(-msg.age)
		raw := fmt.Sprintf("Message-ID: <seed-%d@test.vcode>\r\n"+
			"Date: %s\r\n"+
			"From: info@account.example.com\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"Content-Type: text/plain; charset=utf-8\r\n"+
			"\r\n"+
			"%s\r\n", i, sentAt.Format(time.RFC1123Z), msg.to, msg.subject, msg.body)

		if err := c.Append("INBOX", nil, sentAt, strings.NewReader(raw)); err != nil {
			return fmt.Errorf("failed to append message %d: %w", i, err)
		}
	}

	log.Printf("Seeded %d messages", len(seedMessages))
	return nil
}

// seedDatabase registers the IMAP server and an admin and a regular user.
func seedDatabase(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, imapAddr string) error {
	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		return fmt.Errorf("failed to create encryptor: %w", err)
	}
	encrypted, err := encryptor.Encrypt(imapPassword)
	if err != nil {
		return fmt.Errorf("failed to encrypt IMAP password: %w", err)
	}

	host, portStr, err := net.SplitHostPort(imapAddr)
	if err != nil {
		return fmt.Errorf("failed to split IMAP address: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("failed to parse IMAP port: %w", err)
	}

	server := &models.MailServer{
		Name:              "local",
		Host:              host,
		Port:              port,
		Username:          imapUsername,
		EncryptedPassword: encrypted,
		UseTLS:            false,
		Enabled:           true,
		Priority:          1,
	}
	if err := db.SaveMailServer(ctx, pool, server); err != nil {
		return fmt.Errorf("failed to save mail server: %w", err)
	}

	adminID, err := db.CreateUser(ctx, pool, "admin", models.RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	userID, err := db.CreateUser(ctx, pool, "member", models.RoleUser)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if err := db.GrantEmail(ctx, pool, userID, testMailbox); err != nil {
		return fmt.Errorf("failed to grant mailbox: %w", err)
	}

	log.Printf("Seeded users: admin (token user:%d), member (token user:%d)", adminID, userID)
	return nil
}

func printEnvironment(dbHost, dbPort, imapAddr string) {
	fmt.Println()
	fmt.Println("Start the API against this stack with:")
	fmt.Printf("  VCODE_TEST_MODE=true VCODE_ENCRYPTION_KEY_BASE64=%s \\\n", testEncryptionKey)
	fmt.Printf("  VCODE_DB_HOST=%s VCODE_DB_PORT=%s VCODE_DB_NAME=vcode_test VCODE_DB_PASSWORD=%s \\\n", dbHost, dbPort, testDBPassword)
	fmt.Println("  go run ./cmd/server")
	fmt.Printf("IMAP server: %s (username: %s, password: %s)\n", imapAddr, imapUsername, imapPassword)
	fmt.Printf("Seeded mailbox: %s\n", testMailbox)
	fmt.Println()
}
