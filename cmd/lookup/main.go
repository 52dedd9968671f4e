// Command lookup runs one code search against the configured mail servers and
// prints the result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vdavid/vcode/internal/app"
	"github.com/vdavid/vcode/internal/config"
	"github.com/vdavid/vcode/internal/crypto"
	"github.com/vdavid/vcode/internal/db"
	"github.com/vdavid/vcode/internal/logger"
	"github.com/vdavid/vcode/internal/models"
	"go.uber.org/zap"
)

// Exit codes.
const (
	exitFound    = 0
	exitFailed   = 1
	exitNotFound = 2
	exitUsage    = 64
)

type options struct {
	email    string
	platform string
	userID   int64
	telegram bool
	verbose  bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.email, "email", "", "mailbox address to search for (required)")
	fs.StringVar(&opts.platform, "platform", "", "platform key, e.g. netflix (required)")
	fs.Int64Var(&opts.userID, "user", 0, "ID of the user the search runs as (required)")
	fs.BoolVar(&opts.telegram, "telegram", false, "return only the most recent matching message")
	fs.BoolVar(&opts.verbose, "v", false, "log to stderr")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.email == "" || opts.platform == "" || opts.userID <= 0 {
		fs.Usage()
		return opts, errors.New("-email, -platform and -user are required")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog := zap.NewNop()
	if opts.verbose {
		zlog, err = logger.New(logger.Config{Level: cfg.LogLevel, Development: true})
		if err != nil {
			log.Fatalf("Failed to create logger: %v", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := lookup(ctx, cfg, opts, zlog)
	if err != nil {
		log.Fatalf("Lookup failed: %v", err)
	}

	if err := writeResult(os.Stdout, result); err != nil {
		log.Fatalf("Failed to write result: %v", err)
	}
	os.Exit(exitCode(result))
}

func lookup(ctx context.Context, cfg *config.Config, opts options, zlog *zap.Logger) (*models.SearchResult, error) {
	encryptor, err := crypto.NewEncryptor(cfg.EncryptionKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}

	pool, err := db.NewConnection(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.CloseConnection(pool)

	runtime, err := app.NewRuntime(ctx, app.Services{
		Storage:   db.NewStore(pool),
		Secrets:   encryptor,
		Log:       zlog,
		Plaintext: cfg.TestMode,
	})
	if err != nil {
		return nil, err
	}

	return runtime.Search(ctx, models.SearchRequest{
		Email:        opts.email,
		Platform:     opts.platform,
		UserID:       opts.userID,
		TelegramMode: opts.telegram,
	}), nil
}

func writeResult(w io.Writer, result *models.SearchResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func exitCode(result *models.SearchResult) int {
	switch result.Type {
	case models.ResultSuccess:
		return exitFound
	case models.ResultNotFound, models.ResultFoundButUnprocessable:
		return exitNotFound
	default:
		return exitFailed
	}
}
