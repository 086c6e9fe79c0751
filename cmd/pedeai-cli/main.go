// Command pedeai-cli signs in to a PedeAí server and keeps the session in a local SQLite file,
// holding the same two token copies a browser would.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"pedeai/cmd/internal/auth/session"
	"pedeai/cmd/internal/client"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	// Local verification needs the same secret the server signs with.
	sessCfg, err := session.LoadConfigFromEnv()
	if err != nil {
		return err
	}
	codec, err := session.NewCodec(sessCfg.Secret)
	if err != nil {
		return err
	}

	dbPath, err := clientDBPath()
	if err != nil {
		return err
	}
	store, db, err := session.OpenSQLite(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer db.Close()

	bridge := session.NewBridge(store, store, codec, session.WithBridgeLogger(log))

	serverURL := os.Getenv("PEDEAI_SERVER_URL")
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	c, err := client.New(serverURL, bridge, client.WithLogger(log))
	if err != nil {
		return err
	}

	cli := &client.CLI{Client: c, In: bufio.NewReader(os.Stdin), Out: os.Stdout}
	return cli.Run(ctx, os.Args[1:])
}

func clientDBPath() (string, error) {
	if p := os.Getenv("PEDEAI_CLIENT_DB"); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	dir = filepath.Join(dir, "pedeai")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.db"), nil
}
