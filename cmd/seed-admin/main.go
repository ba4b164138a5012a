// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/carterperez-dev/examprep/internal/config"
	"github.com/carterperez-dev/examprep/internal/core"
	"github.com/carterperez-dev/examprep/internal/identity"
)

const minPasswordLength = 12

func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("seed admin failed", "error", err)
		os.Exit(1)
	}
}

// run provisions the single admin identity from ADMIN_EMAIL, ADMIN_PASSWORD
// and ADMIN_NAME. An existing admin is left untouched.
func run(configPath string) error {
	ctx := context.Background()

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	name := os.Getenv("ADMIN_NAME")
	if name == "" {
		name = "Administrator"
	}

	if email == "" || password == "" {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD are required")
	}
	if len(password) < minPasswordLength {
		return fmt.Errorf("ADMIN_PASSWORD must be at least %d characters", minPasswordLength)
	}

	dbCfg, err := config.LoadDatabase(configPath)
	if err != nil {
		return err
	}

	db, err := core.NewDatabase(ctx, dbCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}()

	hash, err := core.HashPassword(password)
	if err != nil {
		return err
	}

	svc := identity.NewService(identity.NewRepository(db.DB), slog.Default())

	admin, err := svc.CreateAdmin(ctx, email, hash, name)
	if errors.Is(err, identity.ErrAdminExists) {
		slog.Info("admin already provisioned, nothing to do")
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("admin provisioned", "user_id", admin.ID, "email", admin.Email)
	return nil
}
