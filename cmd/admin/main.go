package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"schoolportal/internal/admin"
	"schoolportal/internal/auth"
	"schoolportal/internal/config"
	"schoolportal/internal/store"
)

var (
	readPasswordFunc = term.ReadPassword // mockable
	isTerminalFunc   = term.IsTerminal
)

// Admin is the operator CLI: schema migration and account bootstrap.
func main() {
	cfg := config.Load()
	root := &cobra.Command{
		Use:          "admin",
		Short:        "School portal maintenance commands",
		SilenceUsage: true,
	}
	root.AddCommand(migrateCmd(cfg), createAdminCmd(cfg))
	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func openDB(ctx context.Context, cfg config.App) (*store.DB, error) {
	db, err := store.NewDB(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateCmd(cfg config.App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()
			db, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			log.Printf("schema up to date (%s)", db.Dialect)
			return nil
		},
	}
}

func createAdminCmd(cfg config.App) *cobra.Command {
	a := admin.Admin{IsActive: true}
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account, prompting for the password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := readPassword(os.Getenv("ADMIN_PASSWORD"))
			if err != nil {
				return err
			}
			if err := a.Validate(password, true); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			db, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			id, err := admin.NewRepository(db.Client).Create(ctx, a, password, time.Now())
			if errors.Is(err, store.ErrConflict) {
				return errors.Errorf("username or email already taken")
			}
			if err != nil {
				return err
			}
			log.Printf("created %s %q with id %d", a.Role, a.Username, id)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&a.Username, "username", "", "login name")
	f.StringVar(&a.Email, "email", "", "email address")
	f.StringVar(&a.FullName, "name", "", "full name")
	f.StringVar(&a.Role, "role", auth.RoleSuperadmin, "one of "+strings.Join(auth.Roles, ", "))
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// readPassword uses fromEnv when set, otherwise prompts twice on the terminal.
func readPassword(fromEnv string) (string, error) {
	if fromEnv != "" {
		return fromEnv, nil
	}
	fd := int(os.Stdin.Fd())
	if !isTerminalFunc(fd) {
		return "", errors.New("stdin is not a terminal; set ADMIN_PASSWORD")
	}
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := readPasswordFunc(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "read password")
	}
	fmt.Fprint(os.Stderr, "Confirm: ")
	second, err := readPasswordFunc(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", errors.Wrap(err, "read password")
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
