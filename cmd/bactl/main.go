// main.go - Admin control tool for basicanalytics
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/term"

	"basicanalytics/internal"
	"basicanalytics/internal/operators"
	"basicanalytics/internal/pageviews"
	"basicanalytics/internal/seeder"
	"basicanalytics/internal/sites"
)

const (
	defaultShutdownTimeout = 30 * time.Second
	minPasswordLength      = 8
)

// Command defines the interface for all command implementations
type Command interface {
	// Name returns the command name
	Name() string
	// Description returns the command description
	Description() string
	// Execute runs the command with the given app and args
	Execute(ctx context.Context, app *internal.Application, args []string) error
}

// The set of available commands
var commands = []Command{
	&CreateAdminUserCommand{},
	&ChangeAdminPasswordCommand{},
	&MigrateCommand{},
	&CreateSiteCommand{},
	&DeleteSiteCommand{},
	&ListSitesCommand{},
	&SeedCommand{},
	&StatusCommand{},
	&HelpCommand{},
}

func main() {
	flag.Parse()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigChan
		log.Printf("Received signal: %v, initiating cleanup...", sig)
		cancel()
	}()

	cmdName, args := parseArgs(os.Args[1:])

	cmd := findCommand(cmdName)
	if cmd == nil {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	if _, ok := cmd.(*HelpCommand); ok {
		_ = cmd.Execute(ctx, nil, args)
		return
	}

	app, err := internal.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	err = cmd.Execute(ctx, app, args)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer shutdownCancel()
	if shutdownErr := app.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Printf("Warning: Cleanup error: %v", shutdownErr)
	}

	if err != nil {
		log.Fatalf("Command failed: %v", err)
	}
	log.Printf("Command %s completed successfully", cmd.Name())
}

// CreateAdminUserCommand creates the operator allowed to read dashboards.
type CreateAdminUserCommand struct{}

func (c *CreateAdminUserCommand) Name() string        { return "create-admin-user" }
func (c *CreateAdminUserCommand) Description() string { return "Creates an admin user: <email> [password]" }

func (c *CreateAdminUserCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: %s <email> [password]", c.Name())
	}

	email := args[0]
	password, err := passwordFromArgs(args[1:])
	if err != nil {
		return err
	}

	_, err = operators.CreateOperator(app.DBManager.GetConnection(), slog.Default(), email, password)
	if errors.Is(err, operators.ErrOperatorExists) {
		log.Printf("Admin user %s already exists", email)
		return nil
	}
	return err
}

// ChangeAdminPasswordCommand implements password update for existing admin user
type ChangeAdminPasswordCommand struct{}

func (c *ChangeAdminPasswordCommand) Name() string { return "change-admin-password" }
func (c *ChangeAdminPasswordCommand) Description() string {
	return "Changes the password of an admin user: [email] [password]"
}

func (c *ChangeAdminPasswordCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	var email string
	if len(args) >= 1 {
		email = args[0]
	} else {
		fmt.Print("Enter admin email: ")
		input, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(input)
	}
	if email == "" {
		return fmt.Errorf("email is required")
	}

	db := app.DBManager.GetConnection()
	if _, err := operators.FindByEmail(db, email); err != nil {
		return fmt.Errorf("admin lookup failed: %w", err)
	}

	password, err := passwordFromArgs(args[min(len(args), 1):])
	if err != nil {
		return err
	}

	if err := operators.ChangePassword(db, slog.Default(), email, password); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	fmt.Println("Password updated successfully")
	return nil
}

// MigrateCommand runs database migrations
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string        { return "migrate" }
func (c *MigrateCommand) Description() string { return "Runs database migrations" }

func (c *MigrateCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	log.Println("Running database migrations...")
	if err := app.DBManager.MigrateDatabase(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// CreateSiteCommand registers a tracked site and prints its id.
type CreateSiteCommand struct{}

func (c *CreateSiteCommand) Name() string        { return "create-site" }
func (c *CreateSiteCommand) Description() string { return "Registers a site: <base_url>" }

func (c *CreateSiteCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s <base_url>", c.Name())
	}

	site, err := sites.CreateSite(app.DBManager.GetConnection(), slog.Default(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Site created\n  id:       %s\n  base_url: %s\n", site.ID, site.BaseURL)
	return nil
}

// DeleteSiteCommand removes a site and its page views.
type DeleteSiteCommand struct{}

func (c *DeleteSiteCommand) Name() string        { return "delete-site" }
func (c *DeleteSiteCommand) Description() string { return "Deletes a site and all of its page views: <id>" }

func (c *DeleteSiteCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: %s <id>", c.Name())
	}

	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid site id %q: %w", args[0], err)
	}
	return sites.DeleteSite(app.DBManager.GetConnection(), slog.Default(), id)
}

// ListSitesCommand prints every site with its page-view count.
type ListSitesCommand struct{}

func (c *ListSitesCommand) Name() string        { return "list-sites" }
func (c *ListSitesCommand) Description() string { return "Lists registered sites" }

func (c *ListSitesCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	db := app.DBManager.GetConnection()

	siteList, err := sites.ListSites(db)
	if err != nil {
		return err
	}
	if len(siteList) == 0 {
		fmt.Println("No sites registered")
		return nil
	}

	for _, site := range siteList {
		var count int64
		if err := db.Model(&pageviews.PageView{}).Where("site_id = ?", site.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count page views: %w", err)
		}
		fmt.Printf("%s  %-40s  %d page views\n", site.ID, site.BaseURL, count)
	}
	return nil
}

// SeedCommand populates the DB with test data
type SeedCommand struct{}

func (c *SeedCommand) Name() string { return "seed" }
func (c *SeedCommand) Description() string {
	return "Seeds two years of sample page views: [--clean] [--robots] <base_url>"
}

func (c *SeedCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	baseURL, opts, err := parseSeedArgs(args)
	if err != nil {
		return err
	}

	site, err := seeder.NewSeeder(app.DBManager, slog.Default()).SeedSite(ctx, baseURL, opts)
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %s (id %s)\n", site.BaseURL, site.ID)
	return nil
}

func parseSeedArgs(args []string) (string, seeder.Options, error) {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	clean := fs.Bool("clean", false, "remove existing sites and page views first")
	robots := fs.Bool("robots", false, "add crawler traffic")
	if err := fs.Parse(args); err != nil {
		return "", seeder.Options{}, err
	}
	if fs.NArg() != 1 {
		return "", seeder.Options{}, fmt.Errorf("usage: seed [--clean] [--robots] <base_url>")
	}
	return fs.Arg(0), seeder.Options{Clean: *clean, Robots: *robots}, nil
}

// StatusCommand implements a command to check the system status
type StatusCommand struct{}

func (c *StatusCommand) Name() string        { return "status" }
func (c *StatusCommand) Description() string { return "Shows the current system status" }

func (c *StatusCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	db := app.DBManager.GetConnection()

	var siteCount, viewCount, operatorCount int64
	if err := db.Model(&sites.Site{}).Count(&siteCount).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if err := db.Model(&pageviews.PageView{}).Count(&viewCount).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if err := db.Model(&operators.Operator{}).Count(&operatorCount).Error; err != nil {
		return fmt.Errorf("database error: %w", err)
	}

	log.Println("System Status:")
	log.Println("- Database: Connected")
	log.Printf("- Sites: %d", siteCount)
	log.Printf("- Page views: %d", viewCount)
	log.Printf("- Admin users: %d", operatorCount)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get SQL DB: %w", err)
	}
	stats := sqlDB.Stats()
	log.Printf("- Max Open Connections: %d", stats.MaxOpenConnections)
	log.Printf("- Open Connections: %d", stats.OpenConnections)
	log.Printf("- In Use: %d", stats.InUse)
	log.Printf("- Idle: %d", stats.Idle)
	return nil
}

// HelpCommand implements a command to show usage information
type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "Shows usage information" }

func (c *HelpCommand) Execute(ctx context.Context, app *internal.Application, args []string) error {
	printUsage(os.Stdout)
	return nil
}

// passwordFromArgs returns args[0] when given, otherwise prompts twice
// without echoing.
func passwordFromArgs(args []string) (string, error) {
	if len(args) >= 1 {
		return validatePassword(args[0])
	}

	fmt.Print("Enter password: ")
	first, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	fmt.Print("Confirm password: ")
	second, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return validatePassword(string(first))
}

func validatePassword(password string) (string, error) {
	password = strings.TrimSpace(password)
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return password, nil
}

// parseArgs splits the command name from its arguments
func parseArgs(args []string) (string, []string) {
	if len(args) == 0 {
		return "help", []string{}
	}
	return args[0], args[1:]
}

// findCommand finds a command by name
func findCommand(name string) Command {
	for _, cmd := range commands {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: bactl [command] [args...]")
	fmt.Fprintln(w, "Available commands:")
	for _, cmd := range commands {
		fmt.Fprintf(w, "  %s: %s\n", cmd.Name(), cmd.Description())
	}
}
