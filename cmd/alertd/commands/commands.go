package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/dikshakatiyar/alerting-system/internal/app"
)

// serveCommand returns the serve subcommand
func (a *App) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the alertd server",
		Description: `Start the HTTP API and the background reminder runner.

Examples:
   alertd serve --config config.toml
   ALERTD_SERVER__PORT=9000 alertd serve`,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return a.runServe(ctx, cmd)
		},
	}
}

func (a *App) runServe(ctx context.Context, cmd *cli.Command) error {
	instance, err := app.New(app.Options{
		ConfigPath: cmd.String("config"),
		Version:    a.Version,
	})
	if err != nil {
		return err
	}

	if err := instance.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- instance.Start()
	}()

	select {
	case err := <-serveErr:
		_ = instance.Shutdown(context.Background())
		return err
	case <-ctx.Done():
		// Signal received; shut down with a fresh context since ctx is
		// already cancelled.
		return instance.Shutdown(context.Background())
	}
}

// configCommand returns the config subcommand
func (a *App) configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "manage server configuration",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "generate a starter config file interactively",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "path to write the config file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "overwrite an existing file",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return a.runConfigInit(ctx, cmd)
				},
			},
		},
	}
}

func (a *App) runConfigInit(ctx context.Context, cmd *cli.Command) error {
	output := cmd.String("output")
	if !cmd.Bool("force") {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("%s already exists; use --force to overwrite", output)
		}
	}

	port := "8125"
	dbPath := "alertd.db"
	logLevel := "info"
	tickInterval := "5m"
	enableEmail := false

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("HTTP Port").
				Description("Port the API server listens on").
				Value(&port),
			huh.NewInput().
				Title("Database Path").
				Description("Path to the SQLite database file").
				Value(&dbPath),
			huh.NewSelect[string]().
				Title("Log Level").
				Options(
					huh.NewOption("info", "info"),
					huh.NewOption("debug", "debug"),
				).
				Value(&logLevel),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Reminder Tick Interval").
				Description("How often the reminder runner wakes up (0 disables it)").
				Value(&tickInterval),
			huh.NewConfirm().
				Title("Enable email delivery?").
				Description("SMTP settings can be filled in afterwards").
				Value(&enableEmail),
		),
	)

	if err := form.Run(); err != nil {
		return err
	}

	content := fmt.Sprintf(`[server]
host = "0.0.0.0"
port = %s

[sqlite]
path = %q

[logging]
level = %q

[reminders]
tick_interval = %q
default_interval = "2h"
dispatch_timeout = "10s"

[channels.inapp]
enabled = true

[channels.email]
enabled = %t
host = ""
port = 587
username = ""
password = ""
from = ""
security = "starttls"
subject_template = "[{{severity}}] {{alert_title}}"
body_template = "Hello {{user_name}},\n\n{{alert_message}}\n"

[channels.webhook]
enabled = false
url = ""
timeout = "10s"
`, port, dbPath, logLevel, tickInterval, enableEmail)

	if err := os.WriteFile(output, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("\n%s Configuration written to %s\n", successStyle.Render("✓"), output)
	fmt.Printf("  start the server with: %s\n", mutedStyle.Render("alertd serve --config "+output))
	return nil
}
