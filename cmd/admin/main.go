package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yigit/assignhub/internal/app/migrations"
	appServices "github.com/yigit/assignhub/internal/app/services"
	"github.com/yigit/assignhub/internal/bootstrap"
	"github.com/yigit/assignhub/internal/config"
	"github.com/yigit/assignhub/internal/db"
	"github.com/yigit/assignhub/internal/pkg/auth"
	"github.com/yigit/assignhub/internal/pkg/logger"
	"github.com/yigit/assignhub/internal/seed"
)

func main() {
	app := &cli.App{
		Name:  "assignhub-admin",
		Usage: "maintenance tasks for the assignment hub database",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "apply pending SQL migrations",
				Action: migrate,
			},
			{
				Name:  "seed",
				Usage: "create the default accounts and sample data",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "migrate", Usage: "apply migrations first", Value: true},
				},
				Action: seedData,
			},
			{
				Name:  "remind",
				Usage: "send deadline reminders once",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "window", Usage: "remind about deadlines within this window (defaults to scheduler.reminder_window)"},
				},
				Action: remind,
			},
			{
				Name:      "hash-password",
				Usage:     "print the bcrypt hash of a password",
				ArgsUsage: "<password>",
				Action:    hashPassword,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func connect() (*config.Config, *db.PostgresDB, error) {
	cfg, _, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		return nil, nil, err
	}
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return cfg, database, nil
}

func migrate(c *cli.Context) error {
	cfg, database, err := connect()
	if err != nil {
		return err
	}
	defer database.Close()

	lgr := logger.Component("admin")
	if err := bootstrap.RunMigrations(c.Context, database.Pool, cfg.Database.MigrationsDir, lgr); err != nil {
		return err
	}

	applied, err := migrations.NewMigrator(database.Pool, lgr).Applied(c.Context)
	if err != nil {
		return err
	}
	for _, m := range applied {
		fmt.Printf("%s\t%s\n", m.Version, m.AppliedAt.Format(time.RFC3339))
	}
	return nil
}

func seedData(c *cli.Context) error {
	cfg, database, err := connect()
	if err != nil {
		return err
	}
	defer database.Close()

	lgr := logger.Component("admin")
	if c.Bool("migrate") {
		if err := bootstrap.RunMigrations(c.Context, database.Pool, cfg.Database.MigrationsDir, lgr); err != nil {
			return err
		}
	}
	return seed.CreateDefaultData(c.Context, database.Pool, lgr)
}

func remind(c *cli.Context) error {
	cfg, database, err := connect()
	if err != nil {
		return err
	}
	defer database.Close()

	lgr := logger.Component("admin")
	// The reminder job runs here, not in the scheduler
	cfg.Scheduler.Enabled = false
	deps, err := bootstrap.BuildDependencies(c.Context, cfg, database, lgr)
	if err != nil {
		return err
	}

	window := c.Duration("window")
	if window <= 0 {
		window, err = time.ParseDuration(cfg.Scheduler.ReminderWindow)
		if err != nil {
			window = appServices.DefaultReminderWindow
		}
	}

	sent, err := deps.NotificationService.SendDeadlineReminders(c.Context, window)

	closeCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	deps.Close(closeCtx)

	if err != nil {
		return err
	}
	fmt.Printf("sent %d deadline reminders\n", sent)
	return nil
}

func hashPassword(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one password argument")
	}
	hash, err := auth.HashPassword(c.Args().First())
	if err != nil {
		return err
	}
	fmt.Println(hash)
	return nil
}
