package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cabinstay/internal/app"
	"github.com/cabinstay/internal/config"
	"github.com/cabinstay/internal/logger"
	"github.com/cabinstay/internal/models"
	"github.com/cabinstay/internal/schema"
)

func main() {
	var (
		configPath string
		statusOnly bool
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径")
	flag.BoolVar(&statusOnly, "status", false, "仅打印迁移状态")
	flag.Parse()

	if err := run(configPath, statusOnly); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, statusOnly bool) error {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return err
	}
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())

	db, err := app.OpenDatabase(cfg.Database, false)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = models.CloseDB(db) }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if !statusOnly {
		applied, err := app.Migrate(ctx, db, cfg)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Println("schema is up to date")
		}
		for _, item := range applied {
			fmt.Printf("applied %05d %s (%s)\n", item.Version, item.Name, item.Duration.Round(time.Millisecond))
		}
	}

	statuses, err := schema.NewManager(db, nil).Status(ctx)
	if err != nil {
		return fmt.Errorf("schema status: %w", err)
	}
	for _, status := range statuses {
		state := "pending"
		if status.Applied {
			state = "applied " + status.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Printf("%05d %-32s %s\n", status.Version, status.Name, state)
	}
	return nil
}
