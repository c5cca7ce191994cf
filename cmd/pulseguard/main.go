package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ysicing/pulseguard/internal/app"
	"github.com/ysicing/pulseguard/internal/config"
	"github.com/ysicing/pulseguard/internal/version"
)

var configFile string

func init() {
	flag.StringVar(&configFile, "config", "", "Path to a YAML configuration file (optional; values set in the file override environment variables)")
}

func main() {
	flag.Parse()

	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "version") {
		fmt.Printf("pulseguard\n")
		fmt.Printf("Version:    %s\n", version.Version)
		fmt.Printf("Build Time: %s\n", version.BuildTime)
		fmt.Printf("Commit ID:  %s\n", version.CommitID)
		os.Exit(0)
	}

	logrus.WithFields(logrus.Fields{
		"version":    version.Version,
		"build_time": version.BuildTime,
		"commit_id":  version.CommitID,
	}).Info("starting pulseguard")

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			logrus.Fatalf("failed to load configuration from %s: %v", configFile, err)
		}
	} else {
		cfg, err = config.Load()
		if err != nil {
			logrus.Fatalf("failed to load configuration: %v", err)
		}
	}
	cfg.ValidateOrExit()

	if level, parseErr := logrus.ParseLevel(cfg.Log.Level); parseErr == nil {
		logrus.SetLevel(level)
	}
	if cfg.Log.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	application := app.New(cfg)

	ctx := context.Background()
	if err := application.Initialize(ctx); err != nil {
		logrus.Fatalf("failed to initialize application: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "application error: %v\n", err)
		os.Exit(1)
	}
}
