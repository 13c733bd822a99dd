// Command gaitsonify replays an IMU gait capture and sonifies the gait
// asymmetry it detects.
//
// Usage:
//
//	gaitsonify [flags] capture.csv
//
// Every flag can also be set with a GAIT_* environment variable or in a
// YAML file passed with -config. Flags win over the environment, which wins
// over the file.
//
// Examples:
//
//	gaitsonify walk.csv
//	gaitsonify -mode constant -speed 2 walk.csv
//	gaitsonify -backend wav -wav walk.wav -realtime=false walk.csv
//	gaitsonify -mode allpass -feed :8080 walk.csv
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cwbudde/gait-sonify/internal/config"
	"github.com/cwbudde/gait-sonify/internal/log"
)

func main() {
	cfg, err := config.Load(os.Args[1:], os.LookupEnv)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "gaitsonify: %v\n", err)
		os.Exit(2)
	}

	log.Init(cfg.LogLevel)
	session := log.NewSessionID()
	logger := log.WithSession(session)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sum, err := run(ctx, cfg, session, logger)
	if sum != nil {
		sum.print(os.Stdout)
	}
	if err != nil {
		logger.Error("gaitsonify failed", "error", err)
		os.Exit(1)
	}
}
