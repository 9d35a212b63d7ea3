package main

import (
	"context"
	"os"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/mediatag/pkg/config"
	"github.com/shishobooks/mediatag/pkg/version"
)

func main() {
	log := logger.New()

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	log = logger.NewWithLevel(cfg.LogLevel)
	log.Debug("starting mediatag", logger.Data{"version": version.Version})

	ctx := log.WithContext(context.Background())
	if err := newApp(cfg).RunContext(ctx, os.Args); err != nil {
		log.Err(err).Fatal("app run error")
	}
}
