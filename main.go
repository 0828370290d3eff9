// Command game-navigator reads in-game coordinates off the screen and
// broadcasts them to connected map clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"game-navigator/internal/app"
	"game-navigator/internal/config"
	"game-navigator/internal/version"
)

func main() {
	var (
		configPath  = flag.String("config", "config.yaml", "path to the configuration file")
		debug       = flag.Bool("debug", false, "enable debug logging")
		dev         = flag.Bool("dev", false, "restart automatically when the binary is rebuilt")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	initLogger(*debug)
	log.Info().Str("version", version.Version).Msg("game navigator starting")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("failed to load configuration")
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to assemble tracker")
	}

	if *dev {
		if reloader := app.NewHotReloader(2 * time.Second); reloader != nil {
			log.Info().Str("exec", reloader.ExecPath()).Msg("hot reload enabled")
			reloader.Start()
			defer reloader.Stop()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("tracker stopped")
	}
	log.Info().Msg("game navigator stopped")
}

func initLogger(debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})
}
