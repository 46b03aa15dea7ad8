package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/automoto/frontline-mp/config"
	"github.com/automoto/frontline-mp/server/core"
	"github.com/automoto/frontline-mp/shared/protocol"
	"github.com/automoto/frontline-mp/shared/weapons"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

func main() {
	configDir := flag.String("config", ".", "Directory containing frontline.yaml")
	port := flag.Uint("port", 7373, "Server port")
	tickRate := flag.Int("tickrate", 50, "Server tick rate (updates per second)")
	name := flag.String("name", "Frontline Server", "Server display name")
	version := flag.String("version", "", "Required client version (empty = accept any)")
	mapName := flag.String("map", "", "Map to load on start")
	flag.Parse()

	cfg, err := config.Load(viper.GetViper(), *configDir)
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Flags given on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Server.Port = *port
		case "tickrate":
			cfg.Server.TickRate = *tickRate
		case "name":
			cfg.Server.Name = *name
		case "version":
			cfg.Server.Version = *version
		case "map":
			cfg.Server.Map = *mapName
		}
	})
	if err := cfg.Validate(); err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("invalid config")
	}

	log := setupLogging(cfg.LogLevel)

	if err := protocol.RegisterComponents(); err != nil {
		log.Fatal().Err(err).Msg("failed to register components")
	}

	catalog := weapons.DefaultCatalog()
	if cfg.Weapons.CatalogFile != "" {
		catalog, err = weapons.LoadCatalog(cfg.Weapons.CatalogFile)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load weapon catalog")
		}
	}

	levels, err := core.LoadLevels(os.DirFS(cfg.Server.AssetsDir), "levels")
	if err != nil {
		log.Fatal().Err(err).Str("assetsDir", cfg.Server.AssetsDir).Msg("failed to load levels")
	}

	server, err := core.NewServer(core.Options{
		Config:  cfg,
		Catalog: catalog,
		Levels:  levels,
		Logger:  log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down server")
		server.Stop()
		os.Exit(0)
	}()

	log.Info().
		Str("name", cfg.Server.Name).
		Uint("port", cfg.Server.Port).
		Int("tickRate", cfg.Server.TickRate).
		Str("version", cfg.Server.Version).
		Str("map", cfg.Server.Map).
		Strs("weapons", catalog.IDs()).
		Msg("starting frontline server")
	if err := server.Start(ctx, cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

// parseLevel maps a configured level name onto zerolog's levels. Unknown or
// empty names fall back to info.
func parseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func setupLogging(level string) zerolog.Logger {
	lvl := parseLevel(level)
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}
