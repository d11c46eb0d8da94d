// Command playdeckd runs the interaction core without a window: the runtime,
// the journal and the local HTTP/WebSocket API. With -script it runs one
// script against a fresh runtime, prints the result and exits.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MJE43/playdeck/internal/bootstrap"
	"github.com/MJE43/playdeck/internal/config"
	"github.com/MJE43/playdeck/internal/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		envFile  = flag.String("env", ".env", "dotenv file to load before the environment")
		port     = flag.Int("port", -1, "override PLAYDECK_HTTP_PORT (0 disables the server)")
		token    = flag.String("token", "", "override PLAYDECK_HTTP_TOKEN")
		seed     = flag.String("seed", "", "override PLAYDECK_RNG_SEED (server:client)")
		simulate = flag.Bool("simulate", false, "complete image loads immediately")
		script   = flag.String("script", "", "run this script file and exit")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "playdeckd: %v\n", err)
		return 2
	}
	if *port >= 0 {
		cfg.HTTPPort = *port
	}
	if *token != "" {
		cfg.HTTPToken = *token
	}
	if *seed != "" {
		cfg.RNGSeed = *seed
	}
	if *simulate {
		cfg.SimulateLoads = true
	}
	if *script != "" {
		cfg.HTTPPort = 0
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "playdeckd: %v\n", err)
		return 2
	}

	log := logger.Init(cfg.LogLevel, cfg.LogJSON)

	svc, err := bootstrap.New(cfg, log)
	if err != nil {
		log.Error("init failed", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := svc.Start(ctx); err != nil {
		log.Error("start failed", "error", err)
		return 1
	}

	code := 0
	if *script != "" {
		code = runScript(ctx, svc, *script)
	} else {
		if svc.HTTP != nil {
			log.Info("serving", "addr", svc.HTTP.Addr(), "token", cfg.HTTPToken != "")
		}
		<-ctx.Done()
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		code = 1
	}
	return code
}

func runScript(ctx context.Context, svc *bootstrap.Services, path string) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "playdeckd: %v\n", err)
		return 1
	}
	res, runErr := svc.Scripts.Run(ctx, string(src))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		fmt.Fprintf(os.Stderr, "playdeckd: %v\n", err)
		return 1
	}
	if runErr != nil {
		return 1
	}
	return 0
}
