package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/avbdr/partyline/internal/adapters/rest"
	"github.com/avbdr/partyline/internal/adapters/rtc"
	signalws "github.com/avbdr/partyline/internal/adapters/signal"
	"github.com/avbdr/partyline/internal/app"
	"github.com/avbdr/partyline/internal/app/orch"
	"github.com/avbdr/partyline/internal/config"
	"github.com/avbdr/partyline/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	token := os.Getenv(cfg.TokenEnv)
	if token == "" {
		log.Fatal().Str("env", cfg.TokenEnv).Msg("no bearer token in environment")
	}
	groupID := cfg.GroupID
	if len(os.Args) > 1 {
		groupID = os.Args[1]
	}
	if groupID == "" {
		log.Fatal().Msg("no group id (config group_id or argv[1])")
	}

	sc := app.NewSessionContext()
	if err := sc.SetToken(token); err != nil {
		log.Fatal().Err(err).Msg("seed token")
	}
	sc.SetAccount(domain.AccountID(cfg.AccountID))

	httpc := &http.Client{}
	rc := rest.New(cfg.APIBaseURL, httpc, sc.Token, cfg.RequestTimeout)

	engine := rtc.NewEngine(rtc.DefaultConfig())
	negotiator := app.NewPeerNegotiator(rc, cfg.TitleID)
	engine.OnEstablished(func(peerID domain.PeerID) {
		if err := negotiator.MarkEstablished(peerID); err != nil {
			log.Warn().Err(err).Str("peer", string(peerID)).Msg("establish out of order")
		}
	})

	o := &orch.Orchestrator{
		Session: sc,
		Party:   app.NewPartyManager(rc, sc, cfg.MaxMembers, cfg.Channel),
		Bridges: app.NewBridgeManager(rc, sc, cfg.TitleID),
		Peers:   negotiator,
		Signal:  signalws.NewClient(cfg.DiscoveryURL, httpc, sc.Token),
		Media:   engine,
	}

	if err := o.Start(ctx, domain.GroupID(groupID)); err != nil {
		log.Fatal().Err(err).Msg("failed to start party session")
	}
	log.Info().Str("group", groupID).Msg("party session up")

	if err := o.Run(ctx); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("session loop error")
	}
	log.Info().Msg("exited gracefully")
}
