package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"goa.design/clue/log"

	"github.com/cloi-dev/hub/internal/agentregistry"
	"github.com/cloi-dev/hub/internal/card"
	"github.com/cloi-dev/hub/internal/config"
	"github.com/cloi-dev/hub/internal/handler"
	"github.com/cloi-dev/hub/internal/hubcore"
	"github.com/cloi-dev/hub/internal/router"
	"github.com/cloi-dev/hub/internal/scheduler"
	"github.com/cloi-dev/hub/internal/taskengine"
	"github.com/cloi-dev/hub/internal/telemetry"
	"github.com/cloi-dev/hub/internal/transport"
)

func newStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the hub in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(cmd)
		},
	}
}

func runStart(cmd *cobra.Command) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx := telemetry.NewContext(cmd.Context(), cfg.Logging)
	hostIdentity := hubcore.NewIdentity()

	reg := agentregistry.New(cfg.Discovery.TTL, hostIdentity)
	reg.Register(hubcore.AgentRecord{Identity: hostIdentity, Kind: hubcore.AgentKindHost})

	stub := handler.Stub{}
	engine := taskengine.New(reg, stub, taskengine.Config{ConsensusThreshold: cfg.Coordination.ConsensusThreshold})
	rtr := router.New(cfg.Messaging.OutboxCapacity, cfg.Messaging.HistorySize)
	pub := card.New(card.Config{
		Name:        "cloi-hub",
		Description: "Coordination hub for multi-agent code analysis and repair",
		Version:     "dev",
		URL:         fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port),
		Streaming:   true,
		Skills: []hubcore.Skill{
			{
				ID:          "code-analysis",
				Name:        "Code Analysis",
				Description: "Classifies errors and suggests fixes across common runtime and build failures",
				Tags:        []string{"code", "debugging"},
				InputModes:  []string{"text"},
				OutputModes: []string{"text"},
			},
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
	})

	srv := transport.New(transport.Deps{
		Registry:          reg,
		Engine:            engine,
		Router:            rtr,
		Card:              pub,
		Handler:           stub,
		BearerToken:       cfg.Auth.Token,
		DiscoveryInterval: cfg.Discovery.BroadcastInterval,
	})

	sched := scheduler.New()
	sched.Every("reap", cfg.Discovery.TTL/2, func() { reg.Reap() })
	sched.Every("discovery-broadcast", cfg.Discovery.BroadcastInterval, func() { srv.BroadcastDiscovery(hostIdentity) })
	sched.Every("task-expiry", cfg.Coordination.TaskTTL/2, func() { engine.Expire(cfg.Coordination.TaskTTL) })
	go sched.Run()
	defer sched.Stop()

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		telemetry.Error(ctx, err)
		os.Exit(1)
	}

	httpServer := &http.Server{Handler: srv.Routes()}

	if err := writePIDFile(pidFile); err != nil {
		telemetry.Error(ctx, err)
		os.Exit(2)
	}
	defer os.Remove(pidFile)

	errc := make(chan error, 1)
	go func() {
		telemetry.Info(ctx, "hub listening", log.KV{K: "addr", V: addr})
		errc <- httpServer.Serve(listener)
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigc:
		telemetry.Info(ctx, "shutting down", log.KV{K: "signal", V: sig.String()})
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Error(ctx, err)
			os.Exit(2)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}
