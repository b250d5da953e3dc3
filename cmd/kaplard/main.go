/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Command kaplard is the server entrypoint: it loads configuration, wires
// the service registry/scheduler/work pool/connection manager into a
// server.Server, registers the echo and login protocols, and runs until
// an interrupt or terminate signal asks it to shut down.
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	kconfig "github.com/sabouaram/kaplar/config"
	kctx "github.com/sabouaram/kaplar/context"
	"github.com/sabouaram/kaplar/duration"
	"github.com/sabouaram/kaplar/logger"
	"github.com/sabouaram/kaplar/monitor"
	"github.com/sabouaram/kaplar/protocols/echo"
	"github.com/sabouaram/kaplar/protocols/login"
	"github.com/sabouaram/kaplar/scheduler"
	"github.com/sabouaram/kaplar/server"
	"github.com/sabouaram/kaplar/service"
	"github.com/sabouaram/kaplar/workpool"
)

// maxPorts bounds the service registry; the original ran four fixed
// listeners (echo, login, game, a second info alias of login), and this
// leaves headroom for a config that adds more without a recompile.
const maxPorts = 8

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configFile string
		logLevel   string
		setArgs    []string
	)

	cmd := &cobra.Command{
		Use:   "kaplard",
		Short: "kaplard runs the game server's network core",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configFile, logLevel, setArgs)
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "path to a config file merged over the builtin defaults")
	cmd.Flags().StringVarP(&logLevel, "log-level", "l", "info", "log level: panic, fatal, error, warning, info, debug, nil")
	cmd.Flags().StringArrayVarP(&setArgs, "set", "s", nil, "override a config key, key=value (repeatable)")

	return cmd
}

// components is the named registry of long-lived collaborators, walked
// during shutdown so every monitor/server/scheduler stops in one pass
// instead of being threaded individually through run's body.
type components = kctx.Config[string]

func run(configFile, logLevel string, setArgs []string) error {
	cfg := kconfig.New()
	if configFile != "" {
		if err := cfg.LoadFile(configFile); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}
	if errs := cfg.ApplyArgs(setArgs); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "warning: %v\n", e)
		}
	}

	lvl := logger.GetLevelString(logLevel)
	log := logger.New(lvl, os.Stderr, true)
	logger.BridgeSPF13(log, lvl)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg := kctx.New[string](ctx)

	priv, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		return fmt.Errorf("generate rsa key: %w", err)
	}

	sched := scheduler.New()
	reg.Store("scheduler", sched)

	pool := workpool.New(1024, workpool.WorkerCount())
	reg.Store("workpool", pool)

	registry := service.NewRegistry(maxPorts)
	reg.Store("registry", registry)

	if _, cerr := registry.AddProtocol(cfg.GetInt("sv_echo_port"), echo.New()); cerr != nil {
		return fmt.Errorf("register echo protocol: %w", cerr)
	}

	lookup := login.StaticLookup{Motd: cfg.GetString("motd")}
	loginProto := login.New(login.NewKeyDecoder(priv), lookup)
	if _, cerr := registry.AddProtocol(cfg.GetInt("sv_login_port"), loginProto); cerr != nil {
		return fmt.Errorf("register login protocol: %w", cerr)
	}

	srv := server.New(registry, sched, pool, log)
	reg.Store("server", srv)

	if cerr := srv.ListenAll(); cerr != nil {
		return fmt.Errorf("listen: %w", cerr)
	}

	tickInterval, derr := cfg.GetDuration("tick_interval")
	if derr != nil {
		tickInterval = duration.Milliseconds(50)
	}

	connMon := monitor.New(monitor.Config{
		Name:          "connections",
		CheckTimeout:  duration.Seconds(1),
		IntervalCheck: tickInterval,
		FallCountWarn: 2,
		FallCountKO:   5,
		RiseCountWarn: 1,
		RiseCountKO:   1,
	})
	connMon.SetHealthCheck(func(context.Context) error {
		return nil
	})
	reg.Store("monitor.connections", connMon)
	if merr := connMon.Start(ctx); merr != nil {
		log.WithError(merr).Warn("failed to start connection monitor")
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	log.WithField("name", cfg.GetString("sv_name")).Info("server started")

	<-ctx.Done()
	log.Info("shutting down")
	shutdownAll(reg, srv, connMon)
	return nil
}

func shutdownAll(reg components, srv *server.Server, connMon monitor.Monitor) {
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = connMon.Stop(stopCtx)
	_ = srv.Stop(stopCtx)
	reg.Clean()
}
