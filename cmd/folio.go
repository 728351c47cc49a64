/*
Copyright © 2024 Ryan Painter paintersrp@gmail.com

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Paintersrp/folio/internal/dispatch"
	"github.com/Paintersrp/folio/internal/logging"
	"github.com/Paintersrp/folio/internal/metrics"
	"github.com/Paintersrp/folio/internal/state"
	"github.com/Paintersrp/folio/pkg/cmd/root"
)

func Execute() {
	opts := root.ParseOptions(os.Args[1:])

	home, err := state.GetHomeDir()
	cobra.CheckErr(err)

	cfg, err := state.LoadConfig(home, opts.ConfigFile)
	cobra.CheckErr(err)

	level := cfg.Log.Level
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	cobra.CheckErr(logging.Init(logging.Config{
		Level:      level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.Output,
	}))
	defer logging.Sync()

	ui := dispatch.NewLoop(0)
	ui.Start()
	s, err := state.NewState(state.Options{Home: home, Config: cfg, Executor: ui})
	cobra.CheckErr(err)

	stopMetrics := serveMetrics(opts.MetricsAddr)

	rootCmd, err := root.NewCmdRoot(s, opts)
	cobra.CheckErr(err)

	execErr := rootCmd.Execute()
	stopMetrics()
	if err := s.Close(); err != nil {
		logging.Error("failed to close state", zap.Error(err))
	}
	if execErr != nil {
		logging.Sync()
		os.Exit(1)
	}
}

// serveMetrics exposes the Prometheus handler on addr until the returned
// function is called. An empty addr disables it.
func serveMetrics(addr string) func() {
	if addr == "" {
		return func() {}
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logging.Info("serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
