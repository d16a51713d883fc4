// Copyright 2026 Marc-Antoine Ruel. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// thermcam shows the thermal image of a MLX90640 on a ILI9488 screen.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/maruel/interrupt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thermcam/go-thermcam/camera"
	"github.com/thermcam/go-thermcam/config"
	"github.com/thermcam/go-thermcam/diag"
	"github.com/thermcam/go-thermcam/gymcu"
	"github.com/thermcam/go-thermcam/input"
	"github.com/thermcam/go-thermcam/mlx90640"
)

var version = "devel"

type flags struct {
	config      string
	writeConfig bool
	sensor      string
	display     string
	input       string
	diagAddr    string
	verbose     bool
}

func mainImpl() error {
	var f flags
	root := &cobra.Command{
		Use:           "thermcam",
		Short:         "thermal camera",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, &f)
		},
	}
	root.Flags().StringVar(&f.config, "config", "", "config file (default ~/.config/thermcam/thermcam.yaml)")
	root.Flags().BoolVar(&f.writeConfig, "write-config", false, "write the normalized config file and exit")
	root.Flags().StringVar(&f.sensor, "sensor", "", "frame source: mlx90640, gymcu or fake")
	root.Flags().StringVar(&f.display, "display", "", "screen: ili9488 or term")
	root.Flags().StringVar(&f.input, "input", "", "mode button: gpio, evdev, keyboard or none")
	root.Flags().StringVar(&f.diagAddr, "diag", "", "address to serve the status stream on, e.g. :8010")
	root.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "verbose logging")
	return root.Execute()
}

func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, string, error) {
	path := f.config
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	fl := cmd.Flags()
	if fl.Changed("sensor") {
		cfg.Sensor.Kind = f.sensor
	}
	if fl.Changed("display") {
		cfg.Display.Kind = f.display
	}
	if fl.Changed("input") {
		cfg.Input.Kind = f.input
	}
	if fl.Changed("diag") {
		cfg.Diag.Addr = f.diagAddr
	}
	if f.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, path, cfg.Validate()
}

func run(cmd *cobra.Command, f *flags) error {
	cfg, path, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	if f.writeConfig {
		if err := cfg.Write(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	}

	// The terminal preview owns stdout.
	log, err := diag.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return err
	}
	logf := diag.Logf(log)
	mlx90640.Logf = logf
	gymcu.Logf = logf
	input.Logf = logf
	config.Logf = logf

	interrupt.HandleCtrlC()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-interrupt.Channel
		cancel()
	}()
	updates := make(chan *config.Config, 1)
	watchConfig(ctx, path, cfg, updates, log)

	if err := initHost(cfg); err != nil {
		return err
	}
	cv, err := openCanvas(cfg)
	if err != nil {
		return err
	}
	defer cv.Close()

	src, err := openSource(cfg)
	if err != nil {
		log.WithField("err", err).Error("sensor")
		return camera.Fatal(ctx, cv, err)
	}
	defer src.Close()
	log.WithField("source", src.String()).Info("sensor ready")

	p, err := openPipeline(cfg, log)
	if err != nil {
		return camera.Fatal(ctx, cv, err)
	}
	defer p.Close()

	b := &input.Button{Debounce: cfg.Input.Debounce}
	startInput(ctx, cfg, b, log)

	sinks := diag.Multi{&diag.Logger{L: log}}
	if cfg.Diag.Addr != "" {
		hub := diag.NewHub(log)
		defer hub.Close()
		srv := &http.Server{Addr: cfg.Diag.Addr, Handler: hub.Handler()}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithField("err", err).Error("diag server")
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			srv.Shutdown(sctx)
		}()
		log.WithField("addr", cfg.Diag.Addr).Info("serving status")
		sinks = append(sinks, hub)
	}

	cam, err := camera.New(src, cv, b, p, &camera.Opts{
		Timing:  cfg.Timing,
		Version: version,
		Sink:    sinks,
		Log:     log,
		Updates: updates,
	})
	if err != nil {
		return err
	}
	err = cam.Run(ctx)
	log.WithFields(logrus.Fields{"failed": cam.Failed(), "resets": cam.Resets(), "presses": b.Presses()}).Info("done")
	return err
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "\nthermcam: %s.\n", err)
		os.Exit(1)
	}
}

// watchConfig sends configuration updates to ch. It also interrupts the
// process when the executable is replaced so the service manager restarts
// the new one.
func watchConfig(ctx context.Context, path string, cfg *config.Config, ch chan *config.Config, log logrus.FieldLogger) {
	w, err := config.NewWatcher(path, cfg)
	if err != nil {
		log.WithFields(logrus.Fields{"path": path, "err": err}).Info("not watching config")
		return
	}
	if exe, err := os.Executable(); err != nil {
		log.WithField("err", err).Warn("not watching executable")
	} else if err := w.WatchBinary(exe); err != nil {
		log.WithFields(logrus.Fields{"path": exe, "err": err}).Warn("not watching executable")
	}
	go func() {
		err := w.Run(ctx, ch)
		switch {
		case errors.Is(err, config.ErrBinaryChanged):
			log.Info("executable changed, exiting")
			interrupt.Set()
		case err != nil:
			log.WithField("err", err).Warn("config watcher stopped")
		}
	}()
}
