// cmd/parmair-bridge/app/run.go
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/tamzrod/parmair-bridge/internal/api"
	cfg "github.com/tamzrod/parmair-bridge/internal/config"
	"github.com/tamzrod/parmair-bridge/internal/metrics"
	"github.com/tamzrod/parmair-bridge/internal/mqtt"
	"github.com/tamzrod/parmair-bridge/internal/poller"
)

const shutdownTimeout = 5 * time.Second

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Poll the device and serve its registers over HTTP and MQTT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.Load(configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			if err := cfg.Validate(c); err != nil {
				return fmt.Errorf("config validation failed: %w", err)
			}
			cfg.Normalize(c)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, c.Bridge)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "parmair-bridge.yaml", "path to the YAML config")
	return cmd
}

func run(ctx context.Context, b cfg.BridgeConfig) error {
	cat, err := loadCatalog(b.CatalogFile)
	if err != nil {
		return err
	}

	prof, pinned := b.Pinned()
	if !pinned {
		klog.InfoS("No profile configured, probing device", "endpoint", b.Device.Endpoint())
		if prof, err = detect(ctx, b, cat); err != nil {
			return fmt.Errorf("device probe failed: %w", err)
		}
	}
	klog.InfoS("Device profile", "device", prof.UniqueID(), "firmware", prof.Family,
		"heater", prof.Heater, "pinned", pinned)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}

	coord, err := poller.Build(b, prof, cat, poller.WithObserver(m))
	if err != nil {
		return fmt.Errorf("poller build failed: %w", err)
	}

	var shutdownHTTP func(context.Context)
	if b.HTTP.Listen != "" {
		shutdownHTTP, err = api.NewServer(coord, reg).Serve(b.HTTP.Listen)
		if err != nil {
			return fmt.Errorf("http listen: %w", err)
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		coord.Run(ctx)
	}()

	if b.MQTT.Broker != "" {
		bridge := mqtt.New(b.MQTT, coord)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := bridge.Run(ctx); err != nil {
				klog.ErrorS(err, "MQTT bridge stopped", "broker", b.MQTT.Broker)
			}
		}()
	}

	<-ctx.Done()
	klog.InfoS("Shutting down", "device", prof.UniqueID())

	if shutdownHTTP != nil {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		shutdownHTTP(sctx)
		cancel()
	}
	wg.Wait()
	return nil
}
