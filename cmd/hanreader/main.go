package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/halvorlund/hanreader/pkg/config"
	"github.com/halvorlund/hanreader/pkg/connection"
	"github.com/halvorlund/hanreader/pkg/decode"
	"github.com/halvorlund/hanreader/pkg/sink"
	"github.com/halvorlund/hanreader/pkg/transport"
)

var configPath = pflag.String("config", "", "path to YAML configuration file")

func main() {
	config.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		ReportTimestamp: true,
		Level:           charmlog.InfoLevel,
	})

	cfg, err := config.Load(*configPath, pflag.CommandLine)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}

	redisSink, err := sink.NewRedisSink(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Key)
	if err != nil {
		logger.Fatalf("connect redis sink: %v", err)
	}
	defer redisSink.Close()

	factory, profile := buildFactory(cfg, logger)

	mgr := connection.NewManager(factory, connection.Options{
		Profile:                        profile,
		UseOctetStuffing:               cfg.HDLC.UseOctetStuffing,
		UseAbortSequence:               cfg.HDLC.UseAbortSequence,
		ConnectErrorMaxDelay:           cfg.Backoff.ConnectErrorMaxDelay(),
		ConnectionLostBackOffThreshold: cfg.Backoff.ConnectionLostThreshold(),
		ConnectionLostBackOffSleep:     cfg.Backoff.ConnectionLostSleep(),
		Logger:                         logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		mgr.Close()
		cancel()
	}()

	go mgr.Run(ctx)

	decoder := decode.NewAutoDecoder()
	for msg := range mgr.Messages() {
		if !msg.IsValid() {
			logger.Warn("dropping invalid message")
			continue
		}

		record, err := decoder.DecodeMessage(msg)
		if err != nil {
			logger.Warnf("decode failed: %v", err)
			continue
		}

		if err := redisSink.Publish(record); err != nil {
			logger.Errorf("publish record: %v", err)
		}
	}

	mgr.Wait()
}

func buildFactory(cfg config.Config, logger *charmlog.Logger) (connection.Factory, connection.Profile) {
	profile := connection.ProfileModeD
	if cfg.Transport.Framing == "hdlc" {
		profile = connection.ProfileHDLC
	}

	if cfg.Transport.Kind == "tcp" {
		logger.Infof("using tcp transport at %s", cfg.Transport.Addr)
		return transport.TCP(cfg.Transport.Addr), profile
	}

	logger.Infof("using serial transport at %s", cfg.Transport.Addr)
	opts := transport.DefaultSerialOptions()
	opts.BaudRate = cfg.Transport.SerialBaudRate
	return transport.Serial(cfg.Transport.Addr, opts), profile
}
