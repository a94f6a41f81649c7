package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/labelforge/ptouchd/adapter"
	"github.com/labelforge/ptouchd/server"
	"github.com/labelforge/ptouchd/session"
)

func main() {
	// Configuration comes from environment variables.
	viper.AutomaticEnv()
	viper.SetDefault("LISTEN_ADDRESS", "localhost:9100")
	viper.SetDefault("METRICS_ADDRESS", "localhost:9191")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("STATUS_TIMEOUT_MS", 500)
	viper.SetDefault("POLL_INTERVAL_MS", 200)
	viper.SetDefault("COMPLETION_WAIT_MS", 15000)
	viper.SetDefault("WRITE_RETRIES", 3)
	viper.SetDefault("PRINTER_SERIAL", "")

	level, err := zerolog.ParseLevel(viper.GetString("LOG_LEVEL"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().
		Timestamp().
		Str("service", "ptouchd").
		Logger()

	var transport *adapter.USBTransport
	if serial := viper.GetString("PRINTER_SERIAL"); serial != "" {
		transport, err = adapter.NewUSBTransportSerial(serial)
	} else {
		transport, err = adapter.NewUSBTransportAuto()
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("no printer available")
	}
	defer transport.Close()
	logger.Info().Str("model", transport.Model()).Msg("printer found")

	sessionOpts := []session.Option{
		session.WithStatusTimeout(time.Duration(viper.GetInt("STATUS_TIMEOUT_MS")) * time.Millisecond),
		session.WithPollInterval(time.Duration(viper.GetInt("POLL_INTERVAL_MS")) * time.Millisecond),
		session.WithCompletionWait(time.Duration(viper.GetInt("COMPLETION_WAIT_MS")) * time.Millisecond),
		session.WithRetries(viper.GetInt("WRITE_RETRIES")),
		session.WithLogger(logger),
	}

	if metricsAddr := viper.GetString("METRICS_ADDRESS"); metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info().Str("address", metricsAddr).Msg("metrics listening")
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	svr := server.New(transport, viper.GetString("LISTEN_ADDRESS"), logger, sessionOpts...)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info().Msg("shutting down")
		if err := svr.Stop(); err != nil {
			logger.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := svr.Start(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
