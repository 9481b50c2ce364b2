package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"gopkg.in/natefinch/lumberjack.v2"

	"example.com/balisegate/internal/common"
	"example.com/balisegate/internal/server"
)

func setupLogging(cfg config) (io.Closer, error) {
	if err := os.MkdirAll(cfg.Logs.Directory, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Logs.Directory, "telegramd.log"),
		MaxSize:    cfg.Logs.MaxSizeMB,
		MaxAge:     cfg.Logs.MaxAgeDays,
		MaxBackups: cfg.Logs.MaxBackups,
		Compress:   cfg.Logs.Compress,
	}
	common.SetOutput(io.MultiWriter(os.Stdout, rotator))
	common.SetDebug(cfg.Debug)
	return rotator, nil
}

func main() {
	configPath := pflag.StringP("config", "c", "config/telegramd.yaml", "path to configuration file")
	addr := pflag.String("addr", "", "listen address (overrides config port)")
	readTimeout := pflag.Duration("read-timeout", 60*time.Second, "HTTP read timeout")
	writeTimeout := pflag.Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	debug := pflag.Bool("debug", false, "enable debug logging")
	pflag.Parse()

	cfg, err := loadConfig(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		common.Warnf("config %s not found, using defaults", *configPath)
		cfg, err = defaultConfig(), nil
	}
	if err != nil {
		common.Fatalf("load config: %v", err)
	}
	if *debug {
		cfg.Debug = true
	}
	if err := os.MkdirAll(cfg.StorageDir, 0o755); err != nil {
		common.Fatalf("storage dir: %v", err)
	}
	rotator, err := setupLogging(cfg)
	if err != nil {
		common.Fatalf("setup logging: %v", err)
	}
	defer rotator.Close()

	listenAddr := fmt.Sprintf(":%d", cfg.Port)
	if *addr != "" {
		listenAddr = *addr
	}
	srv, err := server.NewServer(server.Options{
		StorageDir:     cfg.StorageDir,
		DictionaryPath: cfg.Dictionary,
		Concurrency:    cfg.Concurrency,
		DefaultVersion: cfg.DefaultVersion,
		Language:       cfg.Lang,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})
	if err != nil {
		common.Fatalf("server init: %v", err)
	}
	defer srv.Close()

	router, err := server.NewRouter(srv)
	if err != nil {
		common.Fatalf("router init: %v", err)
	}
	httpServer := &http.Server{
		Addr:         listenAddr,
		Handler:      router,
		ReadTimeout:  *readTimeout,
		WriteTimeout: *writeTimeout,
		ErrorLog:     common.Logger().StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel}),
	}

	common.Logf("telegramd listening on %s (default version %s)", listenAddr, cfg.DefaultVersion)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.Fatalf("listen: %v", err)
		}
	}()

	<-shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		common.Warnf("shutdown: %v", err)
	}
	common.Logf("telegramd stopped, %s", srv.Metrics().Snapshot())
}
