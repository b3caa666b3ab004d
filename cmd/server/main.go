package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/blocktick/internal/app"
	"github.com/annel0/blocktick/internal/config"
	"github.com/annel0/blocktick/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "путь к YAML конфигурации (по умолчанию $BLOCKTICK_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("❌ Ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Logging.Dir != "" {
		logging.SetLogDir(cfg.Logging.Dir)
	}
	if err := logging.InitDefaultLogger("server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()
	defer func() { _ = logging.CloseComponentLoggers() }()
	if level, ok := logging.ParseLevel(cfg.Logging.Level); ok {
		logging.SetDefaultLevel(level)
		logging.SetComponentLevel(level)
	}

	logging.Info("🧱 Запуск мира %q (seed=%d, %d тиков/с)", cfg.World.Name, cfg.World.Seed, cfg.World.TicksPerSecond)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := app.New(ctx, cfg)
	if err != nil {
		logging.Error("❌ Ошибка инициализации сервера: %v", err)
		return
	}

	logging.Info("🌐 REST API: http://localhost:%d", cfg.Server.GetRESTPort())
	logging.Info("❤️  Health check: http://localhost:%d/health", cfg.Server.GetRESTPort())

	if err := srv.Run(ctx); err != nil {
		logging.Error("❌ Сервер завершился с ошибкой: %v", err)
	}

	logging.Info("📡 Завершение работы, сохранение мира...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Close(shutdownCtx); err != nil {
		logging.Error("❌ Ошибка остановки: %v", err)
	}
	logging.Info("👋 Сервер остановлен")
}
