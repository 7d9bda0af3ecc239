package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bridge-backend/internal/app"
	"bridge-backend/internal/config"
	"bridge-backend/internal/db"
	"bridge-backend/internal/router"

	"github.com/sirupsen/logrus"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}

	if err := config.LoadConfig(os.Getenv("CONFIG_PATH")); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db.InitDB()
	db.SeedBridgeConfig(db.DB)

	container, err := app.InitializeContainer()
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	container.Scheduler.Start()

	r := router.SetupRouter(container.BridgeHandler, container.AdminHandler, container.WebSocketHandler)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Server.Host, config.AppConfig.Server.Port)
	log.Printf("🚀 Bridge backend listening on %s", addr)

	go func() {
		if err := r.Run(addr); err != nil {
			log.Fatalf("Server exited: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	container.Shutdown()
}
