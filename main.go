package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"match-detail-service/config"
	"match-detail-service/database"
	"match-detail-service/services"
	"match-detail-service/upstream"
	"match-detail-service/web"
)

func main() {
	log.Println("Starting Match Detail Service...")

	// 加载配置
	cfg := config.Load()

	// 选择存储：配置了数据库则用 Postgres，否则用内存存储
	var store services.DetailStore
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		log.Println("Database connected and migrated")

		store = services.NewPostgresStore(db)
	} else {
		log.Println("DATABASE_URL not set, using in-memory store")
		store = services.NewMemoryStore()
	}

	// 上游服务客户端（未配置的为 nil，读取时降级）
	aggregator := services.NewAggregator(store,
		upstream.NewClient(upstream.Config{BaseURL: cfg.MatchesBaseURL, Timeout: cfg.RequestTimeout}),
		upstream.NewClient(upstream.Config{BaseURL: cfg.TeamsBaseURL, Timeout: cfg.RequestTimeout}),
		upstream.NewClient(upstream.Config{BaseURL: cfg.CompetitionsBaseURL, Timeout: cfg.RequestTimeout}),
		upstream.NewClient(upstream.Config{BaseURL: cfg.PlayersBaseURL, Timeout: cfg.RequestTimeout}),
	)

	// 本地订阅者注册表
	hub := web.NewHub()

	// 跨进程广播通道
	var broadcaster services.Broadcaster
	switch cfg.Broadcaster {
	case "mqtt":
		broadcaster = services.NewMQTTBroadcaster(cfg.MQTTBroker, cfg.MQTTUsername, cfg.MQTTPassword, cfg.BroadcastExchange)
	case "memory":
		broadcaster = services.NewMemoryBroadcaster()
	default:
		broadcaster = services.NewAMQPBroadcaster(cfg.AMQPURL, cfg.BroadcastExchange)
	}

	if err := broadcaster.Start(hub); err != nil {
		log.Fatalf("Failed to start broadcaster: %v", err)
	}
	log.Printf("Broadcaster started (%s)", cfg.Broadcaster)

	// 启动Web服务器
	server := web.NewServer(cfg, store, aggregator, hub, broadcaster)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Web server error: %v", err)
		}
	}()

	log.Printf("Web server started on port %s", cfg.Port)
	log.Println("Service is running. Press Ctrl+C to stop.")

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down service...")

	// 清理资源
	broadcaster.Stop()
	server.Stop()

	log.Println("Service stopped")
}
