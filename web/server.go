package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"match-detail-service/config"
	"match-detail-service/logger"
	"match-detail-service/models"
	"match-detail-service/services"
)

type Server struct {
	config      *config.Config
	store       services.DetailStore
	aggregator  *services.Aggregator
	hub         *Hub
	broadcaster services.Broadcaster
	httpServer  *http.Server
	upgrader    websocket.Upgrader
}

func NewServer(cfg *config.Config, store services.DetailStore, aggregator *services.Aggregator, hub *Hub, broadcaster services.Broadcaster) *Server {
	return &Server{
		config:      cfg,
		store:       store,
		aggregator:  aggregator,
		hub:         hub,
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // 允许所有来源(生产环境需要限制)
			},
		},
	}
}

// Router 组装路由，测试直接挂到 httptest 上
func (s *Server) Router() http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/", s.handleRoot).Methods("GET")

	// API路由
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/v1/match-details/{matchId}", s.handleGetDetail).Methods("GET")
	// 旧路径别名
	api.HandleFunc("/v1/matches/{matchId}/details", s.handleGetDetail).Methods("GET")
	api.HandleFunc("/v1/match-details/{matchId}/meta", s.requireAuth(s.handleUpsertMeta)).Methods("PATCH")
	api.HandleFunc("/v1/match-details/{matchId}/events", s.requireAuth(s.handleAddEvent)).Methods("POST")
	api.HandleFunc("/v1/match-details/{matchId}/lineups", s.requireAuth(s.handleSetLineups)).Methods("PUT")
	api.HandleFunc("/v1/match-details/{matchId}/stats", s.requireAuth(s.handleSetStats)).Methods("PUT")

	// 实时订阅路由
	router.HandleFunc("/ws/matches/{matchId}", s.handleWebSocket)
	router.HandleFunc("/sse/matches/{matchId}", s.handleSSE).Methods("GET")

	// CORS配置
	c := cors.New(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(router)
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        ":" + s.config.Port,
		Handler:     s.Router(),
		ReadTimeout: 15 * time.Second,
		// SSE 长连接不能设置写超时
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown error: %v", err)
	}
}

// handleRoot 服务标识
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "matchDetailService",
		"status":  "ok",
	})
}

// handleHealth 健康检查
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleWebSocket WebSocket 订阅：升级连接，注册到 Hub，
// 先推 connected 和 snapshot，之后由读写泵接管直到断开
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Errorf("WebSocket upgrade error: %v", err)
		return
	}

	client := &WSClient{
		hub:     s.hub,
		conn:    conn,
		matchID: matchID,
		send:    make(chan []byte, 256),
	}
	// 欢迎消息 + 当前快照先入队，再注册：
	// 注册后 Hub 才能往 send 写增量，保证订阅者先看到快照
	if data, ok := marshalMessage(models.BroadcastMessage{
		Type:    models.MessageConnected,
		MatchID: matchID,
		Payload: map[string]interface{}{
			"message": "Connected to match detail stream",
			"time":    time.Now().Unix(),
		},
	}); ok {
		client.send <- data
	}
	if data, ok := s.snapshotMessage(matchID); ok {
		client.send <- data
	}
	s.hub.RegisterWS(client)

	go client.writePump()
	go client.readPump()
}

// marshalMessage 序列化广播消息
func marshalMessage(msg models.BroadcastMessage) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Errorf("Failed to marshal message: %v", err)
		return nil, false
	}
	return data, true
}
