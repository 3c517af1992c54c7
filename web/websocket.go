package web

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"match-detail-service/logger"
	"match-detail-service/models"
)

// WSClient WebSocket 订阅客户端，绑定单场比赛
type WSClient struct {
	hub     *Hub
	conn    *websocket.Conn
	matchID string
	send    chan []byte
}

// SSEClient SSE 订阅客户端，消息经由私有队列推送
type SSEClient struct {
	matchID string
	queue   chan []byte
}

// Hub 按比赛 ID 维护当前连接的实时订阅者并负责广播。
// 注册表的增删由同一把锁串行化，广播遍历时间点快照，
// 单个客户端发送失败不影响其余客户端。
type Hub struct {
	ws  map[string]map[*WSClient]bool
	sse map[string]map[*SSEClient]bool
	mu  sync.RWMutex
}

// NewHub 创建 Hub 实例
func NewHub() *Hub {
	return &Hub{
		ws:  make(map[string]map[*WSClient]bool),
		sse: make(map[string]map[*SSEClient]bool),
	}
}

// RegisterWS 注册 WebSocket 客户端
func (h *Hub) RegisterWS(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ws[client.matchID] == nil {
		h.ws[client.matchID] = make(map[*WSClient]bool)
	}
	h.ws[client.matchID][client] = true
	logger.Printf("[Hub] WS client registered for match %s. Subscribers: %d", client.matchID, len(h.ws[client.matchID]))
}

// UnregisterWS 注销 WebSocket 客户端，重复调用安全
func (h *Hub) UnregisterWS(client *WSClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.ws[client.matchID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)
			if len(clients) == 0 {
				delete(h.ws, client.matchID)
			}
			logger.Printf("[Hub] WS client unregistered for match %s", client.matchID)
		}
	}
}

// RegisterSSE 注册 SSE 客户端
func (h *Hub) RegisterSSE(client *SSEClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sse[client.matchID] == nil {
		h.sse[client.matchID] = make(map[*SSEClient]bool)
	}
	h.sse[client.matchID][client] = true
	logger.Printf("[Hub] SSE client registered for match %s. Subscribers: %d", client.matchID, len(h.sse[client.matchID]))
}

// UnregisterSSE 注销 SSE 客户端，重复调用安全
func (h *Hub) UnregisterSSE(client *SSEClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.sse[client.matchID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.queue)
			if len(clients) == 0 {
				delete(h.sse, client.matchID)
			}
			logger.Printf("[Hub] SSE client unregistered for match %s", client.matchID)
		}
	}
}

// Subscribers 返回某场比赛当前的订阅者数量
func (h *Hub) Subscribers(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.ws[matchID]) + len(h.sse[matchID])
}

// Broadcast 把消息推送给该比赛的全部订阅者。
// 发送队列已满的客户端视为失效，直接注销
func (h *Hub) Broadcast(msg models.BroadcastMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Errorf("[Hub] Failed to marshal broadcast message: %v", err)
		return
	}

	// 队列关闭只发生在写锁内，读锁期间入队不会撞上已关闭的通道
	h.mu.RLock()
	var deadWS []*WSClient
	for client := range h.ws[msg.MatchID] {
		select {
		case client.send <- data:
		default:
			deadWS = append(deadWS, client)
		}
	}
	var deadSSE []*SSEClient
	for client := range h.sse[msg.MatchID] {
		select {
		case client.queue <- data:
		default:
			deadSSE = append(deadSSE, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range deadWS {
		logger.Errorf("[Hub] WS client send queue full for match %s, dropping client", msg.MatchID)
		h.UnregisterWS(client)
	}
	for _, client := range deadSSE {
		logger.Errorf("[Hub] SSE client queue full for match %s, dropping client", msg.MatchID)
		h.UnregisterSSE(client)
	}
}

// readPump 读取客户端入站帧，仅作为存活信号，内容忽略
func (c *WSClient) readPump() {
	defer func() {
		c.hub.UnregisterWS(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("[Hub] WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump 把队列消息写给客户端
func (c *WSClient) writePump() {
	defer c.conn.Close()

	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
