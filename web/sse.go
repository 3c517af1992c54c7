package web

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"match-detail-service/models"
)

// handleSSE 长连接流式订阅：注册后立即推送 snapshot，
// 随后把队列消息按 text/event-stream 帧发出，直到客户端断开
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := &SSEClient{
		matchID: matchID,
		queue:   make(chan []byte, 256),
	}
	s.hub.RegisterSSE(client)
	defer s.hub.UnregisterSSE(client)

	// 先推当前快照
	if data, ok := s.snapshotMessage(matchID); ok {
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case data, ok := <-client.queue:
			if !ok {
				// 队列被 Hub 关闭（发送失败被注销）
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// snapshotMessage 构造 snapshot 广播消息的序列化结果
func (s *Server) snapshotMessage(matchID string) ([]byte, bool) {
	detail, err := s.aggregator.GetDetail(matchID)
	if err != nil {
		return nil, false
	}
	return marshalMessage(models.BroadcastMessage{
		Type:    models.MessageSnapshot,
		MatchID: matchID,
		Payload: detail,
	})
}
