package web

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"match-detail-service/logger"
	"match-detail-service/models"
	"match-detail-service/services"
)

// handleGetDetail 返回聚合后的比赛详情视图
func (s *Server) handleGetDetail(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]

	detail, err := s.aggregator.GetDetail(matchID)
	if err != nil {
		if _, ok := err.(*services.ErrNotFound); ok {
			writeError(w, http.StatusNotFound, "Match not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// handleUpsertMeta 写入或合并比赛元数据并广播 match.updated
func (s *Server) handleUpsertMeta(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]

	var meta models.MatchMeta
	if !decodeBody(w, r, &meta) {
		return
	}
	meta.ID = matchID

	merged, err := s.store.UpsertMeta(meta)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.notify(models.BroadcastMessage{
		Type:    models.MessageMatchUpdated,
		MatchID: matchID,
		Payload: merged,
	})
	writeJSON(w, http.StatusOK, merged)
}

// handleAddEvent 追加比赛事件并广播 event.created
func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]

	var event models.Event
	if !decodeBody(w, r, &event) {
		return
	}
	if event.Minute < 0 {
		writeError(w, http.StatusBadRequest, "minute must be >= 0")
		return
	}
	if event.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required")
		return
	}

	created, err := s.store.AddEvent(matchID, event)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.notify(models.BroadcastMessage{
		Type:    models.MessageEventCreated,
		MatchID: matchID,
		Payload: created,
	})
	writeJSON(w, http.StatusCreated, created)
}

// handleSetLineups 整体替换阵容并广播 lineups.updated
func (s *Server) handleSetLineups(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]

	var lineups models.Lineups
	if !decodeBody(w, r, &lineups) {
		return
	}
	if lineups.Home == nil {
		lineups.Home = []models.LineupItem{}
	}
	if lineups.Away == nil {
		lineups.Away = []models.LineupItem{}
	}

	if err := s.store.SetLineups(matchID, lineups); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.notify(models.BroadcastMessage{
		Type:    models.MessageLineupsUpdated,
		MatchID: matchID,
		Payload: lineups,
	})
	writeJSON(w, http.StatusOK, lineups)
}

// handleSetStats 整体替换统计并广播 stats.updated
func (s *Server) handleSetStats(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchId"]

	var stats models.Stats
	if !decodeBody(w, r, &stats) {
		return
	}
	if stats.Players == nil {
		stats.Players = []models.PlayerStat{}
	}

	if err := s.store.SetStats(matchID, stats); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.notify(models.BroadcastMessage{
		Type:    models.MessageStatsUpdated,
		MatchID: matchID,
		Payload: stats,
	})
	writeJSON(w, http.StatusOK, stats)
}

// notify 组合广播路径：先发到跨进程通道，本地订阅者由本进程的
// 订阅循环回送；通道不可用时降级为仅本地广播。
// 广播是写操作的副作用，失败不回滚存储变更
func (s *Server) notify(msg models.BroadcastMessage) {
	if err := s.broadcaster.Publish(msg); err != nil {
		logger.Errorf("[Server] ⚠️ Publish failed (%v), falling back to local broadcast", err)
		s.hub.Broadcast(msg)
	}
}

// decodeBody 解析 JSON 请求体，格式错误时返回 400 并终止处理
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError 错误响应采用 {"detail": ...} 结构，与其余微服务一致
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
