package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"match-detail-service/models"
)

// MemoryStore 是 DetailStore 接口的内存实现，用于测试和无数据库的本地运行
type MemoryStore struct {
	meta    map[string]models.MatchMeta
	events  map[string][]models.Event
	lineups map[string]models.Lineups
	stats   map[string]models.Stats
	mu      sync.RWMutex
}

// NewMemoryStore 创建 MemoryStore 实例
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		meta:    make(map[string]models.MatchMeta),
		events:  make(map[string][]models.Event),
		lineups: make(map[string]models.Lineups),
		stats:   make(map[string]models.Stats),
	}
}

// UpsertMeta 实现 DetailStore 接口
func (s *MemoryStore) UpsertMeta(meta models.MatchMeta) (models.MatchMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.meta[meta.ID]; ok {
		meta = existing.Merge(meta)
	} else if meta.Status == "" {
		meta.Status = models.StatusScheduled
	}
	s.meta[meta.ID] = meta
	return meta, nil
}

// GetMeta 实现 DetailStore 接口
func (s *MemoryStore) GetMeta(matchID string) (models.MatchMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := s.meta[matchID]
	if !ok {
		return models.MatchMeta{}, &ErrNotFound{Kind: "match", ID: matchID}
	}
	return meta, nil
}

// AddEvent 实现 DetailStore 接口
func (s *MemoryStore) AddEvent(matchID string, event models.Event) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event.MatchID = matchID
	if event.ID == "" {
		event.ID = NewEventID()
	}
	if event.Meta == nil {
		event.Meta = map[string]string{}
	}
	s.events[matchID] = append(s.events[matchID], event)
	return event, nil
}

// ListEvents 实现 DetailStore 接口
func (s *MemoryStore) ListEvents(matchID string) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]models.Event, len(s.events[matchID]))
	copy(events, s.events[matchID])

	// 稳定排序：同分钟事件保持写入顺序
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Minute < events[j].Minute
	})
	return events, nil
}

// SetLineups 实现 DetailStore 接口
func (s *MemoryStore) SetLineups(matchID string, lineups models.Lineups) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lineups[matchID] = lineups
	return nil
}

// GetLineups 实现 DetailStore 接口
func (s *MemoryStore) GetLineups(matchID string) (models.Lineups, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lineups, ok := s.lineups[matchID]
	if !ok {
		return models.DefaultLineups(), nil
	}

	// 返回副本，调用方（如读取路径的阵容补全）的修改不会写回存储
	out := models.Lineups{
		Home: make([]models.LineupItem, len(lineups.Home)),
		Away: make([]models.LineupItem, len(lineups.Away)),
	}
	copy(out.Home, lineups.Home)
	copy(out.Away, lineups.Away)
	return out, nil
}

// SetStats 实现 DetailStore 接口
func (s *MemoryStore) SetStats(matchID string, stats models.Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stats[matchID] = stats
	return nil
}

// GetStats 实现 DetailStore 接口
func (s *MemoryStore) GetStats(matchID string) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.stats[matchID]
	if !ok {
		return models.DefaultStats(), nil
	}
	return stats, nil
}

// NewEventID 生成服务端事件 ID，纳秒时间戳保证突发写入下的唯一性
func NewEventID() string {
	return fmt.Sprintf("EVT_%d", time.Now().UnixNano())
}
