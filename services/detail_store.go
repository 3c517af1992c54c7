package services

import (
	"match-detail-service/models"
)

// ErrNotFound 表示记录不存在
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e *ErrNotFound) Error() string {
	return e.Kind + " " + e.ID + " not found"
}

// DetailStore 定义了比赛详情的存储抽象接口。
// UpsertMeta 按字段合并：非空字段覆盖已有记录，缺失字段保留。
// 事件只追加，阵容/统计整体替换。
type DetailStore interface {
	// UpsertMeta 写入或合并比赛元数据，返回合并后的记录
	UpsertMeta(meta models.MatchMeta) (models.MatchMeta, error)
	// GetMeta 返回比赛元数据，不存在时返回 *ErrNotFound
	GetMeta(matchID string) (models.MatchMeta, error)
	// AddEvent 追加事件，id 缺失时由存储生成；允许 meta 尚不存在的比赛
	AddEvent(matchID string, event models.Event) (models.Event, error)
	// ListEvents 按 minute 升序返回事件，同分钟保持写入顺序
	ListEvents(matchID string) ([]models.Event, error)
	// SetLineups 整体替换阵容快照
	SetLineups(matchID string, lineups models.Lineups) error
	// GetLineups 返回阵容快照，不存在时返回空阵容
	GetLineups(matchID string) (models.Lineups, error)
	// SetStats 整体替换统计快照
	SetStats(matchID string, stats models.Stats) error
	// GetStats 返回统计快照，不存在时返回零分统计
	GetStats(matchID string) (models.Stats, error)
}
