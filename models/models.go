package models

import (
	"time"
)

// 比赛状态
const (
	StatusScheduled = "SCHEDULED"
	StatusLive      = "LIVE"
	StatusFinished  = "FINISHED"
)

// 广播消息类型
const (
	MessageMatchUpdated   = "match.updated"
	MessageEventCreated   = "event.created"
	MessageLineupsUpdated = "lineups.updated"
	MessageStatsUpdated   = "stats.updated"
	MessageSnapshot       = "snapshot"
	MessageConnected      = "connected"
)

// Venue 比赛场地
type Venue struct {
	Name string  `json:"name"`
	City *string `json:"city,omitempty"`
}

// MatchMeta 比赛元数据，按 id 唯一
type MatchMeta struct {
	ID            string     `json:"id"`
	CompetitionID *string    `json:"competitionId,omitempty"`
	Status        string     `json:"status"`
	Minute        *int       `json:"minute,omitempty"`
	ScheduledAt   *time.Time `json:"scheduledAt,omitempty"`
	Venue         *Venue     `json:"venue,omitempty"`
	Sport         *string    `json:"sport,omitempty"`
	HomeTeamID    *string    `json:"homeTeamId,omitempty"`
	AwayTeamID    *string    `json:"awayTeamId,omitempty"`
}

// Merge 按字段合并：非空字段覆盖，缺失字段保留
func (m MatchMeta) Merge(in MatchMeta) MatchMeta {
	out := m
	if in.Status != "" {
		out.Status = in.Status
	}
	if in.CompetitionID != nil {
		out.CompetitionID = in.CompetitionID
	}
	if in.Minute != nil {
		out.Minute = in.Minute
	}
	if in.ScheduledAt != nil {
		out.ScheduledAt = in.ScheduledAt
	}
	if in.Venue != nil {
		out.Venue = in.Venue
	}
	if in.Sport != nil {
		out.Sport = in.Sport
	}
	if in.HomeTeamID != nil {
		out.HomeTeamID = in.HomeTeamID
	}
	if in.AwayTeamID != nil {
		out.AwayTeamID = in.AwayTeamID
	}
	return out
}

// TeamInfo 球队信息（由 teams 服务提供）
type TeamInfo struct {
	ID         string   `json:"id"`
	Name       *string  `json:"name,omitempty"`
	Colors     []string `json:"colors,omitempty"`
	LogoURL    *string  `json:"logoUrl,omitempty"`
	University *string  `json:"university,omitempty"`
}

// Event 比赛事件，只追加，不修改
type Event struct {
	ID       string            `json:"id"`
	MatchID  string            `json:"matchId"`
	Minute   int               `json:"minute"`
	Type     string            `json:"type"`
	PlayerID *string           `json:"playerId,omitempty"`
	TeamID   *string           `json:"teamId,omitempty"`
	Meta     map[string]string `json:"meta"`
}

// LineupItem 阵容条目
type LineupItem struct {
	PlayerID string  `json:"playerId"`
	Name     *string `json:"name,omitempty"`
	Position *string `json:"position,omitempty"`
	Number   *int    `json:"number,omitempty"`
}

// Lineups 比赛阵容快照，整体替换
type Lineups struct {
	Home []LineupItem `json:"home"`
	Away []LineupItem `json:"away"`
}

// DefaultLineups 返回空阵容
func DefaultLineups() Lineups {
	return Lineups{Home: []LineupItem{}, Away: []LineupItem{}}
}

// TeamStats 单队统计
type TeamStats struct {
	Score      int  `json:"score"`
	Shots      *int `json:"shots,omitempty"`
	Fouls      *int `json:"fouls,omitempty"`
	Possession *int `json:"possession,omitempty"`
}

// PlayerStat 球员统计
type PlayerStat struct {
	PlayerID    string `json:"playerId"`
	Minutes     *int   `json:"minutes,omitempty"`
	Points      *int   `json:"points,omitempty"`
	Goals       *int   `json:"goals,omitempty"`
	CardsYellow *int   `json:"cardsYellow,omitempty"`
	CardsRed    *int   `json:"cardsRed,omitempty"`
}

// Stats 比赛统计快照，整体替换
type Stats struct {
	Home    TeamStats    `json:"home"`
	Away    TeamStats    `json:"away"`
	Players []PlayerStat `json:"players"`
}

// DefaultStats 返回零分统计
func DefaultStats() Stats {
	return Stats{Home: TeamStats{Score: 0}, Away: TeamStats{Score: 0}, Players: []PlayerStat{}}
}

// MatchDetail 聚合视图，每次读取时组装，不落库
type MatchDetail struct {
	Match       MatchMeta              `json:"match"`
	HomeTeam    *TeamInfo              `json:"homeTeam"`
	AwayTeam    *TeamInfo              `json:"awayTeam"`
	Competition map[string]interface{} `json:"competition"`
	Events      []Event                `json:"events"`
	Lineups     Lineups                `json:"lineups"`
	Stats       Stats                  `json:"stats"`
}

// BroadcastMessage 实时广播消息，socket/SSE/跨进程通道共用同一编码
type BroadcastMessage struct {
	Type    string      `json:"type"`
	MatchID string      `json:"matchId"`
	Payload interface{} `json:"payload"`
}
