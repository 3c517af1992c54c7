package services

import (
	"match-detail-service/logger"
	"match-detail-service/models"
	"match-detail-service/upstream"
)

// Aggregator 组装比赛详情视图：本地存储 + 上游服务数据。
// 任何单个上游请求失败都降级为空值，不会导致整体读取失败。
type Aggregator struct {
	store        DetailStore
	matches      *upstream.Client
	teams        *upstream.Client
	competitions *upstream.Client
	players      *upstream.Client
}

// NewAggregator 创建 Aggregator 实例，未配置的上游客户端传 nil
func NewAggregator(store DetailStore, matches, teams, competitions, players *upstream.Client) *Aggregator {
	return &Aggregator{
		store:        store,
		matches:      matches,
		teams:        teams,
		competitions: competitions,
		players:      players,
	}
}

// GetDetail 组装完整的比赛详情视图
func (a *Aggregator) GetDetail(matchID string) (models.MatchDetail, error) {
	// 1. 本地元数据作为兜底基线
	meta, err := a.store.GetMeta(matchID)
	if err != nil {
		if _, ok := err.(*ErrNotFound); !ok {
			return models.MatchDetail{}, err
		}
		meta = models.MatchMeta{ID: matchID, Status: models.StatusScheduled}
	}

	// 2. 尝试获取权威元数据，失败时保留基线
	if a.matches != nil {
		if fetched, err := a.matches.FetchMatch(matchID); err != nil {
			logger.Printf("[Aggregator] ⚠️ Match fetch degraded for %s: %v", matchID, err)
		} else if fetched.ID != "" {
			meta = fetched
		}
	}

	detail := models.MatchDetail{Match: meta}

	// 3. 球队信息，单边失败不影响另一边
	if a.teams != nil && meta.HomeTeamID != nil {
		if team, err := a.teams.FetchTeam(*meta.HomeTeamID); err != nil {
			logger.Printf("[Aggregator] ⚠️ Home team fetch degraded for %s: %v", matchID, err)
		} else {
			detail.HomeTeam = team
		}
	}
	if a.teams != nil && meta.AwayTeamID != nil {
		if team, err := a.teams.FetchTeam(*meta.AwayTeamID); err != nil {
			logger.Printf("[Aggregator] ⚠️ Away team fetch degraded for %s: %v", matchID, err)
		} else {
			detail.AwayTeam = team
		}
	}

	// 4. 赛事信息
	if a.competitions != nil && meta.CompetitionID != nil {
		if competition, err := a.competitions.FetchCompetition(*meta.CompetitionID); err != nil {
			logger.Printf("[Aggregator] ⚠️ Competition fetch degraded for %s: %v", matchID, err)
		} else {
			detail.Competition = competition
		}
	}

	// 5. 本地事件/阵容/统计
	if detail.Events, err = a.store.ListEvents(matchID); err != nil {
		return models.MatchDetail{}, err
	}
	if detail.Lineups, err = a.store.GetLineups(matchID); err != nil {
		return models.MatchDetail{}, err
	}
	if detail.Stats, err = a.store.GetStats(matchID); err != nil {
		return models.MatchDetail{}, err
	}

	// 6. 阵容补全球员姓名
	a.enrichLineups(&detail.Lineups)

	// 没有任何途径得到比赛身份时才算失败
	if detail.Match.ID == "" {
		return models.MatchDetail{}, &ErrNotFound{Kind: "match", ID: matchID}
	}
	return detail, nil
}

// enrichLineups 从 players 服务补全缺失的球员姓名，失败时跳过
func (a *Aggregator) enrichLineups(lineups *models.Lineups) {
	if a.players == nil {
		return
	}
	for _, side := range [][]models.LineupItem{lineups.Home, lineups.Away} {
		for i := range side {
			if side[i].Name != nil {
				continue
			}
			player, err := a.players.FetchPlayer(side[i].PlayerID)
			if err != nil {
				logger.Printf("[Aggregator] ⚠️ Player fetch degraded for %s: %v", side[i].PlayerID, err)
				continue
			}
			side[i].Name = player.Name
			if side[i].Position == nil {
				side[i].Position = player.Position
			}
		}
	}
}
