package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"match-detail-service/models"
)

// PostgresStore 是 DetailStore 接口的数据库实现，作为部署环境的权威存储
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore 创建 PostgresStore 实例
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// UpsertMeta 实现 DetailStore 接口，COALESCE 实现按字段合并
func (s *PostgresStore) UpsertMeta(meta models.MatchMeta) (models.MatchMeta, error) {
	// nil 切片在 pq 下写入 NULL
	var venueJSON []byte
	if meta.Venue != nil {
		var err error
		if venueJSON, err = json.Marshal(meta.Venue); err != nil {
			return models.MatchMeta{}, fmt.Errorf("failed to marshal venue: %w", err)
		}
	}

	query := `
		INSERT INTO match_meta (id, competition_id, status, minute, scheduled_at, venue, sport, home_team_id, away_team_id, updated_at)
		VALUES ($1, $2, COALESCE(NULLIF($3, ''), 'SCHEDULED'), $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			competition_id = COALESCE(EXCLUDED.competition_id, match_meta.competition_id),
			status         = COALESCE(NULLIF($3, ''), match_meta.status),
			minute         = COALESCE(EXCLUDED.minute, match_meta.minute),
			scheduled_at   = COALESCE(EXCLUDED.scheduled_at, match_meta.scheduled_at),
			venue          = COALESCE(EXCLUDED.venue, match_meta.venue),
			sport          = COALESCE(EXCLUDED.sport, match_meta.sport),
			home_team_id   = COALESCE(EXCLUDED.home_team_id, match_meta.home_team_id),
			away_team_id   = COALESCE(EXCLUDED.away_team_id, match_meta.away_team_id),
			updated_at     = $10
		RETURNING id, competition_id, status, minute, scheduled_at, venue, sport, home_team_id, away_team_id
	`

	row := s.db.QueryRow(query,
		meta.ID, meta.CompetitionID, meta.Status, meta.Minute, meta.ScheduledAt,
		venueJSON, meta.Sport, meta.HomeTeamID, meta.AwayTeamID, time.Now())
	return scanMeta(row)
}

// GetMeta 实现 DetailStore 接口
func (s *PostgresStore) GetMeta(matchID string) (models.MatchMeta, error) {
	query := `
		SELECT id, competition_id, status, minute, scheduled_at, venue, sport, home_team_id, away_team_id
		FROM match_meta WHERE id = $1
	`

	meta, err := scanMeta(s.db.QueryRow(query, matchID))
	if err == sql.ErrNoRows {
		return models.MatchMeta{}, &ErrNotFound{Kind: "match", ID: matchID}
	}
	return meta, err
}

// AddEvent 实现 DetailStore 接口
func (s *PostgresStore) AddEvent(matchID string, event models.Event) (models.Event, error) {
	event.MatchID = matchID
	if event.ID == "" {
		event.ID = NewEventID()
	}
	if event.Meta == nil {
		event.Meta = map[string]string{}
	}

	metaJSON, err := json.Marshal(event.Meta)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to marshal event meta: %w", err)
	}

	query := `
		INSERT INTO match_events (id, match_id, minute, type, player_id, team_id, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := s.db.Exec(query, event.ID, matchID, event.Minute, event.Type, event.PlayerID, event.TeamID, metaJSON); err != nil {
		return models.Event{}, fmt.Errorf("failed to insert event: %w", err)
	}
	return event, nil
}

// ListEvents 实现 DetailStore 接口，seq 保证同分钟事件的写入顺序
func (s *PostgresStore) ListEvents(matchID string) ([]models.Event, error) {
	query := `
		SELECT id, match_id, minute, type, player_id, team_id, meta
		FROM match_events WHERE match_id = $1
		ORDER BY minute ASC, seq ASC
	`

	rows, err := s.db.Query(query, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var ev models.Event
		var metaJSON []byte
		if err := rows.Scan(&ev.ID, &ev.MatchID, &ev.Minute, &ev.Type, &ev.PlayerID, &ev.TeamID, &metaJSON); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := json.Unmarshal(metaJSON, &ev.Meta); err != nil {
			ev.Meta = map[string]string{}
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// SetLineups 实现 DetailStore 接口
func (s *PostgresStore) SetLineups(matchID string, lineups models.Lineups) error {
	homeJSON, err := json.Marshal(lineups.Home)
	if err != nil {
		return fmt.Errorf("failed to marshal home lineup: %w", err)
	}
	awayJSON, err := json.Marshal(lineups.Away)
	if err != nil {
		return fmt.Errorf("failed to marshal away lineup: %w", err)
	}

	query := `
		INSERT INTO match_lineups (match_id, home, away, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_id) DO UPDATE SET
			home = EXCLUDED.home,
			away = EXCLUDED.away,
			updated_at = $4
	`

	_, err = s.db.Exec(query, matchID, homeJSON, awayJSON, time.Now())
	return err
}

// GetLineups 实现 DetailStore 接口
func (s *PostgresStore) GetLineups(matchID string) (models.Lineups, error) {
	var homeJSON, awayJSON []byte
	err := s.db.QueryRow(`SELECT home, away FROM match_lineups WHERE match_id = $1`, matchID).
		Scan(&homeJSON, &awayJSON)
	if err == sql.ErrNoRows {
		return models.DefaultLineups(), nil
	}
	if err != nil {
		return models.Lineups{}, fmt.Errorf("failed to query lineups: %w", err)
	}

	lineups := models.DefaultLineups()
	if err := json.Unmarshal(homeJSON, &lineups.Home); err != nil {
		return models.Lineups{}, fmt.Errorf("failed to unmarshal home lineup: %w", err)
	}
	if err := json.Unmarshal(awayJSON, &lineups.Away); err != nil {
		return models.Lineups{}, fmt.Errorf("failed to unmarshal away lineup: %w", err)
	}
	return lineups, nil
}

// SetStats 实现 DetailStore 接口
func (s *PostgresStore) SetStats(matchID string, stats models.Stats) error {
	homeJSON, err := json.Marshal(stats.Home)
	if err != nil {
		return fmt.Errorf("failed to marshal home stats: %w", err)
	}
	awayJSON, err := json.Marshal(stats.Away)
	if err != nil {
		return fmt.Errorf("failed to marshal away stats: %w", err)
	}
	playersJSON, err := json.Marshal(stats.Players)
	if err != nil {
		return fmt.Errorf("failed to marshal player stats: %w", err)
	}

	query := `
		INSERT INTO match_stats (match_id, home, away, players, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (match_id) DO UPDATE SET
			home = EXCLUDED.home,
			away = EXCLUDED.away,
			players = EXCLUDED.players,
			updated_at = $5
	`

	_, err = s.db.Exec(query, matchID, homeJSON, awayJSON, playersJSON, time.Now())
	return err
}

// GetStats 实现 DetailStore 接口
func (s *PostgresStore) GetStats(matchID string) (models.Stats, error) {
	var homeJSON, awayJSON, playersJSON []byte
	err := s.db.QueryRow(`SELECT home, away, players FROM match_stats WHERE match_id = $1`, matchID).
		Scan(&homeJSON, &awayJSON, &playersJSON)
	if err == sql.ErrNoRows {
		return models.DefaultStats(), nil
	}
	if err != nil {
		return models.Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}

	stats := models.DefaultStats()
	if err := json.Unmarshal(homeJSON, &stats.Home); err != nil {
		return models.Stats{}, fmt.Errorf("failed to unmarshal home stats: %w", err)
	}
	if err := json.Unmarshal(awayJSON, &stats.Away); err != nil {
		return models.Stats{}, fmt.Errorf("failed to unmarshal away stats: %w", err)
	}
	if err := json.Unmarshal(playersJSON, &stats.Players); err != nil {
		return models.Stats{}, fmt.Errorf("failed to unmarshal player stats: %w", err)
	}
	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMeta(row rowScanner) (models.MatchMeta, error) {
	var meta models.MatchMeta
	var venueJSON []byte

	err := row.Scan(&meta.ID, &meta.CompetitionID, &meta.Status, &meta.Minute,
		&meta.ScheduledAt, &venueJSON, &meta.Sport, &meta.HomeTeamID, &meta.AwayTeamID)
	if err != nil {
		return models.MatchMeta{}, err
	}

	if len(venueJSON) > 0 {
		var venue models.Venue
		if err := json.Unmarshal(venueJSON, &venue); err == nil {
			meta.Venue = &venue
		}
	}
	return meta, nil
}
