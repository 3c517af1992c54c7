package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Connect 连接到数据库
func Connect(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 设置连接池
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// Migrate 运行数据库迁移
func Migrate(db *sql.DB) error {
	migrations := []string{
		// 比赛元数据表，每场比赛一条记录
		`CREATE TABLE IF NOT EXISTS match_meta (
			id VARCHAR(100) PRIMARY KEY,
			competition_id VARCHAR(100),
			status VARCHAR(20) NOT NULL DEFAULT 'SCHEDULED',
			minute INTEGER,
			scheduled_at TIMESTAMPTZ,
			venue JSONB,
			sport VARCHAR(50),
			home_team_id VARCHAR(100),
			away_team_id VARCHAR(100),
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// 事件表，只追加；seq 用于同分钟事件的稳定排序
		`CREATE TABLE IF NOT EXISTS match_events (
			seq BIGSERIAL PRIMARY KEY,
			id VARCHAR(100) UNIQUE NOT NULL,
			match_id VARCHAR(100) NOT NULL,
			minute INTEGER NOT NULL,
			type VARCHAR(50) NOT NULL,
			player_id VARCHAR(100),
			team_id VARCHAR(100),
			meta JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_match_events_match_id ON match_events(match_id)`,

		// 阵容快照表，整体替换
		`CREATE TABLE IF NOT EXISTS match_lineups (
			match_id VARCHAR(100) PRIMARY KEY,
			home JSONB NOT NULL DEFAULT '[]',
			away JSONB NOT NULL DEFAULT '[]',
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,

		// 统计快照表，整体替换
		`CREATE TABLE IF NOT EXISTS match_stats (
			match_id VARCHAR(100) PRIMARY KEY,
			home JSONB NOT NULL DEFAULT '{"score":0}',
			away JSONB NOT NULL DEFAULT '{"score":0}',
			players JSONB NOT NULL DEFAULT '[]',
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
