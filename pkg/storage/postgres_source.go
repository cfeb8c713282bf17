package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/tucpd/listening-app/pkg/models"
)

// PostgresSource 从转录服务的 transcripts 表读取已完成的转录
//
//	CREATE TABLE transcripts (
//	    id          TEXT PRIMARY KEY,
//	    filename    TEXT NOT NULL,
//	    audio_url   TEXT,
//	    words       JSONB NOT NULL DEFAULT '[]',
//	    status      TEXT NOT NULL,
//	    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type PostgresSource struct {
	db    *sql.DB
	limit int
}

// NewPostgresSource 创建 PostgreSQL 来源
func NewPostgresSource(connStr string, limit int) (*PostgresSource, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)

	if limit <= 0 {
		limit = 100
	}
	return &PostgresSource{db: db, limit: limit}, nil
}

const selectTranscript = `
    SELECT id, filename, audio_url, words, created_at
    FROM transcripts
    WHERE status = 'completed'`

// rowScanner 兼容 *sql.Row 与 *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrack(row rowScanner) (*models.Track, error) {
	var track models.Track
	var audioURL sql.NullString
	var wordsJSON []byte

	if err := row.Scan(&track.ID, &track.DisplayName, &audioURL, &wordsJSON, &track.CreatedAt); err != nil {
		return nil, err
	}
	if audioURL.Valid {
		track.SourceLocator = audioURL.String
	}
	if len(wordsJSON) > 0 {
		if err := json.Unmarshal(wordsJSON, &track.Words); err != nil {
			return nil, fmt.Errorf("解析 words 失败 (%s): %w", track.ID, err)
		}
	}
	return &track, nil
}

// Get 获取转录
func (s *PostgresSource) Get(ctx context.Context, id string) (*models.Track, error) {
	row := s.db.QueryRowContext(ctx, selectTranscript+` AND id = $1`, id)

	track, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("查询数据库失败: %w", err)
	}
	return track, nil
}

// List 列出已完成的转录（按创建时间倒序）
func (s *PostgresSource) List(ctx context.Context) ([]*models.Track, error) {
	rows, err := s.db.QueryContext(ctx, selectTranscript+` ORDER BY created_at DESC LIMIT $1`, s.limit)
	if err != nil {
		return nil, fmt.Errorf("查询数据库失败: %w", err)
	}
	defer rows.Close()

	tracks := make([]*models.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			// 单条数据损坏不影响整个列表
			continue
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历结果失败: %w", err)
	}
	return tracks, nil
}

// Close 关闭数据库连接
func (s *PostgresSource) Close() error {
	return s.db.Close()
}
