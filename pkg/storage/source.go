package storage

import (
	"context"
	"errors"

	"github.com/tucpd/listening-app/pkg/models"
)

// ErrNotFound 转录不存在
var ErrNotFound = errors.New("转录不存在")

// Source 已完成转录的来源（转录服务的产出）
// 引擎只读取，不回写任何播放状态
type Source interface {
	// Get 获取一条转录
	Get(ctx context.Context, id string) (*models.Track, error)

	// List 列出可导入的转录（按创建时间倒序）
	List(ctx context.Context) ([]*models.Track, error)

	// Close 关闭连接
	Close() error
}

// Cache 转录缓存
type Cache interface {
	Get(ctx context.Context, id string) (*models.Track, error)
	Set(ctx context.Context, track *models.Track) error
	Close() error
}
