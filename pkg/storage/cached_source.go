package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/tucpd/listening-app/pkg/models"
)

// CachedSource 缓存 + 数据源：读取优先走缓存，未命中查数据源并回写缓存
type CachedSource struct {
	cache  Cache
	source Source
}

// NewCachedSource 创建带缓存的来源
func NewCachedSource(cache Cache, source Source) *CachedSource {
	log.Println("✓ 转录来源已启用缓存")
	return &CachedSource{cache: cache, source: source}
}

// Get 获取转录
func (s *CachedSource) Get(ctx context.Context, id string) (*models.Track, error) {
	// 1. 先查缓存
	track, err := s.cache.Get(ctx, id)
	if err == nil {
		return track, nil
	}
	if !errors.Is(err, ErrNotFound) {
		log.Printf("⚠️ 缓存读取失败: %v", err)
	}

	// 2. 缓存未命中，查数据源
	track, err = s.source.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// 3. 回写缓存；失败不影响返回
	backfillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.cache.Set(backfillCtx, track); err != nil {
		log.Printf("⚠️ 回写缓存失败: %v", err)
	}

	return track, nil
}

// List 列表直接查数据源
func (s *CachedSource) List(ctx context.Context) ([]*models.Track, error) {
	return s.source.List(ctx)
}

// Close 关闭缓存与数据源
func (s *CachedSource) Close() error {
	return errors.Join(s.cache.Close(), s.source.Close())
}
