package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tucpd/listening-app/pkg/models"
)

// MemorySource 内存转录来源
type MemorySource struct {
	tracks map[string]*models.Track
	mu     sync.RWMutex
}

// NewMemorySource 创建内存来源
func NewMemorySource(tracks ...*models.Track) *MemorySource {
	ms := &MemorySource{
		tracks: make(map[string]*models.Track),
	}
	for _, t := range tracks {
		ms.tracks[t.ID] = t
	}
	return ms
}

// Save 保存转录
func (ms *MemorySource) Save(track *models.Track) error {
	if track.ID == "" {
		return fmt.Errorf("转录缺少 ID")
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.tracks[track.ID] = track
	return nil
}

// Get 获取转录
func (ms *MemorySource) Get(_ context.Context, id string) (*models.Track, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	track, exists := ms.tracks[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return track, nil
}

// List 列出所有转录（按创建时间倒序）
func (ms *MemorySource) List(_ context.Context) ([]*models.Track, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	tracks := make([]*models.Track, 0, len(ms.tracks))
	for _, t := range ms.tracks {
		tracks = append(tracks, t)
	}
	sort.Slice(tracks, func(i, j int) bool {
		if tracks[i].CreatedAt.Equal(tracks[j].CreatedAt) {
			return tracks[i].ID < tracks[j].ID
		}
		return tracks[i].CreatedAt.After(tracks[j].CreatedAt)
	})
	return tracks, nil
}

// Close 内存来源无需关闭
func (ms *MemorySource) Close() error {
	return nil
}
