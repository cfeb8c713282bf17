package models

import "fmt"

// PlaybackMode 播放列表级别的循环策略
type PlaybackMode string

const (
	ModeNormal    PlaybackMode = "normal"
	ModeRepeatOne PlaybackMode = "repeat-one"
	ModeRepeatAll PlaybackMode = "repeat-all"
	ModeShuffle   PlaybackMode = "shuffle"
)

// Valid 是否为已知模式
func (m PlaybackMode) Valid() bool {
	switch m {
	case ModeNormal, ModeRepeatOne, ModeRepeatAll, ModeShuffle:
		return true
	}
	return false
}

func (m PlaybackMode) String() string {
	return string(m)
}

// ParsePlaybackMode 解析模式字符串，空字符串视为 normal
func ParsePlaybackMode(s string) (PlaybackMode, error) {
	if s == "" {
		return ModeNormal, nil
	}
	m := PlaybackMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("未知播放模式: %s", s)
	}
	return m, nil
}

// LoopState A-B 循环与句子循环状态
// ABLoopActive 为真时 PointA < PointB 且均已设置；两种循环互斥
type LoopState struct {
	PointA             *float64 `json:"point_a"`
	PointB             *float64 `json:"point_b"`
	ABLoopActive       bool     `json:"ab_loop_active"`
	SentenceLoopActive bool     `json:"sentence_loop_active"`
}

// PlaylistState 播放列表状态；列表为空时 CurrentTrackID 为空
type PlaylistState struct {
	Tracks         []TrackSummary `json:"tracks"`
	CurrentTrackID string         `json:"current_track_id"`
	Mode           PlaybackMode   `json:"mode"`
}

// Position 播放位置；Duration 在元数据加载后才有效
type Position struct {
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
}

// Snapshot 暴露给展示层的完整状态
type Snapshot struct {
	SessionID      string        `json:"session_id"`
	Version        uint64        `json:"version"`
	Position       Position      `json:"position"`
	HighlightIndex int           `json:"highlight_index"`
	Playing        bool          `json:"playing"`
	Rate           float64       `json:"rate"`
	Loop           LoopState     `json:"loop"`
	Playlist       PlaylistState `json:"playlist"`
}
