package models

import (
	"strings"
	"time"
)

// Word 转录中的最小单元（时间单位：秒）
type Word struct {
	Text  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Sentence 由连续单词组成的句子，按句末标点切分
type Sentence struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Words []Word  `json:"words"`
}

// Track 一条已转录的音频
// 创建后不可变；会话结束即丢弃
type Track struct {
	ID            string    `json:"id"`
	DisplayName   string    `json:"display_name"`
	SourceLocator string    `json:"source_locator"`
	Words         []Word    `json:"words"`
	CreatedAt     time.Time `json:"created_at"`
}

// FullText 拼接全部单词文本（用于下载转录文本）
func (t Track) FullText() string {
	texts := make([]string, len(t.Words))
	for i, w := range t.Words {
		texts[i] = w.Text
	}
	return strings.Join(texts, " ")
}

// Summary 播放列表中展示用的精简信息
func (t Track) Summary() TrackSummary {
	return TrackSummary{
		ID:          t.ID,
		DisplayName: t.DisplayName,
		WordCount:   len(t.Words),
	}
}

// TrackSummary 播放列表条目
type TrackSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	WordCount   int    `json:"word_count"`
}
