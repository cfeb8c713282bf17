package transcript

import "github.com/tucpd/listening-app/pkg/models"

// None 表示没有单词（或句子）包含当前位置
const None = -1

// Highlight 返回区间 [Start, End]（两端闭合）包含 t 的第一个单词下标
// 时间戳重叠或倒序时不报错，按序列顺序取第一个命中
func Highlight(t float64, words []models.Word) int {
	for i, w := range words {
		if t >= w.Start && t <= w.End {
			return i
		}
	}
	return None
}

// SentenceAt 与 Highlight 相同的包含规则，作用于句子区间
func SentenceAt(t float64, sentences []models.Sentence) int {
	for i, s := range sentences {
		if t >= s.Start && t <= s.End {
			return i
		}
	}
	return None
}

// LastEndedBefore 返回按顺序最后一个 End <= t 的句子下标
func LastEndedBefore(t float64, sentences []models.Sentence) int {
	for i := len(sentences) - 1; i >= 0; i-- {
		if sentences[i].End <= t {
			return i
		}
	}
	return None
}
