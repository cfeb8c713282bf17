package transcript

import (
	"strings"

	"github.com/tucpd/listening-app/pkg/models"
)

// Segment 按句末标点（. ! ?）把单词分组为句子
// 最后一个单词总是闭合当前句子；空输入返回空结果
func Segment(words []models.Word) []models.Sentence {
	if len(words) == 0 {
		return nil
	}

	sentences := make([]models.Sentence, 0)
	begin := 0
	for i, w := range words {
		if !endsSentence(w.Text) && i != len(words)-1 {
			continue
		}

		group := make([]models.Word, i-begin+1)
		copy(group, words[begin:i+1])
		sentences = append(sentences, newSentence(group))
		begin = i + 1
	}

	return sentences
}

func endsSentence(text string) bool {
	return strings.HasSuffix(text, ".") ||
		strings.HasSuffix(text, "!") ||
		strings.HasSuffix(text, "?")
}

func newSentence(words []models.Word) models.Sentence {
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}

	return models.Sentence{
		Text:  strings.Join(texts, " "),
		Start: words[0].Start,
		End:   words[len(words)-1].End,
		Words: words,
	}
}
