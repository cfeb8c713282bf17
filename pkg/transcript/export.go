package transcript

import (
	"fmt"
	"io"
	"strings"

	"github.com/tucpd/listening-app/pkg/models"
)

// WriteVTT 把句子写成 WebVTT 字幕（用于 HTML5 audio 的 text track）
func WriteVTT(w io.Writer, sentences []models.Sentence) error {
	var builder strings.Builder

	// VTT 文件必须以 "WEBVTT" 开头
	builder.WriteString("WEBVTT\n\n")

	cueIndex := 1
	for _, s := range sentences {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}

		builder.WriteString(fmt.Sprintf("%d\n", cueIndex))
		builder.WriteString(fmt.Sprintf("%s --> %s\n", formatVTTTime(s.Start), formatVTTTime(s.End)))
		builder.WriteString(fmt.Sprintf("%s\n\n", text))
		cueIndex++
	}

	if _, err := io.WriteString(w, builder.String()); err != nil {
		return fmt.Errorf("写入 VTT 失败: %w", err)
	}
	return nil
}

// formatVTTTime 将秒数格式化为 VTT 时间格式
// 例如: 65.5 -> 00:01:05.500
func formatVTTTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(seconds*1000 + 0.5)
	hours := totalMillis / 3600000
	minutes := (totalMillis % 3600000) / 60000
	secs := (totalMillis % 60000) / 1000
	millis := totalMillis % 1000

	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, secs, millis)
}
