package storage

import (
	"time"

	"github.com/tucpd/listening-app/pkg/models"
)

// DemoTrackID 演示转录的固定 ID
const DemoTrackID = "demo-listening-practice"

// DemoTrack 演示用转录（无需转录服务即可体验高亮与循环）
func DemoTrack(audioURL string) *models.Track {
	return &models.Track{
		ID:            DemoTrackID,
		DisplayName:   "test_audio.mp3",
		SourceLocator: audioURL,
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Words: []models.Word{
			{Text: "Hello", Start: 0.0, End: 0.5},
			{Text: "and", Start: 0.5, End: 0.7},
			{Text: "welcome", Start: 0.7, End: 1.2},
			{Text: "to", Start: 1.2, End: 1.4},
			{Text: "this", Start: 1.4, End: 1.7},
			{Text: "English", Start: 1.7, End: 2.2},
			{Text: "listening", Start: 2.2, End: 2.8},
			{Text: "practice.", Start: 2.8, End: 3.5},
			{Text: "Today", Start: 3.8, End: 4.2},
			{Text: "we", Start: 4.2, End: 4.4},
			{Text: "will", Start: 4.4, End: 4.7},
			{Text: "learn", Start: 4.7, End: 5.1},
			{Text: "about", Start: 5.1, End: 5.4},
			{Text: "pronunciation.", Start: 5.4, End: 6.2},
		},
	}
}
