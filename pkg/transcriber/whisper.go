package transcriber

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
	"github.com/tucpd/listening-app/pkg/models"
)

var wordGranularity = []openai.TranscriptionTimestampGranularity{
	openai.TranscriptionTimestampGranularityWord,
}

// transcriptionAPI go-openai 客户端中用到的部分
type transcriptionAPI interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// WhisperClient 单词级时间戳转录（转录服务适配层，产出 Track）
type WhisperClient struct {
	api        transcriptionAPI
	model      string
	maxRetries int
}

// NewWhisperClient 创建 Whisper 客户端；baseURL 为空时使用 OpenAI 官方地址
func NewWhisperClient(apiKey, baseURL, model string, maxRetries int) *WhisperClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return newWhisperClient(openai.NewClientWithConfig(cfg), model, maxRetries)
}

func newWhisperClient(api transcriptionAPI, model string, maxRetries int) *WhisperClient {
	if model == "" {
		model = openai.Whisper1
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &WhisperClient{api: api, model: model, maxRetries: maxRetries}
}

// Transcribe 转录音频文件并生成 Track
// locator 是播放设备加载音源用的地址，为空时使用文件路径
func (wc *WhisperClient) Transcribe(ctx context.Context, audioPath, locator, language string) (*models.Track, error) {
	resp, err := wc.transcribeWithRetry(ctx, audioPath, language)
	if err != nil {
		return nil, err
	}

	words := make([]models.Word, 0, len(resp.Words))
	for _, w := range resp.Words {
		text := strings.TrimSpace(w.Word)
		if text == "" {
			continue
		}
		words = append(words, models.Word{Text: text, Start: w.Start, End: w.End})
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("转录结果没有单词级时间戳")
	}
	restorePunctuation(words, resp.Text)

	if locator == "" {
		locator = audioPath
	}
	track := &models.Track{
		ID:            uuid.NewString(),
		DisplayName:   filepath.Base(audioPath),
		SourceLocator: locator,
		Words:         words,
		CreatedAt:     time.Now(),
	}
	log.Printf("✓ 转录完成: %s (%d 个单词, 语言: %s)", track.DisplayName, len(words), resp.Language)
	return track, nil
}

func (wc *WhisperClient) transcribe(ctx context.Context, audioPath, language string) (openai.AudioResponse, error) {
	return wc.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:                  wc.model,
		FilePath:               audioPath,
		Language:               language,
		Format:                 openai.AudioResponseFormatVerboseJSON,
		TimestampGranularities: wordGranularity,
	})
}

// transcribeWithRetry 带指数退避的重试
func (wc *WhisperClient) transcribeWithRetry(ctx context.Context, audioPath, language string) (openai.AudioResponse, error) {
	var lastErr error

	for i := 0; i < wc.maxRetries; i++ {
		resp, err := wc.transcribe(ctx, audioPath, language)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return openai.AudioResponse{}, fmt.Errorf("任务被取消: %w", ctx.Err())
		}

		if i < wc.maxRetries-1 {
			waitTime := time.Duration(1<<uint(i)) * time.Second // 1s, 2s, 4s...
			log.Printf("⚠️ 转录失败，%v 后重试 (%d/%d): %v", waitTime, i+1, wc.maxRetries, err)
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return openai.AudioResponse{}, fmt.Errorf("任务被取消: %w", ctx.Err())
			}
		}
	}

	return openai.AudioResponse{}, fmt.Errorf("重试 %d 次后仍然失败: %w", wc.maxRetries, lastErr)
}

// restorePunctuation 单词级时间戳不带标点，从全文中找回对应的原始写法
// 句子切分依赖句末标点
func restorePunctuation(words []models.Word, text string) {
	tokens := strings.Fields(text)
	next := 0
	const lookahead = 5

	for i := range words {
		target := normalize(words[i].Text)
		if target == "" {
			continue
		}
		for j := next; j < len(tokens) && j < next+lookahead; j++ {
			if normalize(tokens[j]) == target {
				words[i].Text = tokens[j]
				next = j + 1
				break
			}
		}
	}
}

func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
