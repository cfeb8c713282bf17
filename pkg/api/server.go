package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tucpd/listening-app/pkg/loop"
	"github.com/tucpd/listening-app/pkg/models"
	"github.com/tucpd/listening-app/pkg/notify"
	"github.com/tucpd/listening-app/pkg/player"
	"github.com/tucpd/listening-app/pkg/queue"
	"github.com/tucpd/listening-app/pkg/storage"
)

// EventState 状态快照的 SSE 事件名
const EventState = "state"

// Transcriber 转录适配层（未配置 OpenAI 时为 nil）
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, locator, language string) (*models.Track, error)
}

// Server 展示层 HTTP 接口
type Server struct {
	engine      *player.Engine
	hub         *notify.Hub
	queue       queue.Queue
	library     storage.Source
	transcriber Transcriber

	heartbeat   time.Duration
	unsubscribe func()
}

// Option 可选依赖
type Option func(*Server)

// WithLibrary 设置转录来源
func WithLibrary(source storage.Source) Option {
	return func(s *Server) { s.library = source }
}

// WithTranscriber 启用转录接口
func WithTranscriber(t Transcriber) Option {
	return func(s *Server) { s.transcriber = t }
}

// WithHeartbeat SSE 心跳间隔
func WithHeartbeat(d time.Duration) Option {
	return func(s *Server) { s.heartbeat = d }
}

// NewServer 创建 HTTP 接口，并把引擎的状态变更转发到 Hub
func NewServer(engine *player.Engine, hub *notify.Hub, q queue.Queue, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		hub:       hub,
		queue:     q,
		heartbeat: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.unsubscribe = engine.Subscribe(func(snap player.Snapshot) {
		hub.Publish(notify.Message{Event: EventState, Data: snap})
	})
	return s
}

// Close 取消对引擎的订阅
func (s *Server) Close() {
	s.unsubscribe()
}

// Register 注册路由
func (s *Server) Register(r gin.IRouter) {
	api := r.Group("/api")
	{
		api.GET("/ping", s.handlePing)
		api.GET("/state", s.handleState)
		api.GET("/stream", s.handleStream)              // SSE：状态快照 + 设备命令
		api.POST("/device/events", s.handleDeviceEvent) // 播放设备上报事件

		api.GET("/tracks", s.handleListTracks)
		api.POST("/tracks", s.handleAddTrack)
		api.GET("/tracks/:id/sentences", s.handleSentences)
		api.GET("/tracks/:id/transcript.txt", s.handleTranscriptText)
		api.GET("/tracks/:id/sentences.vtt", s.handleSentencesVTT)
		api.POST("/tracks/:id/select", s.handleSelectTrack)

		api.POST("/playlist/next", s.handleNext)
		api.POST("/playlist/previous", s.handlePrevious)
		api.PUT("/playlist/mode", s.handleSetMode)

		api.POST("/playback/play", s.handlePlay)
		api.POST("/playback/pause", s.handlePause)
		api.POST("/playback/toggle", s.handleToggle)
		api.POST("/playback/seek", s.handleSeek)
		api.POST("/playback/skip", s.handleSkip)
		api.POST("/playback/rate", s.handleRate)
		api.POST("/playback/word", s.handleSeekToWord)

		api.POST("/loop/a", s.handleSetPointA)
		api.POST("/loop/b", s.handleSetPointB)
		api.DELETE("/loop", s.handleClearLoop)
		api.POST("/loop/sentence", s.handleToggleSentenceLoop)

		if s.library != nil {
			api.GET("/library", s.handleListLibrary)
			api.POST("/library/:id/import", s.handleImport)
		}
		if s.transcriber != nil {
			api.POST("/transcribe", s.handleTranscribe)
		}
	}
}

// Router 创建 gin 引擎并注册路由
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	s.Register(r)
	return r
}

// queueInspector 可查询积压情况的队列（RabbitMQ）
type queueInspector interface {
	QueueInfo() (messages, consumers int, err error)
}

// handlePing 健康检查
func (s *Server) handlePing(c *gin.Context) {
	resp := gin.H{
		"message":     "pong",
		"session_id":  s.engine.SessionID(),
		"subscribers": s.hub.Subscribers(),
	}
	if qi, ok := s.queue.(queueInspector); ok {
		if messages, consumers, err := qi.QueueInfo(); err == nil {
			resp["queue"] = gin.H{"messages": messages, "consumers": consumers}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// handleState 当前状态快照
func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

// handleStream 推送状态快照与设备命令
// 连接建立后先推送一次完整快照，以及当前曲目的加载命令
// 缓冲溢出被 Hub 断开的设备重连后由此重新同步
func (s *Server) handleStream(c *gin.Context) {
	messages, cancel := s.hub.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(EventState, s.engine.Snapshot())
	if cmd, ok := s.engine.CurrentLoad(); ok {
		c.SSEvent(notify.EventCommand, cmd)
	}
	c.Writer.Flush()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	ctx := c.Request.Context()

	c.Stream(func(_ io.Writer) bool {
		select {
		case msg, ok := <-messages:
			if !ok {
				return false
			}
			c.SSEvent(msg.Event, msg.Data)
			return true
		case <-ticker.C:
			c.SSEvent("ping", time.Now().Unix())
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// deviceEventRequest 播放设备上报的事件
type deviceEventRequest struct {
	Type     models.EventType `json:"type" binding:"required"`
	Time     float64          `json:"time"`
	Duration float64          `json:"duration"`
	Seq      uint64           `json:"seq"`
}

// handleDeviceEvent 设备事件入队，由 Worker 顺序交给引擎
func (s *Server) handleDeviceEvent(c *gin.Context) {
	var req deviceEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	switch req.Type {
	case models.EventTick, models.EventLoaded, models.EventEnded:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("未知事件类型: %s", req.Type)})
		return
	}

	ev := &models.PlaybackEvent{
		Type:       req.Type,
		Time:       req.Time,
		Duration:   req.Duration,
		Seq:        req.Seq,
		ReceivedAt: time.Now(),
	}
	if err := s.queue.Enqueue(ev); err != nil {
		log.Printf("⚠️ 设备事件入队失败: %v", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "事件队列不可用"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// respondError 把领域错误映射为 HTTP 状态码
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, player.ErrUnknownTrack), errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, player.ErrNoTrack),
		errors.Is(err, player.ErrEmptyPlaylist),
		errors.Is(err, player.ErrInvalidRate),
		errors.Is(err, player.ErrInvalidMode),
		errors.Is(err, player.ErrInvalidWord),
		errors.Is(err, player.ErrInvalidTrack),
		errors.Is(err, loop.ErrInvalidRange):
		status = http.StatusBadRequest
	default:
		log.Printf("❌ 请求处理失败: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
