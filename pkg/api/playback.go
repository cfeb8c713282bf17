package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tucpd/listening-app/pkg/models"
	"github.com/tucpd/listening-app/pkg/player"
)

type seekRequest struct {
	Time *float64 `json:"time" binding:"required"`
}

type skipRequest struct {
	Seconds *float64 `json:"seconds" binding:"required"` // 负数为后退
}

type rateRequest struct {
	Rate *float64 `json:"rate" binding:"required"`
}

type wordRequest struct {
	Index *int `json:"index" binding:"required"`
}

type modeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// bind 解析请求体，失败时写入 400
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return false
	}
	return true
}

// reply 命令执行后返回最新快照
func (s *Server) reply(c *gin.Context, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleNext(c *gin.Context) {
	if _, ok := s.engine.Next(); !ok {
		respondError(c, player.ErrEmptyPlaylist)
		return
	}
	s.reply(c, nil)
}

func (s *Server) handlePrevious(c *gin.Context) {
	if _, ok := s.engine.Previous(); !ok {
		respondError(c, player.ErrEmptyPlaylist)
		return
	}
	s.reply(c, nil)
}

func (s *Server) handleSetMode(c *gin.Context) {
	var req modeRequest
	if !bind(c, &req) {
		return
	}
	mode, err := models.ParsePlaybackMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.reply(c, s.engine.SetMode(mode))
}

func (s *Server) handlePlay(c *gin.Context) {
	s.reply(c, s.engine.Play())
}

func (s *Server) handlePause(c *gin.Context) {
	s.engine.Pause()
	s.reply(c, nil)
}

func (s *Server) handleToggle(c *gin.Context) {
	s.reply(c, s.engine.TogglePlayPause())
}

func (s *Server) handleSeek(c *gin.Context) {
	var req seekRequest
	if !bind(c, &req) {
		return
	}
	s.reply(c, s.engine.Seek(*req.Time))
}

func (s *Server) handleSkip(c *gin.Context) {
	var req skipRequest
	if !bind(c, &req) {
		return
	}
	s.reply(c, s.engine.Skip(*req.Seconds))
}

func (s *Server) handleRate(c *gin.Context) {
	var req rateRequest
	if !bind(c, &req) {
		return
	}
	s.reply(c, s.engine.SetRate(*req.Rate))
}

// handleSeekToWord 双击单词跳转
func (s *Server) handleSeekToWord(c *gin.Context) {
	var req wordRequest
	if !bind(c, &req) {
		return
	}
	s.reply(c, s.engine.SeekToWord(*req.Index))
}

func (s *Server) handleSetPointA(c *gin.Context) {
	s.engine.SetPointA()
	s.reply(c, nil)
}

func (s *Server) handleSetPointB(c *gin.Context) {
	s.reply(c, s.engine.SetPointB())
}

func (s *Server) handleClearLoop(c *gin.Context) {
	s.engine.ClearLoop()
	s.reply(c, nil)
}

func (s *Server) handleToggleSentenceLoop(c *gin.Context) {
	s.engine.ToggleSentenceLoop()
	s.reply(c, nil)
}
