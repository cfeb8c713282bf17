package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tucpd/listening-app/pkg/models"
	"github.com/tucpd/listening-app/pkg/player"
	"github.com/tucpd/listening-app/pkg/storage"
	"github.com/tucpd/listening-app/pkg/transcript"
)

// trackSaver 可写的转录来源（内存曲目库）
type trackSaver interface {
	Save(track *models.Track) error
}

// handleListTracks 播放列表
func (s *Server) handleListTracks(c *gin.Context) {
	state := s.engine.Snapshot().Playlist
	c.JSON(http.StatusOK, gin.H{
		"tracks":           state.Tracks,
		"current_track_id": state.CurrentTrackID,
		"mode":             state.Mode,
		"total":            len(state.Tracks),
	})
}

// handleAddTrack 接收转录服务交付的 Track 并加入播放列表
func (s *Server) handleAddTrack(c *gin.Context) {
	var track models.Track
	if err := c.ShouldBindJSON(&track); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}
	if len(track.Words) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "转录不能为空"})
		return
	}
	if track.ID == "" {
		track.ID = uuid.NewString()
	}
	if track.CreatedAt.IsZero() {
		track.CreatedAt = time.Now()
	}

	if err := s.engine.AddTrack(track); err != nil {
		respondError(c, err)
		return
	}

	log.Printf("✓ 曲目已加入播放列表: %s (%d 个单词)", track.DisplayName, len(track.Words))
	c.JSON(http.StatusCreated, track.Summary())
}

// handleSentences 曲目的句子划分
func (s *Server) handleSentences(c *gin.Context) {
	track, ok := s.engine.Track(c.Param("id"))
	if !ok {
		respondError(c, fmt.Errorf("%w: %s", player.ErrUnknownTrack, c.Param("id")))
		return
	}

	sentences := transcript.Segment(track.Words)
	c.JSON(http.StatusOK, gin.H{
		"track_id":  track.ID,
		"sentences": sentences,
		"count":     len(sentences),
	})
}

// handleTranscriptText 下载纯文本转录
func (s *Server) handleTranscriptText(c *gin.Context) {
	track, ok := s.engine.Track(c.Param("id"))
	if !ok {
		respondError(c, fmt.Errorf("%w: %s", player.ErrUnknownTrack, c.Param("id")))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportName(track, ".txt")))
	c.String(http.StatusOK, track.FullText())
}

// handleSentencesVTT 以 WebVTT 字幕下载句子
func (s *Server) handleSentencesVTT(c *gin.Context) {
	track, ok := s.engine.Track(c.Param("id"))
	if !ok {
		respondError(c, fmt.Errorf("%w: %s", player.ErrUnknownTrack, c.Param("id")))
		return
	}

	c.Header("Content-Type", "text/vtt; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportName(track, ".vtt")))
	c.Status(http.StatusOK)
	if err := transcript.WriteVTT(c.Writer, transcript.Segment(track.Words)); err != nil {
		log.Printf("⚠️ 写入 VTT 失败: %v", err)
	}
}

// exportName 下载文件名，沿用音频文件名
func exportName(track models.Track, ext string) string {
	name := strings.TrimSuffix(track.DisplayName, filepath.Ext(track.DisplayName))
	if name == "" {
		name = track.ID
	}
	return name + ext
}

// handleSelectTrack 选中曲目
func (s *Server) handleSelectTrack(c *gin.Context) {
	if err := s.engine.SelectTrack(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.engine.Snapshot())
}

// handleListLibrary 列出转录来源中可导入的转录
func (s *Server) handleListLibrary(c *gin.Context) {
	tracks, err := s.library.List(c.Request.Context())
	if err != nil {
		log.Printf("❌ 读取转录列表失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取转录列表失败"})
		return
	}

	items := make([]gin.H, 0, len(tracks))
	for _, t := range tracks {
		_, inPlaylist := s.engine.Track(t.ID)
		items = append(items, gin.H{
			"id":          t.ID,
			"name":        t.DisplayName,
			"word_count":  len(t.Words),
			"created_at":  t.CreatedAt,
			"in_playlist": inPlaylist,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"tracks": items,
		"total":  len(items),
	})
}

// handleImport 把来源中的转录加入播放列表；已存在时直接返回
func (s *Server) handleImport(c *gin.Context) {
	id := c.Param("id")
	if track, ok := s.engine.Track(id); ok {
		c.JSON(http.StatusOK, track.Summary())
		return
	}

	track, err := s.library.Get(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("❌ 读取转录失败 %s: %v", id, err)
		}
		respondError(c, err)
		return
	}

	if err := s.engine.AddTrack(*track); err != nil {
		respondError(c, err)
		return
	}

	log.Printf("✓ 已导入转录: %s", track.DisplayName)
	c.JSON(http.StatusCreated, track.Summary())
}

// transcribeRequest 转录服务端已有的音频文件
type transcribeRequest struct {
	Path     string `json:"path" binding:"required"`
	Locator  string `json:"locator"`  // 设备加载音频的地址
	Language string `json:"language"` // 如 "en"，为空时自动识别
}

// handleTranscribe 调用转录适配层生成 Track 并加入播放列表
func (s *Server) handleTranscribe(c *gin.Context) {
	var req transcribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求参数错误: " + err.Error()})
		return
	}

	log.Printf("开始转录: %s", req.Path)
	track, err := s.transcriber.Transcribe(c.Request.Context(), req.Path, req.Locator, req.Language)
	if err != nil {
		log.Printf("❌ 转录失败: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("转录失败: %v", err)})
		return
	}

	if saver, ok := s.library.(trackSaver); ok {
		if err := saver.Save(track); err != nil {
			log.Printf("⚠️ 保存转录失败: %v", err)
		}
	}

	if err := s.engine.AddTrack(*track); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, track.Summary())
}
