package playlist

import (
	"math/rand/v2"

	"github.com/tucpd/listening-app/pkg/models"
)

// EndKind 曲目播放结束后的动作类型
type EndKind int

const (
	// EndStop 停止播放，不自动切换
	EndStop EndKind = iota
	// EndRestart 从头重播当前曲目
	EndRestart
	// EndSwitch 切换到 EndAction.Track，加载完成后继续播放
	EndSwitch
)

func (k EndKind) String() string {
	switch k {
	case EndStop:
		return "stop"
	case EndRestart:
		return "restart"
	case EndSwitch:
		return "switch"
	default:
		return "unknown"
	}
}

// EndAction OnTrackEnded 的决策结果
type EndAction struct {
	Kind  EndKind
	Track models.Track
}

// Controller 播放列表与播放模式
// 不是并发安全的，由上层串行调用
type Controller struct {
	tracks    []models.Track
	currentID string
	mode      models.PlaybackMode
	rng       *rand.Rand
}

// Option 构造选项
type Option func(*Controller)

// WithRand 注入随机源（测试用）
func WithRand(r *rand.Rand) Option {
	return func(c *Controller) {
		c.rng = r
	}
}

// NewController 创建播放列表控制器，默认 normal 模式
func NewController(opts ...Option) *Controller {
	c := &Controller{mode: models.ModeNormal}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add 追加曲目；当前没有选中曲目时选中它，返回是否成为当前曲目
func (c *Controller) Add(track models.Track) bool {
	c.tracks = append(c.tracks, track)
	if c.currentID == "" {
		c.currentID = track.ID
		return true
	}
	return false
}

// Len 曲目数量
func (c *Controller) Len() int {
	return len(c.tracks)
}

// Get 按 ID 查找曲目
func (c *Controller) Get(id string) (models.Track, bool) {
	if i := c.indexOf(id); i >= 0 {
		return c.tracks[i], true
	}
	return models.Track{}, false
}

// Current 当前曲目
func (c *Controller) Current() (models.Track, bool) {
	return c.Get(c.currentID)
}

// Select 选中曲目；ID 不存在时返回 false 且不改变状态
func (c *Controller) Select(id string) bool {
	if c.indexOf(id) < 0 {
		return false
	}
	c.currentID = id
	return true
}

// Next 切换到下一首，末尾回绕到第一首；列表为空时返回 false
func (c *Controller) Next() (models.Track, bool) {
	if len(c.tracks) == 0 {
		return models.Track{}, false
	}
	next := (c.indexOf(c.currentID) + 1) % len(c.tracks)
	c.currentID = c.tracks[next].ID
	return c.tracks[next], true
}

// Previous 切换到上一首，开头回绕到最后一首；列表为空时返回 false
func (c *Controller) Previous() (models.Track, bool) {
	if len(c.tracks) == 0 {
		return models.Track{}, false
	}
	prev := c.indexOf(c.currentID) - 1
	if prev < 0 {
		prev = len(c.tracks) - 1
	}
	c.currentID = c.tracks[prev].ID
	return c.tracks[prev], true
}

// PickRandom 在除 excludeID 外的曲目中均匀随机选择一首
// 只有一首曲目时直接返回它，即使它就是 excludeID
func (c *Controller) PickRandom(excludeID string) (models.Track, bool) {
	if len(c.tracks) == 0 {
		return models.Track{}, false
	}

	candidates := make([]models.Track, 0, len(c.tracks))
	for _, t := range c.tracks {
		if t.ID != excludeID {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return c.tracks[0], true
	}
	return candidates[c.intN(len(candidates))], true
}

// SetMode 设置播放模式
func (c *Controller) SetMode(mode models.PlaybackMode) {
	c.mode = mode
}

// Mode 当前播放模式
func (c *Controller) Mode() models.PlaybackMode {
	return c.mode
}

// OnTrackEnded 根据播放模式决定曲目结束后的动作
// repeat-all 与 shuffle 会直接更新当前曲目
func (c *Controller) OnTrackEnded() EndAction {
	current, ok := c.Current()
	if !ok {
		return EndAction{Kind: EndStop}
	}

	switch c.mode {
	case models.ModeRepeatOne:
		return EndAction{Kind: EndRestart, Track: current}

	case models.ModeRepeatAll:
		next, _ := c.Next()
		return EndAction{Kind: EndSwitch, Track: next}

	case models.ModeShuffle:
		pick, _ := c.PickRandom(c.currentID)
		c.currentID = pick.ID
		return EndAction{Kind: EndSwitch, Track: pick}

	default:
		return EndAction{Kind: EndStop, Track: current}
	}
}

// State 返回播放列表快照
func (c *Controller) State() models.PlaylistState {
	summaries := make([]models.TrackSummary, len(c.tracks))
	for i, t := range c.tracks {
		summaries[i] = t.Summary()
	}
	return models.PlaylistState{
		Tracks:         summaries,
		CurrentTrackID: c.currentID,
		Mode:           c.mode,
	}
}

func (c *Controller) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, t := range c.tracks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) intN(n int) int {
	if c.rng != nil {
		return c.rng.IntN(n)
	}
	return rand.IntN(n)
}
