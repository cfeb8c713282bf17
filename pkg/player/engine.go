package player

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/google/uuid"
	"github.com/tucpd/listening-app/pkg/loop"
	"github.com/tucpd/listening-app/pkg/models"
	"github.com/tucpd/listening-app/pkg/playlist"
	"github.com/tucpd/listening-app/pkg/transcript"
)

// Snapshot 是 models.Snapshot 的别名，方便调用方只依赖 player 包
type Snapshot = models.Snapshot

var (
	ErrUnknownTrack  = errors.New("player: 曲目不存在")
	ErrNoTrack       = errors.New("player: 没有选中的曲目")
	ErrEmptyPlaylist = errors.New("player: 播放列表为空")
	ErrInvalidRate   = errors.New("player: 播放速度超出范围")
	ErrInvalidMode   = errors.New("player: 未知播放模式")
	ErrInvalidWord   = errors.New("player: 单词下标越界")
	ErrInvalidTrack  = errors.New("player: 曲目数据无效")
)

// Config 引擎参数
type Config struct {
	SentenceTolerance float64 // 句子循环回跳窗口（秒）
	NotifyMinDelta    float64 // 位置变化超过该值才推送 tick 通知（秒）
	DefaultRate       float64
	MinRate           float64
	MaxRate           float64
}

// DefaultConfig 默认参数
func DefaultConfig() Config {
	return Config{
		SentenceTolerance: loop.DefaultTolerance,
		NotifyMinDelta:    0.1,
		DefaultRate:       1.0,
		MinRate:           0.5,
		MaxRate:           1.5,
	}
}

// Engine 播放同步引擎
// 所有状态由一把互斥锁串行化；设备命令在锁内按顺序下发，订阅通知在锁外按转换顺序送达
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	sessionID string
	facade    Facade
	loop      *loop.Controller
	playlist  *playlist.Controller

	words     []models.Word
	sentences []models.Sentence
	position  models.Position
	highlight int
	playing   bool
	rate      float64

	switchSeq     uint64 // 每次切换曲目递增
	loaded        bool   // 当前 switchSeq 对应的元数据是否已加载
	pendingResume uint64 // 非 0 表示等待该 seq 的 loaded 事件后继续播放

	version      uint64
	lastNotified float64

	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	delivered  uint64 // 已通知到订阅者的最新 version

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObsID int
}

// NewEngine 创建引擎
func NewEngine(facade Facade, cfg Config, opts ...playlist.Option) *Engine {
	def := DefaultConfig()
	if cfg.SentenceTolerance <= 0 {
		cfg.SentenceTolerance = def.SentenceTolerance
	}
	if cfg.NotifyMinDelta < 0 {
		cfg.NotifyMinDelta = def.NotifyMinDelta
	}
	if cfg.MinRate <= 0 {
		cfg.MinRate = def.MinRate
	}
	if cfg.MaxRate < cfg.MinRate {
		cfg.MaxRate = def.MaxRate
	}
	if cfg.DefaultRate < cfg.MinRate || cfg.DefaultRate > cfg.MaxRate {
		cfg.DefaultRate = def.DefaultRate
	}
	if facade == nil {
		facade = NopFacade{}
	}

	e := &Engine{
		cfg:       cfg,
		sessionID: uuid.NewString(),
		facade:    facade,
		loop:      loop.NewController(cfg.SentenceTolerance),
		playlist:  playlist.NewController(opts...),
		highlight: transcript.None,
		rate:      cfg.DefaultRate,
		observers: make(map[int]Observer),
	}
	e.notifyCond = sync.NewCond(&e.notifyMu)
	return e
}

// SessionID 会话标识
func (e *Engine) SessionID() string {
	return e.sessionID
}

// Subscribe 注册状态变更订阅者，返回取消函数
func (e *Engine) Subscribe(obs Observer) func() {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()

	id := e.nextObsID
	e.nextObsID++
	e.observers[id] = obs

	return func() {
		e.obsMu.Lock()
		defer e.obsMu.Unlock()
		delete(e.observers, id)
	}
}

// Snapshot 当前状态快照
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Dispatch 处理一条设备事件；每个事件完整处理后才处理下一个
func (e *Engine) Dispatch(ev models.PlaybackEvent) {
	e.update(func() (bool, error) {
		switch ev.Type {
		case models.EventTick:
			return e.onTickLocked(ev.Time), nil
		case models.EventLoaded:
			return e.onLoadedLocked(ev.Seq, ev.Duration), nil
		case models.EventEnded:
			return e.onEndedLocked(), nil
		default:
			log.Printf("⚠️ 忽略未知设备事件: %q", ev.Type)
			return false, nil
		}
	})
}

func (e *Engine) onTickLocked(t float64) bool {
	// 切换后元数据加载前的位置无效（可能来自上一首曲目）
	if !e.loaded || math.IsNaN(t) || math.IsInf(t, 0) {
		return false
	}

	e.position.CurrentTime = t
	prevHighlight := e.highlight
	e.highlight = transcript.Highlight(t, e.words)

	seekTo, seek := e.loop.Evaluate(t, e.sentences)
	if seek {
		e.facade.Seek(seekTo)
	}

	if seek || e.highlight != prevHighlight || math.Abs(t-e.lastNotified) > e.cfg.NotifyMinDelta {
		e.lastNotified = t
		return true
	}
	return false
}

func (e *Engine) onLoadedLocked(seq uint64, duration float64) bool {
	// 被后续切换取代的加载结果直接丢弃
	if seq != e.switchSeq {
		return false
	}

	e.loaded = true
	e.position.Duration = duration
	if e.rate != 1.0 {
		e.facade.SetRate(e.rate)
	}

	if e.pendingResume == seq {
		e.pendingResume = 0
		e.playing = true
		e.facade.Play()
	}
	return true
}

func (e *Engine) onEndedLocked() bool {
	// 切换后新曲目加载前收到的 ended 属于被取代的曲目
	if !e.loaded {
		return false
	}
	action := e.playlist.OnTrackEnded()

	switch action.Kind {
	case playlist.EndRestart:
		e.position.CurrentTime = 0
		e.highlight = transcript.None
		e.lastNotified = 0
		e.facade.Seek(0)
		e.facade.Play()
		e.playing = true

	case playlist.EndSwitch:
		log.Printf("⏭️  曲目结束，切换到: %s (%s)", action.Track.DisplayName, e.playlist.Mode())
		e.switchToLocked(action.Track, true)

	default:
		e.playing = false
		e.pendingResume = 0
	}
	return true
}

// switchToLocked 切换当前曲目：重置位置、高亮与循环状态，并通知设备加载
func (e *Engine) switchToLocked(track models.Track, resume bool) {
	e.switchSeq++
	e.loaded = false
	e.position = models.Position{}
	e.highlight = transcript.None
	e.lastNotified = 0
	e.loop.Reset()
	e.words = track.Words
	e.sentences = transcript.Segment(track.Words)

	e.pendingResume = 0
	if resume {
		e.pendingResume = e.switchSeq
	}
	e.facade.Load(track.SourceLocator, e.switchSeq)
}

// AddTrack 加入播放列表；第一首曲目会自动成为当前曲目
func (e *Engine) AddTrack(track models.Track) error {
	if track.ID == "" {
		return fmt.Errorf("%w: 缺少 ID", ErrInvalidTrack)
	}
	return e.update(func() (bool, error) {
		if _, exists := e.playlist.Get(track.ID); exists {
			return false, fmt.Errorf("%w: 重复的 ID %s", ErrInvalidTrack, track.ID)
		}
		if e.playlist.Add(track) {
			e.switchToLocked(track, false)
		}
		return true, nil
	})
}

// Track 按 ID 获取曲目
func (e *Engine) Track(id string) (models.Track, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playlist.Get(id)
}

// CurrentTrack 当前曲目
func (e *Engine) CurrentTrack() (models.Track, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.playlist.Current()
}

// SelectTrack 选中曲目；不改变播放/暂停状态
func (e *Engine) SelectTrack(id string) error {
	return e.update(func() (bool, error) {
		if !e.playlist.Select(id) {
			return false, fmt.Errorf("%w: %s", ErrUnknownTrack, id)
		}
		track, _ := e.playlist.Current()
		e.switchToLocked(track, e.playing)
		return true, nil
	})
}

// Next 切换到下一首；播放列表为空时返回 false
func (e *Engine) Next() (models.Track, bool) {
	return e.step(e.playlist.Next)
}

// Previous 切换到上一首；播放列表为空时返回 false
func (e *Engine) Previous() (models.Track, bool) {
	return e.step(e.playlist.Previous)
}

func (e *Engine) step(move func() (models.Track, bool)) (models.Track, bool) {
	var track models.Track
	var ok bool
	e.update(func() (bool, error) {
		track, ok = move()
		if !ok {
			return false, nil
		}
		e.switchToLocked(track, e.playing)
		return true, nil
	})
	return track, ok
}

// SetMode 设置播放模式
func (e *Engine) SetMode(mode models.PlaybackMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidMode, mode)
	}
	return e.update(func() (bool, error) {
		if e.playlist.Mode() == mode {
			return false, nil
		}
		e.playlist.SetMode(mode)
		return true, nil
	})
}

// Play 开始播放；元数据尚未加载时推迟到 loaded 事件
func (e *Engine) Play() error {
	return e.update(func() (bool, error) {
		return e.playLocked()
	})
}

func (e *Engine) playLocked() (bool, error) {
	if _, ok := e.playlist.Current(); !ok {
		return false, ErrNoTrack
	}
	e.playing = true
	if !e.loaded {
		e.pendingResume = e.switchSeq
		return true, nil
	}
	e.facade.Play()
	return true, nil
}

// Pause 暂停，同时取消等待中的自动继续
func (e *Engine) Pause() {
	e.update(func() (bool, error) {
		e.pauseLocked()
		return true, nil
	})
}

func (e *Engine) pauseLocked() {
	e.playing = false
	e.pendingResume = 0
	e.facade.Pause()
}

// TogglePlayPause 切换播放/暂停
func (e *Engine) TogglePlayPause() error {
	return e.update(func() (bool, error) {
		if e.playing {
			e.pauseLocked()
			return true, nil
		}
		return e.playLocked()
	})
}

// Seek 跳转到指定位置（限制在 [0, duration]）
// 位置本身由下一个 tick 事件更新
func (e *Engine) Seek(seconds float64) error {
	return e.update(func() (bool, error) {
		if _, ok := e.playlist.Current(); !ok {
			return false, ErrNoTrack
		}
		e.facade.Seek(e.clampLocked(seconds))
		return false, nil
	})
}

// Skip 相对当前位置前进或后退
func (e *Engine) Skip(seconds float64) error {
	return e.update(func() (bool, error) {
		if _, ok := e.playlist.Current(); !ok {
			return false, ErrNoTrack
		}
		e.facade.Seek(e.clampLocked(e.position.CurrentTime + seconds))
		return false, nil
	})
}

// SeekToWord 跳转到指定单词的开始位置
func (e *Engine) SeekToWord(index int) error {
	return e.update(func() (bool, error) {
		if index < 0 || index >= len(e.words) {
			return false, fmt.Errorf("%w: %d", ErrInvalidWord, index)
		}
		e.facade.Seek(e.clampLocked(e.words[index].Start))
		return false, nil
	})
}

func (e *Engine) clampLocked(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if e.position.Duration > 0 && t > e.position.Duration {
		return e.position.Duration
	}
	return t
}

// SetRate 设置播放速度
func (e *Engine) SetRate(rate float64) error {
	if math.IsNaN(rate) || rate < e.cfg.MinRate || rate > e.cfg.MaxRate {
		return fmt.Errorf("%w: %.2f (允许 %.2f - %.2f)", ErrInvalidRate, rate, e.cfg.MinRate, e.cfg.MaxRate)
	}
	return e.update(func() (bool, error) {
		e.rate = rate
		e.facade.SetRate(rate)
		return true, nil
	})
}

// SetPointA 以当前位置为 A 点
func (e *Engine) SetPointA() {
	e.update(func() (bool, error) {
		e.loop.SetPointA(e.position.CurrentTime)
		return true, nil
	})
}

// SetPointB 以当前位置为 B 点并立即跳回 A 点
// B 不晚于 A 时返回 loop.ErrInvalidRange，状态不变且不下发命令
func (e *Engine) SetPointB() error {
	return e.update(func() (bool, error) {
		seekTo, err := e.loop.SetPointB(e.position.CurrentTime)
		if err != nil {
			return false, err
		}
		e.facade.Seek(seekTo)
		return true, nil
	})
}

// ClearLoop 清除 A-B 循环
func (e *Engine) ClearLoop() {
	e.update(func() (bool, error) {
		e.loop.ClearLoop()
		return true, nil
	})
}

// ToggleSentenceLoop 切换句子循环，返回切换后的状态
func (e *Engine) ToggleSentenceLoop() bool {
	var on bool
	e.update(func() (bool, error) {
		on = e.loop.ToggleSentenceLoop()
		return true, nil
	})
	return on
}

// CurrentLoad 当前曲目的加载命令（带当前切换序号），新连接的播放设备据此同步
func (e *Engine) CurrentLoad() (models.Command, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	track, ok := e.playlist.Current()
	if !ok {
		return models.Command{}, false
	}
	return models.Command{Name: models.CmdLoad, Locator: track.SourceLocator, Seq: e.switchSeq}, true
}

// CurrentSentences 当前曲目的句子划分
func (e *Engine) CurrentSentences() []models.Sentence {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.Sentence, len(e.sentences))
	copy(out, e.sentences)
	return out
}

// update 在锁内执行一次状态转换；状态变化时按转换顺序通知订阅者
func (e *Engine) update(fn func() (bool, error)) error {
	e.mu.Lock()
	changed, err := fn()
	if err != nil || !changed {
		e.mu.Unlock()
		return err
	}

	e.version++
	snap := e.snapshotLocked()
	e.mu.Unlock()

	// 按 version 顺序通知：等前一个版本送达后再送达本版本
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	for e.delivered != snap.Version-1 {
		e.notifyCond.Wait()
	}

	for _, obs := range e.observerList() {
		obs(snap)
	}

	e.delivered = snap.Version
	e.notifyCond.Broadcast()
	return nil
}

func (e *Engine) observerList() []Observer {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()

	list := make([]Observer, 0, len(e.observers))
	for _, obs := range e.observers {
		list = append(list, obs)
	}
	return list
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		SessionID:      e.sessionID,
		Version:        e.version,
		Position:       e.position,
		HighlightIndex: e.highlight,
		Playing:        e.playing,
		Rate:           e.rate,
		Loop:           e.loop.State(),
		Playlist:       e.playlist.State(),
	}
}
