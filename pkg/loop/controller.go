package loop

import (
	"errors"

	"github.com/tucpd/listening-app/pkg/models"
	"github.com/tucpd/listening-app/pkg/transcript"
)

// DefaultTolerance 句子循环的回跳窗口（秒）
// 吸收采样抖动与句尾静音；可通过配置调整
const DefaultTolerance = 1.0

// ErrInvalidRange B 点不在 A 点之后
var ErrInvalidRange = errors.New("loop: B 点必须晚于 A 点")

// Controller A-B 循环与句子循环状态机
// 不是并发安全的，由上层串行调用
type Controller struct {
	pointA       *float64
	pointB       *float64
	abActive     bool
	sentenceLoop bool

	// Tolerance 句子结束后多长时间内仍回跳到句首
	Tolerance float64
}

// NewController 创建循环控制器
func NewController(tolerance float64) *Controller {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Controller{Tolerance: tolerance}
}

// SetPointA 设置 A 点
// 已有 B 点且 now < B 时自动开启 A-B 循环；否则丢弃失效的 B 点
func (c *Controller) SetPointA(now float64) {
	c.pointA = floatPtr(now)

	if c.pointB == nil {
		return
	}
	if now < *c.pointB {
		c.abActive = true
		c.sentenceLoop = false
		return
	}
	c.pointB = nil
	c.abActive = false
}

// SetPointB 设置 B 点并立即返回需要跳回的 A 点
// 没有 A 点或 now <= A 时返回 ErrInvalidRange，状态不变
func (c *Controller) SetPointB(now float64) (float64, error) {
	if c.pointA == nil || now <= *c.pointA {
		return 0, ErrInvalidRange
	}

	c.pointB = floatPtr(now)
	c.abActive = true
	c.sentenceLoop = false
	return *c.pointA, nil
}

// ClearLoop 清除 A-B 循环，不影响句子循环
func (c *Controller) ClearLoop() {
	c.pointA = nil
	c.pointB = nil
	c.abActive = false
}

// ToggleSentenceLoop 切换句子循环，返回切换后的状态
// 开启时会关闭 A-B 循环并清除 A/B 点
func (c *Controller) ToggleSentenceLoop() bool {
	c.sentenceLoop = !c.sentenceLoop
	if c.sentenceLoop {
		c.ClearLoop()
	}
	return c.sentenceLoop
}

// Reset 切换曲目时完全重置
func (c *Controller) Reset() {
	c.pointA = nil
	c.pointB = nil
	c.abActive = false
	c.sentenceLoop = false
}

// Evaluate 每个位置采样调用一次，返回需要 seek 的目标位置
// 每次最多产生一次 seek
func (c *Controller) Evaluate(t float64, sentences []models.Sentence) (float64, bool) {
	if c.abActive {
		if t >= *c.pointB || t < *c.pointA {
			return *c.pointA, true
		}
		return 0, false
	}

	if !c.sentenceLoop || len(sentences) == 0 {
		return 0, false
	}

	if transcript.SentenceAt(t, sentences) != transcript.None {
		return 0, false
	}

	// 位于句子间隙或末尾：只在刚结束的句子的容差窗口内回跳
	prev := transcript.LastEndedBefore(t, sentences)
	if prev == transcript.None {
		return 0, false
	}
	sinceEnd := t - sentences[prev].End
	if sinceEnd > 0 && sinceEnd < c.Tolerance {
		return sentences[prev].Start, true
	}
	return 0, false
}

// State 返回当前状态的副本
func (c *Controller) State() models.LoopState {
	return models.LoopState{
		PointA:             copyPtr(c.pointA),
		PointB:             copyPtr(c.pointB),
		ABLoopActive:       c.abActive,
		SentenceLoopActive: c.sentenceLoop,
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func copyPtr(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return floatPtr(*p)
}
