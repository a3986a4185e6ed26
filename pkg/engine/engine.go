// Package engine owns the control loop: it starts the sensor and audio
// receivers, ticks the feeds at a fixed rate, runs audio analysis, and
// publishes one ControlFrame per tick.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soma-labs/go-soma/internal/config"
	"github.com/soma-labs/go-soma/pkg/audiorx"
	"github.com/soma-labs/go-soma/pkg/dsp"
	"github.com/soma-labs/go-soma/pkg/feed"
	"github.com/soma-labs/go-soma/pkg/hub"
	"github.com/soma-labs/go-soma/pkg/latest"
	"github.com/soma-labs/go-soma/pkg/receiver"
	"github.com/soma-labs/go-soma/pkg/wire"
)

// Status aggregates the runtime telemetry the dashboard reports.
type Status struct {
	Running   bool            `json:"running"`
	Tick      uint64          `json:"tick"`
	UptimeMs  int64           `json:"uptimeMs"`
	Face      receiver.Stats  `json:"face"`
	Body      receiver.Stats  `json:"body"`
	Audio     *audiorx.Stats  `json:"audio,omitempty"`
	Clients   int             `json:"clients"`
	Staleness map[string]any  `json:"staleness"`
}

// Engine wires receivers through latest-value channels into per-tick
// feeds and broadcasts the resulting control frames.
type Engine struct {
	logger *slog.Logger
	hub    *hub.Hub

	faceCh *latest.Channel[wire.FaceSnapshot]
	bodyCh *latest.Channel[wire.BodySnapshot]
	skelCh *latest.Channel[wire.SkeletonFrame]

	faceRx  *receiver.FaceReceiver
	bodyRx  *receiver.BodyReceiver
	audioRx *audiorx.Receiver

	faceFeed *feed.FaceFeed
	bodyFeed *feed.BodyFeed
	skelFeed *feed.SkeletonFeed
	gestures feed.FaceGestures
	analyzer *dsp.Analyzer

	// pending holds a config to apply at the next tick.
	pending atomic.Pointer[config.Config]
	cfg     config.Config

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	tick    atomic.Uint64
	started time.Time

	frameMu   sync.RWMutex
	lastFrame ControlFrame

	audioBuf  []float64
	lastAudio dsp.Frame
}

// New builds an engine from the given configuration. The hub may be nil
// when no subscribers are expected.
func New(cfg config.Config, h *hub.Hub, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		logger:   logger.With("component", "engine"),
		hub:      h,
		faceCh:   latest.New[wire.FaceSnapshot](),
		bodyCh:   latest.New[wire.BodySnapshot](),
		skelCh:   latest.New[wire.SkeletonFrame](),
		cfg:      cfg,
		audioBuf: make([]float64, 4096),
	}

	timeout := cfg.StaleTimeout.Seconds()
	smooth := cfg.SmoothTime.Seconds()
	e.faceFeed = feed.NewFaceFeed(e.faceCh, timeout, smooth)
	e.bodyFeed = feed.NewBodyFeed(e.bodyCh, timeout, smooth)
	e.skelFeed = feed.NewSkeletonFeed(e.skelCh, timeout)

	acfg := dsp.DefaultAnalyzerConfig()
	acfg.SampleRate = float64(cfg.SampleRate)
	acfg.Quality = dsp.ParseQuality(cfg.Quality)
	acfg.PitchFloorHz = cfg.PitchFloorHz
	acfg.PitchCeilHz = cfg.PitchCeilHz
	acfg.Sensitivity = cfg.OnsetSensitivity
	acfg.OnsetCooldownMs = float64(cfg.OnsetCooldown.Milliseconds())
	e.analyzer = dsp.NewAnalyzer(acfg)

	e.faceRx = receiver.NewFaceReceiver(cfg.FacePort, e.faceCh, logger)
	e.bodyRx = receiver.NewBodyReceiver(cfg.BodyPort, e.bodyCh, e.skelCh, logger)
	if cfg.AudioPort > 0 {
		e.audioRx = audiorx.NewReceiver(cfg.AudioPort, cfg.SampleRate, logger)
	}
	return e
}

// Start launches the receivers and the control loop. Idempotent.
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}

	if err := e.faceRx.Start(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if err := e.bodyRx.Start(); err != nil {
		e.faceRx.Stop()
		return fmt.Errorf("engine: %w", err)
	}
	if e.audioRx != nil {
		if err := e.audioRx.Start(); err != nil {
			e.bodyRx.Stop()
			e.faceRx.Stop()
			return fmt.Errorf("engine: %w", err)
		}
	}

	e.stopCh = make(chan struct{})
	e.running = true
	e.started = time.Now()
	e.wg.Add(1)
	go e.loop()

	e.logger.Info("engine started",
		"tickRate", e.cfg.TickRate,
		"facePort", e.cfg.FacePort,
		"bodyPort", e.cfg.BodyPort,
		"audioPort", e.cfg.AudioPort)
	return nil
}

// Stop halts the control loop and all receivers. Idempotent.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	close(e.stopCh)
	e.wg.Wait()
	e.running = false

	e.faceRx.Stop()
	e.bodyRx.Stop()
	if e.audioRx != nil {
		e.audioRx.Stop()
	}
	e.logger.Info("engine stopped")
}

// UpdateConfig applies a new configuration. Tuning parameters take
// effect at the next tick; port changes restart the affected receivers
// here, off the tick path.
func (e *Engine) UpdateConfig(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running && cfg.FacePort != e.faceRx.Port() {
		e.faceRx.Stop()
		e.faceRx = receiver.NewFaceReceiver(cfg.FacePort, e.faceCh, e.logger)
		if err := e.faceRx.Start(); err != nil {
			return fmt.Errorf("engine: reconfigure: %w", err)
		}
	}
	if e.running && cfg.BodyPort != e.bodyRx.Port() {
		e.bodyRx.Stop()
		e.bodyRx = receiver.NewBodyReceiver(cfg.BodyPort, e.bodyCh, e.skelCh, e.logger)
		if err := e.bodyRx.Start(); err != nil {
			return fmt.Errorf("engine: reconfigure: %w", err)
		}
	}

	e.pending.Store(&cfg)
	return nil
}

// Config returns the active configuration.
func (e *Engine) Config() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Frame returns a copy of the most recent control frame.
func (e *Engine) Frame() ControlFrame {
	e.frameMu.RLock()
	defer e.frameMu.RUnlock()
	return e.lastFrame
}

// Status returns runtime telemetry for the dashboard.
func (e *Engine) Status() Status {
	e.mu.Lock()
	running := e.running
	faceRx, bodyRx, audioRx := e.faceRx, e.bodyRx, e.audioRx
	e.mu.Unlock()

	frame := e.Frame()
	s := Status{
		Running:  running,
		Tick:     e.tick.Load(),
		UptimeMs: frame.UptimeMs,
		Face:     faceRx.Stats(),
		Body:     bodyRx.Stats(),
		Staleness: map[string]any{
			"face":     frame.Face.Staleness,
			"body":     frame.Body.Staleness,
			"skeleton": frame.Skeleton.Staleness,
		},
	}
	if audioRx != nil {
		st := audioRx.Stats()
		s.Audio = &st
	}
	if e.hub != nil {
		s.Clients = e.hub.ClientCount()
	}
	return s
}

// IsRunning reports whether the control loop is active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

func (e *Engine) loop() {
	defer e.wg.Done()

	period := time.Second / time.Duration(e.cfg.TickRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-e.stopCh:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			e.step(dt)
		}
	}
}

// step runs one control tick: apply pending config, advance feeds,
// drain audio, assemble and publish the frame.
func (e *Engine) step(dt float64) {
	if cfg := e.pending.Swap(nil); cfg != nil {
		e.applyTuning(*cfg)
	}

	var face feed.FaceVector
	var body feed.BodyVector
	var skel feed.SkeletonView
	e.faceFeed.Tick(dt, &face)
	e.bodyFeed.Tick(dt, &body)
	e.skelFeed.Tick(dt, &skel)

	fired, velocity := e.gestures.Tick(&face, e.cfg.OnsetSensitivity)

	audio := e.tickAudio()

	frame := ControlFrame{
		Tick:     e.tick.Add(1),
		UptimeMs: time.Since(e.started).Milliseconds(),
		Face: FaceState{
			Channels:  face.Values[:],
			FaceCount: face.FaceCount,
			Fresh:     face.Fresh,
			Staleness: face.Staleness,
		},
		Body: BodyState{
			Channels:  body.Values[:],
			Source:    body.Source.String(),
			Fresh:     body.Fresh,
			Staleness: body.Staleness,
		},
		Skeleton: skeletonState(&skel),
		Audio:    audio,
	}

	for i, f := range fired {
		if f {
			frame.Events = append(frame.Events, TriggerEvent{
				Name:     feed.GestureNames[i],
				Velocity: velocity,
			})
		}
	}
	if audio.Onset {
		frame.Events = append(frame.Events, TriggerEvent{Name: "onset", Velocity: audio.Envelope})
	}

	e.frameMu.Lock()
	e.lastFrame = frame
	e.frameMu.Unlock()

	if e.hub != nil && e.hub.ClientCount() > 0 {
		if err := e.hub.BroadcastJSON(frame); err != nil {
			e.logger.Warn("frame broadcast failed", "err", err)
		}
	}
}

// tickAudio drains buffered samples through the analyzer and reduces
// them to this tick's audio state. Edge flags latch across the tick.
// Ticks that drain no samples republish the held analysis values so the
// output never snaps to zero between packets; edge flags stay clear.
func (e *Engine) tickAudio() AudioState {
	if e.audioRx == nil {
		return AudioState{}
	}

	var rose, onset bool
	for {
		n := e.audioRx.Read(e.audioBuf)
		if n == 0 {
			break
		}
		for _, s := range e.audioBuf[:n] {
			e.lastAudio = e.analyzer.Process(s)
			rose = rose || e.lastAudio.GateRose
			onset = onset || e.lastAudio.Onset
		}
	}

	last := e.lastAudio
	note := e.analyzer.Note()
	return AudioState{
		Active:     true,
		Pitch:      last.Pitch,
		Freq:       last.Freq,
		Confidence: last.Confidence,
		Note:       note.Name,
		Cents:      int(note.Cents),
		Envelope:   last.Envelope,
		Brightness: last.Brightness,
		Gate:       last.Gate || rose,
		Onset:      onset,
	}
}

func (e *Engine) applyTuning(cfg config.Config) {
	timeout := cfg.StaleTimeout.Seconds()
	smooth := cfg.SmoothTime.Seconds()
	e.faceFeed.SetTimeout(timeout)
	e.faceFeed.SetSmoothTime(smooth)
	e.bodyFeed.SetTimeout(timeout)
	e.bodyFeed.SetSmoothTime(smooth)
	e.skelFeed.SetTimeout(timeout)

	e.analyzer.SetQuality(dsp.ParseQuality(cfg.Quality))
	e.analyzer.SetPitchBand(cfg.PitchFloorHz, cfg.PitchCeilHz)
	e.analyzer.SetSensitivity(cfg.OnsetSensitivity)
	e.analyzer.SetOnsetCooldown(float64(cfg.OnsetCooldown.Milliseconds()))

	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
	e.logger.Info("configuration applied")
}

func skeletonState(v *feed.SkeletonView) SkeletonState {
	st := SkeletonState{
		Fresh:     v.Fresh,
		Staleness: v.Staleness,
	}
	if !v.Fresh {
		return st
	}
	for b := 0; b < v.Frame.BodyCount; b++ {
		sb := &v.Frame.Bodies[b]
		joints := make([]JointState, sb.JointCount)
		for j := 0; j < sb.JointCount; j++ {
			jt := &sb.Joints[j]
			joints[j] = JointState{X: jt.X, Y: jt.Y, Z: jt.Z}
		}
		st.Bodies = append(st.Bodies, joints)
	}
	return st
}
