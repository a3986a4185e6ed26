package engine

// TriggerEvent is a discrete edge detected during a tick: a facial
// gesture crossing its threshold or the audio gate opening.
type TriggerEvent struct {
	Name     string  `json:"name"`
	Velocity float64 `json:"velocity"`
}

// FaceState carries the smoothed facial channels for one tick.
type FaceState struct {
	Channels  []float64 `json:"channels"`
	FaceCount int       `json:"faceCount"`
	Fresh     bool      `json:"fresh"`
	Staleness float64   `json:"staleness"`
}

// BodyState carries the smoothed depth-summary channels for one tick.
type BodyState struct {
	Channels  []float64 `json:"channels"`
	Source    string    `json:"source"`
	Fresh     bool      `json:"fresh"`
	Staleness float64   `json:"staleness"`
}

// JointState is one skeleton joint position, each axis in -1..1.
type JointState struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// SkeletonState carries the tracked bodies for one tick. Joints are
// reported as received; consumers smooth them if they need to.
type SkeletonState struct {
	Bodies    [][]JointState `json:"bodies"`
	Fresh     bool           `json:"fresh"`
	Staleness float64        `json:"staleness"`
}

// AudioState carries the audio analysis outputs for one tick.
type AudioState struct {
	Active     bool    `json:"active"`
	Pitch      float64 `json:"pitch"`
	Freq       float64 `json:"freq"`
	Confidence float64 `json:"confidence"`
	Note       string  `json:"note"`
	Cents      int     `json:"cents"`
	Envelope   float64 `json:"envelope"`
	Brightness float64 `json:"brightness"`
	Gate       bool    `json:"gate"`
	Onset      bool    `json:"onset"`
}

// ControlFrame is the complete per-tick output: every control value the
// bridge produces, plus whatever trigger events fired this tick.
type ControlFrame struct {
	Tick     uint64         `json:"tick"`
	UptimeMs int64          `json:"uptimeMs"`
	Face     FaceState      `json:"face"`
	Body     BodyState      `json:"body"`
	Skeleton SkeletonState  `json:"skeleton"`
	Audio    AudioState     `json:"audio"`
	Events   []TriggerEvent `json:"events,omitempty"`
}
