// Package session runs node graphs headlessly, frame by frame.
//
// A [Session] pairs a graph with the reference collaborators of package
// scene: a [scene.Recorder] standing in for the rendering backend, an
// in-memory stencil registry, a fixed-step clock and a static video frame.
// Every call to [Session.Step] evaluates one frame and returns the draw
// calls and evaluation errors it produced.
//
// Sessions back the eval and watch commands of the CLI and the session
// endpoints of the HTTP API. The [Registry] keeps live sessions for the
// server and expires idle ones.
//
// # Usage
//
//	sc, _ := config.LoadScene("room.toml")
//	sess, err := session.New(g, sc)
//	if err != nil {
//	    return err
//	}
//	defer sess.Close()
//	for _, f := range sess.Run(ctx, sc.Frames) {
//	    fmt.Println(f.Index, len(f.Draws), len(f.Errors))
//	}
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/matzehuels/mixgraph/pkg/config"
	"github.com/matzehuels/mixgraph/pkg/nodegraph"
	"github.com/matzehuels/mixgraph/pkg/scene"
)

// Sentinel errors for session operations.
var (
	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrExpired is returned when a session has exceeded its TTL.
	ErrExpired = errors.New("expired")

	// ErrClosed is returned when stepping a closed session.
	ErrClosed = errors.New("session closed")
)

// Session evaluates one graph against reference collaborators.
// A Session serializes its own frames and is safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	graph    *nodegraph.Graph
	rec      *scene.Recorder
	stencils *scene.MemoryStencils
	clock    *scene.FixedClock
	video    scene.StaticVideo
	camera   scene.Vec3
	surface  scene.Handle
	maxIter  int
	frame    int
	lastUsed time.Time
	closed   bool
}

// Frame is the outcome of one evaluated frame.
type Frame struct {
	Index       int                    `json:"index"`
	Elapsed     time.Duration          `json:"elapsed_ns"`
	Evaluations int                    `json:"evaluations"`
	Completed   bool                   `json:"completed"`
	Draws       []Draw                 `json:"draws"`
	Errors      []*nodegraph.EvalError `json:"errors"`
}

// Draw is the serializable summary of a recorded draw call.
type Draw struct {
	Material    uint64               `json:"material"`
	Test        string               `json:"test"`
	Blend       string               `json:"blend"`
	Winding     string               `json:"winding"`
	StencilKind string               `json:"stencil_kind,omitempty"`
	StencilID   int                  `json:"stencil_id,omitempty"`
	UV          [4]float32           `json:"uv"`
	Uniforms    map[string][]float32 `json:"uniforms,omitempty"`
	Textures    map[string]uint64    `json:"textures,omitempty"`
}

// Options tunes a session beyond what the scene describes.
type Options struct {
	// MaxIterations bounds each flow chain. Zero means the evaluator default.
	MaxIterations int
}

// New prepares a session for g. The graph's resource provider is replaced
// by the session's recorder, and the uniform pins of its draw layers are
// rebuilt against the scene's materials. A nil scene means an empty scene.
func New(g *nodegraph.Graph, sc *config.Scene, opts ...Options) (*Session, error) {
	if sc == nil {
		sc = &config.Scene{Surface: 1, Frames: 1}
	}
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}
	rec := scene.NewRecorder()
	stencils := scene.NewMemoryStencils()
	if err := sc.Apply(rec, stencils); err != nil {
		return nil, err
	}
	g.SetResources(rec)
	if err := g.Reload(); err != nil {
		return nil, err
	}

	now := time.Now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		graph:     g,
		rec:       rec,
		stencils:  stencils,
		clock:     sc.Clock(),
		video:     sc.Video(),
		camera:    sc.Camera,
		surface:   scene.Handle(sc.Surface),
		lastUsed:  now,
	}
	for _, o := range opts {
		s.maxIter = o.MaxIterations
	}
	return s, nil
}

// Graph returns the evaluated graph.
func (s *Session) Graph() *nodegraph.Graph { return s.graph }

// Stencils returns the session's stencil registry. Stencils may be added
// or removed between frames.
func (s *Session) Stencils() *scene.MemoryStencils { return s.stencils }

// SetCamera moves the viewing camera for subsequent frames.
func (s *Session) SetCamera(v scene.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.camera = v
}

// Step evaluates the next frame.
func (s *Session) Step(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Frame{}, ErrClosed
	}
	s.lastUsed = time.Now()

	s.rec.Reset()
	ev := nodegraph.NewEvaluator(nodegraph.Frame{
		Surface:  s.surface,
		Delta:    s.clock.Delta(),
		Elapsed:  s.clock.Elapsed(),
		Camera:   s.camera,
		Video:    s.video,
		Render:   s.rec,
		Stencils: s.stencils,
	})
	if s.maxIter > 0 {
		ev.MaxIterations = s.maxIter
	}
	completed := s.graph.EvaluateFrame(ctx, ev)

	f := Frame{
		Index:       s.frame,
		Elapsed:     s.clock.Elapsed(),
		Evaluations: ev.Evaluations(),
		Completed:   completed,
		Errors:      ev.Errors(),
	}
	for _, c := range s.rec.Calls() {
		f.Draws = append(f.Draws, summarize(c))
	}
	s.frame++
	s.clock.Tick()
	return f, ctx.Err()
}

// Run evaluates up to n frames and stops early when ctx is done or the
// session is closed.
func (s *Session) Run(ctx context.Context, n int) []Frame {
	var frames []Frame
	for range n {
		f, err := s.Step(ctx)
		if errors.Is(err, ErrClosed) {
			break
		}
		frames = append(frames, f)
		if err != nil {
			break
		}
	}
	return frames
}

// Close releases the resources the graph loaded. It is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.graph.ReleaseResources()
	return nil
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func summarize(c scene.DrawCall) Draw {
	d := Draw{
		Material: uint64(c.Material),
		Test:     c.Test.String(),
		Blend:    c.Blend.String(),
		Winding:  c.Winding.String(),
		UV:       c.UV,
		Uniforms: maps.Clone(c.Uniforms),
	}
	if c.Stencil != nil {
		d.StencilKind = c.Stencil.Kind.String()
		d.StencilID = c.Stencil.ID
	}
	if len(c.Textures) > 0 {
		d.Textures = make(map[string]uint64, len(c.Textures))
		for k, h := range c.Textures {
			d.Textures[k] = uint64(h)
		}
	}
	return d
}

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 18)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
