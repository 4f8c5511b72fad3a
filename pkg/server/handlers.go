package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/mixgraph/pkg/buildinfo"
	"github.com/matzehuels/mixgraph/pkg/cache"
	"github.com/matzehuels/mixgraph/pkg/config"
	apperrors "github.com/matzehuels/mixgraph/pkg/errors"
	mgio "github.com/matzehuels/mixgraph/pkg/io"
	"github.com/matzehuels/mixgraph/pkg/nodegraph"
	"github.com/matzehuels/mixgraph/pkg/render/nodelink"
	"github.com/matzehuels/mixgraph/pkg/scene"
	"github.com/matzehuels/mixgraph/pkg/session"
	"github.com/matzehuels/mixgraph/pkg/store"
)

// =============================================================================
// Meta
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Short(),
	})
}

type pinInfo struct {
	Name      string `json:"name"`
	Class     string `json:"class"`
	Direction string `json:"direction"`
}

type nodeInfo struct {
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	Event       bool      `json:"event,omitempty"`
	Pins        []pinInfo `json:"pins"`
}

type classesResponse struct {
	Nodes      []nodeInfo        `json:"nodes"`
	Pins       map[string]string `json:"pins"`
	Properties []string          `json:"properties"`
	Assets     []string          `json:"assets"`
}

func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	resp := classesResponse{Pins: make(map[string]string)}
	for _, c := range s.reg.NodeClasses() {
		info := nodeInfo{Name: c.Name, Category: c.Category, Description: c.Description, Event: c.Event}
		for _, p := range c.Pins {
			info.Pins = append(info.Pins, pinInfo{Name: p.Name, Class: p.Class, Direction: p.Direction.String()})
		}
		resp.Nodes = append(resp.Nodes, info)
	}
	for _, c := range s.reg.PinClasses() {
		resp.Pins[c.Name] = c.Type.String()
	}
	for _, c := range s.reg.PropertyClasses() {
		resp.Properties = append(resp.Properties, c.Name)
	}
	for _, c := range s.reg.AssetClasses() {
		resp.Assets = append(resp.Assets, c.Name)
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Graph documents
// =============================================================================

type graphResponse struct {
	Key  string `json:"key"`
	ETag string `json:"etag"`
}

func etag(hash string) string { return `"` + hash + `"` }

func (s *Server) handleListGraphs(w http.ResponseWriter, r *http.Request) {
	keys, err := s.store.List(r.Context())
	if err != nil {
		if apperrors.GetCode(err) == "" {
			err = apperrors.Wrap(apperrors.ErrCodeStoreUnavailable, err, "list graphs")
		}
		s.writeError(w, r, err)
		return
	}
	if keys == nil {
		keys = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"keys": keys})
}

func (s *Server) handleCreateGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.readGraph(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	key := uuid.NewString()
	hash, err := store.SaveGraph(r.Context(), s.store, key, g)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/graphs/"+key)
	w.Header().Set("ETag", etag(hash))
	writeJSON(w, http.StatusCreated, graphResponse{Key: key, ETag: hash})
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	data, err := s.store.Get(r.Context(), key)
	if err != nil {
		s.writeError(w, r, storeError(err, key))
		return
	}
	tag := etag(store.Hash(data))
	w.Header().Set("ETag", tag)
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handlePutGraph(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := apperrors.ValidateGraphKey(key); err != nil {
		s.writeError(w, r, err)
		return
	}
	if match := r.Header.Get("If-Match"); match != "" {
		data, err := s.store.Get(r.Context(), key)
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeJSON(w, http.StatusPreconditionFailed, errorBody{Error: "graph does not exist"})
			return
		case err != nil:
			s.writeError(w, r, storeError(err, key))
			return
		case match != "*" && match != etag(store.Hash(data)):
			writeJSON(w, http.StatusPreconditionFailed, errorBody{Error: "graph was modified"})
			return
		}
	}
	g, err := s.readGraph(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	hash, err := store.SaveGraph(r.Context(), s.store, key, g)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", etag(hash))
	writeJSON(w, http.StatusOK, graphResponse{Key: key, ETag: hash})
}

func (s *Server) handleDeleteGraph(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.store.Delete(r.Context(), key); err != nil {
		s.writeError(w, r, storeError(err, key))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGraphDOT(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	g, hash, err := store.LoadGraph(r.Context(), s.store, key, s.reg, s.graphOptions())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	opts := cache.ArtifactOpts{
		Format:     q.Get("format"),
		Detailed:   queryBool(q.Get("detailed")),
		Properties: queryBool(q.Get("properties")),
	}
	dot := nodelink.ToDOT(g, nodelink.Options{Detailed: opts.Detailed, Properties: opts.Properties})

	switch opts.Format {
	case "", "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = io.WriteString(w, dot)
	case "svg":
		svg, hit, err := s.renderSVG(r.Context(), hash, opts, dot)
		if err != nil {
			s.writeError(w, r, apperrors.Wrap(apperrors.ErrCodeInternal, err, "render svg"))
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		if hit {
			w.Header().Set("X-Cache", "HIT")
		} else {
			w.Header().Set("X-Cache", "MISS")
		}
		_, _ = w.Write(svg)
	default:
		s.writeError(w, r, apperrors.New(apperrors.ErrCodeUnsupported, "unsupported format %q", opts.Format))
	}
}

// renderSVG returns the cached render of a document or renders and caches
// it. Cache failures only cost a render.
func (s *Server) renderSVG(ctx context.Context, hash string, opts cache.ArtifactOpts, dot string) ([]byte, bool, error) {
	key := cache.ArtifactKey(hash, opts)
	if data, ok, err := s.artifacts.Get(ctx, key); err == nil && ok {
		return data, true, nil
	} else if err != nil {
		s.logger.Warn("artifact cache", "key", key, "error", err)
	}
	svg, err := nodelink.RenderSVG(ctx, dot)
	if err != nil {
		return nil, false, err
	}
	if err := s.artifacts.Set(ctx, key, svg, artifactTTL); err != nil {
		s.logger.Warn("artifact cache", "key", key, "error", err)
	}
	return svg, false, nil
}

// readGraph decodes and restores the request body.
func (s *Server) readGraph(w http.ResponseWriter, r *http.Request) (*nodegraph.Graph, error) {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	g, err := mgio.ReadJSON(body, s.reg, s.graphOptions())
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeInvalidDocument, err, "invalid document: %v", err)
	}
	return g, nil
}

// storeError codes a raw error from the store.
func storeError(err error, key string) error {
	if apperrors.GetCode(err) != "" {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.Wrap(apperrors.ErrCodeGraphNotFound, err, "graph %s not found", key)
	}
	return apperrors.Wrap(apperrors.ErrCodeStoreUnavailable, err, "graph %s", key)
}

// =============================================================================
// Evaluation
// =============================================================================

// framesRequest is the body of the frame endpoints. All fields are optional.
type framesRequest struct {
	// Scene is a TOML scene description. Only used when opening a session.
	Scene string `json:"scene"`
	// Frames overrides the scene's frame count.
	Frames int `json:"frames"`
	// Camera moves the viewer before the first frame.
	Camera *scene.Vec3 `json:"camera"`
}

type framesResponse struct {
	Session string          `json:"session,omitempty"`
	Key     string          `json:"key,omitempty"`
	Frames  []session.Frame `json:"frames"`
	Errors  int             `json:"errors"`
}

type sessionResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

type createSessionRequest struct {
	Key   string `json:"key"`
	Scene string `json:"scene"`
}

func (s *Server) handleGraphFrames(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req framesRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, sc, err := s.openSession(r, key, req.Scene)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer sess.Close()

	n, err := frameCount(req.Frames, sc.Frames)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Camera != nil {
		sess.SetCamera(*req.Camera)
	}
	frames := sess.Run(r.Context(), n)
	writeJSON(w, http.StatusOK, framesResponse{Key: key, Frames: frames, Errors: countErrors(frames)})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids := s.sessions.IDs()
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Key == "" {
		s.writeError(w, r, apperrors.New(apperrors.ErrCodeInvalidInput, "key is required"))
		return
	}
	sess, _, err := s.openSession(r, req.Key, req.Scene)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.sessions.Add(sess)
	w.Header().Set("Location", "/sessions/"+sess.ID)
	writeJSON(w, http.StatusCreated, sessionResponse{ID: sess.ID, Key: req.Key})
}

func (s *Server) handleSessionFrames(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req framesRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	n, err := frameCount(req.Frames, 1)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Camera != nil {
		sess.SetCamera(*req.Camera)
	}
	frames := sess.Run(r.Context(), n)
	if len(frames) == 0 && n > 0 {
		// Closed between Get and Run.
		s.writeError(w, r, apperrors.Wrap(apperrors.ErrCodeNotFound, session.ErrClosed, "session %s closed", id))
		return
	}
	writeJSON(w, http.StatusOK, framesResponse{Session: id, Frames: frames, Errors: countErrors(frames)})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.sessions.Get(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// openSession loads the graph under key and prepares a session for it.
func (s *Server) openSession(r *http.Request, key, sceneTOML string) (*session.Session, *config.Scene, error) {
	var sc *config.Scene
	if strings.TrimSpace(sceneTOML) != "" {
		var err error
		if sc, err = config.DecodeScene(sceneTOML); err != nil {
			return nil, nil, apperrors.Wrap(apperrors.ErrCodeInvalidConfig, err, "invalid scene: %v", err)
		}
	} else {
		sc = &config.Scene{Surface: 1, Frames: 1}
	}
	g, _, err := store.LoadGraph(r.Context(), s.store, key, s.reg, s.graphOptions())
	if err != nil {
		return nil, nil, err
	}
	sess, err := session.New(g, sc, session.Options{MaxIterations: s.maxIter})
	if err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrCodeEvaluation, err, "open session: %v", err)
	}
	return sess, sc, nil
}

// decodeBody decodes an optional JSON body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "read body")
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "invalid request: %v", err)
	}
	return nil
}

func frameCount(requested, fallback int) (int, error) {
	n := requested
	if n == 0 {
		n = fallback
	}
	if n < 1 || n > maxFrames {
		return 0, apperrors.New(apperrors.ErrCodeInvalidInput, "frames must be between 1 and %d, got %d", maxFrames, n)
	}
	return n, nil
}

func countErrors(frames []session.Frame) int {
	n := 0
	for _, f := range frames {
		n += len(f.Errors)
	}
	return n
}

func queryBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}
