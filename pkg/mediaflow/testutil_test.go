package mediaflow_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/mediaflow/pkg/mediaflow"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/config"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/executor"
	"github.com/randalmurphal/mediaflow/pkg/mediaflow/graph"
)

var errBoom = errors.New("boom")

// imageService is an ImageGenerator whose timing the test controls. When
// release is set, each call blocks until release is closed or the context
// is cancelled.
type imageService struct {
	mu      sync.Mutex
	prompts []string
	images  [][]string
	err     error

	started chan string
	release chan struct{}
}

func newImageService() *imageService {
	return &imageService{started: make(chan string, 16)}
}

func (s *imageService) GenerateImage(ctx context.Context, req executor.ImageRequest) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, req.Prompt)
	s.images = append(s.images, req.Images)
	release, err := s.release, s.err
	s.mu.Unlock()

	s.started <- req.Prompt
	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return "img:" + req.Prompt, nil
}

func (s *imageService) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// block makes subsequent calls wait until the returned function is called.
func (s *imageService) block() func() {
	ch := make(chan struct{})
	s.mu.Lock()
	s.release = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// outputSink records saved outputs.
type outputSink struct {
	mu    sync.Mutex
	saved []string
}

func (s *outputSink) SaveOutput(_ context.Context, folder, name, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, folder+"/"+name+"="+uri)
	return nil
}

func (s *outputSink) Saved() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saved...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSettings() config.Settings {
	s := config.DefaultSettings()
	s.VideoCooldown = 0
	return s
}

func newEngine(t *testing.T, images *imageService, opts ...mediaflow.Option) *mediaflow.Engine {
	t.Helper()
	base := []mediaflow.Option{
		mediaflow.WithLogger(quietLogger()),
		mediaflow.WithSettings(testSettings()),
		mediaflow.WithServices(executor.Services{Images: images}),
	}
	engine, err := mediaflow.New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Close() })
	return engine
}

// pipeline is prompt -> generateImage -> output.
type pipeline struct {
	prompt, gen, out string
	promptEdge       string
	outEdge          string
}

func buildPipeline(t *testing.T, e *mediaflow.Engine, prompt string) pipeline {
	t.Helper()
	p := e.AddNode(graph.TypePrompt, graph.Position{}, map[string]any{graph.FieldPrompt: prompt})
	g := e.AddNode(graph.TypeGenerateImage, graph.Position{X: 200}, nil)
	o := e.AddNode(graph.TypeOutput, graph.Position{X: 400}, nil)

	e1, ok := e.Connect(graph.EdgeSpec{Source: p.ID, Target: g.ID, TargetHandle: graph.HandleText})
	require.True(t, ok)
	e2, ok := e.Connect(graph.EdgeSpec{Source: g.ID, Target: o.ID, TargetHandle: graph.HandleImage})
	require.True(t, ok)
	return pipeline{prompt: p.ID, gen: g.ID, out: o.ID, promptEdge: e1.ID, outEdge: e2.ID}
}

func status(t *testing.T, e *mediaflow.Engine, id string) graph.Status {
	t.Helper()
	n, ok := e.Node(id)
	require.True(t, ok, "node %s", id)
	return n.Status()
}

func nodeData(t *testing.T, e *mediaflow.Engine, id string) graph.Data {
	t.Helper()
	n, ok := e.Node(id)
	require.True(t, ok, "node %s", id)
	return n.Data
}

type runResult struct {
	res mediaflow.Result
	err error
}

// runAsync starts Run on another goroutine.
func runAsync(e *mediaflow.Engine, ctx context.Context, start string) <-chan runResult {
	ch := make(chan runResult, 1)
	go func() {
		res, err := e.Run(ctx, start)
		ch <- runResult{res, err}
	}()
	return ch
}
