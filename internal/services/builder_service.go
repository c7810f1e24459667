package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"flowbuilder/backend/internal/canvas"
	"flowbuilder/backend/internal/catalog"
	"flowbuilder/backend/internal/graph"
	"flowbuilder/backend/internal/logging"
	"flowbuilder/backend/internal/metrics"
	"flowbuilder/backend/internal/repository"
	"flowbuilder/backend/pkg/models"
)

var (
	// ErrRunInProgress is returned when a run is requested while another is
	// still waiting on the runner.
	ErrRunInProgress = errors.New("a test run is already in progress")
	// ErrRunnerUnavailable wraps every failure to obtain an answer from the
	// runner.
	ErrRunnerUnavailable = errors.New("test runner unavailable")
)

const scheduledMessage = "Test scheduled; results will be available later."

// GraphView is the live graph plus the derived connection curves.
type GraphView struct {
	models.Graph
	Paths []canvas.Path `json:"paths"`
}

// RunOutcome reports a run. Result is nil when the runner only scheduled the
// test.
type RunOutcome struct {
	Result   *models.Result `json:"result,omitempty"`
	Message  string         `json:"message,omitempty"`
	TestFile string         `json:"test_file,omitempty"`
}

// BuilderService owns one builder session: the live graph, the canvas
// interaction state and access to saved flows, results and the runner.
type BuilderService struct {
	mu      sync.Mutex
	graph   *graph.Graph
	session *canvas.Session

	running atomic.Bool

	repo    repository.Repository
	runner  RunnerClient
	metrics *metrics.Recorder
	logger  *logging.Logger
	now     func() time.Time
}

// NewBuilderService creates a new BuilderService with an empty graph.
func NewBuilderService(repo repository.Repository, runner RunnerClient, recorder *metrics.Recorder, logger *logging.Logger) *BuilderService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &BuilderService{
		graph:   graph.New(),
		session: canvas.NewSession(),
		repo:    repo,
		runner:  runner,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// Templates returns the catalog entries matching query.
func (s *BuilderService) Templates(query string) []catalog.NodeTemplate {
	return catalog.Search(query)
}

// Graph returns a snapshot of the live graph with its connection curves.
func (s *BuilderService) Graph() GraphView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *BuilderService) viewLocked() GraphView {
	snap := s.graph.Snapshot()
	return GraphView{Graph: snap, Paths: canvas.Paths(snap.Nodes, snap.Connections)}
}

// AddNode places a node and returns its id.
func (s *BuilderService) AddNode(pos models.Position, kind models.Kind, label string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.AddNode(pos, kind, label)
}

func (s *BuilderService) UpdateNodePosition(id string, pos models.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.UpdateNodePosition(id, pos)
}

func (s *BuilderService) UpdateNodeConfig(id, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.UpdateNodeConfig(id, key, value)
}

func (s *BuilderService) UpdateNodeArgs(id string, args []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.UpdateNodeArgs(id, args)
}

func (s *BuilderService) RemoveNode(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.RemoveNode(id)
}

// AddConnection links source to target. ok is false when the link was
// rejected.
func (s *BuilderService) AddConnection(source, target string) (id string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.AddConnection(source, target)
}

func (s *BuilderService) RemoveConnection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.RemoveConnection(id)
}

// Node returns a copy of a single node.
func (s *BuilderService) Node(id string) (models.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Node(id)
}

// Dispatch feeds a pointer event to the canvas session.
func (s *BuilderService) Dispatch(ev canvas.Event) (canvas.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Dispatch(s.graph, ev)
}

// CanvasView returns the transient interaction state.
func (s *BuilderService) CanvasView() canvas.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.View()
}

// LoadGraph replaces the live graph and resets the canvas session.
func (s *BuilderService) LoadGraph(g models.Graph) GraphView {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.Replace(g)
	s.session.Reset()
	return s.viewLocked()
}

// SaveFlow stores a snapshot of the live graph under name.
func (s *BuilderService) SaveFlow(ctx context.Context, name, author string) (*models.Flow, error) {
	s.mu.Lock()
	snap := s.graph.Snapshot()
	s.mu.Unlock()

	flow := &models.Flow{
		ID:        uuid.New().String(),
		Name:      name,
		Graph:     snap,
		CreatedBy: author,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.SaveFlow(ctx, flow); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.RecordFlowSaved()
	}
	s.logger.Info("flow saved", "flow_id", flow.ID, "name", name, "nodes", len(snap.Nodes))
	return flow, nil
}

// ListFlows returns saved flows whose name contains query, ignoring case.
func (s *BuilderService) ListFlows(ctx context.Context, query string) ([]*models.Flow, error) {
	flows, err := s.repo.ListFlows(ctx)
	if err != nil {
		return nil, err
	}
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return flows, nil
	}
	matched := make([]*models.Flow, 0, len(flows))
	for _, f := range flows {
		if strings.Contains(strings.ToLower(f.Name), query) {
			matched = append(matched, f)
		}
	}
	return matched, nil
}

func (s *BuilderService) GetFlow(ctx context.Context, id string) (*models.Flow, error) {
	return s.repo.GetFlow(ctx, id)
}

// OpenFlow loads a saved flow into the editor.
func (s *BuilderService) OpenFlow(ctx context.Context, id string) (GraphView, error) {
	flow, err := s.repo.GetFlow(ctx, id)
	if err != nil {
		return GraphView{}, err
	}
	return s.LoadGraph(flow.Graph), nil
}

// Export returns the payload a run of the live graph would send.
func (s *BuilderService) Export(name string) ExecutionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BuildRequest(s.graph.Snapshot(), name)
}

// RunTest submits the live graph to the runner and records the result. The
// graph lock is only held while taking the snapshot, so editing continues
// during the run. Only one run may be in flight. A run is never aborted:
// cancelling ctx does not cancel the runner call or the recording.
func (s *BuilderService) RunTest(ctx context.Context, name string) (*RunOutcome, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	ctx = context.WithoutCancel(ctx)

	req := s.Export(name)

	ctx, span := otel.Tracer("flowbuilder/backend/services").Start(ctx, "RunTest")
	defer span.End()
	span.SetAttributes(
		attribute.String("test.name", name),
		attribute.Int("test.steps", len(req.JSONConfig.Steps)),
	)

	started := s.now()
	resp, err := s.runner.Execute(ctx, req)
	elapsed := s.now().Sub(started)
	if err != nil {
		span.RecordError(err)
		if s.metrics != nil {
			s.metrics.RecordRunnerError(ctx)
		}
		s.logger.Error("test run failed", "test_name", name, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrRunnerUnavailable, err)
	}

	result := BuildResult(req, resp, s.now().UTC())
	if result == nil {
		msg := resp.Message
		if msg == "" {
			msg = scheduledMessage
		}
		if s.metrics != nil {
			s.metrics.RecordRun(ctx, "Scheduled", elapsed)
		}
		s.logger.Info("test scheduled", "test_name", name, "test_file", resp.TestFile)
		return &RunOutcome{Message: msg, TestFile: resp.TestFile}, nil
	}

	if err := s.repo.SaveResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to record result: %w", err)
	}
	if s.metrics != nil {
		s.metrics.RecordRun(ctx, string(result.Status), elapsed)
	}
	span.SetAttributes(attribute.String("test.status", string(result.Status)))
	s.logger.Info("test run recorded", "result_id", result.ID, "test_name", name,
		"status", result.Status, "duration", result.Duration)
	return &RunOutcome{Result: result, Message: resp.Message, TestFile: resp.TestFile}, nil
}

// Running reports whether a run is waiting on the runner.
func (s *BuilderService) Running() bool {
	return s.running.Load()
}

func (s *BuilderService) ListResults(ctx context.Context) ([]*models.Result, error) {
	return s.repo.ListResults(ctx)
}

func (s *BuilderService) GetResult(ctx context.Context, id string) (*models.Result, error) {
	return s.repo.GetResult(ctx, id)
}

// Stats aggregates the result history. Durations that do not parse are left
// out of the average.
func (s *BuilderService) Stats(ctx context.Context) (models.ResultStats, error) {
	results, err := s.repo.ListResults(ctx)
	if err != nil {
		return models.ResultStats{}, err
	}

	var (
		stats models.ResultStats
		total float64
		timed int
	)
	stats.Total = len(results)
	for _, r := range results {
		switch r.Status {
		case models.StatusPassed:
			stats.Passed++
		case models.StatusFailed:
			stats.Failed++
		case models.StatusSkipped:
			stats.Skipped++
		}
		if d, err := time.ParseDuration(strings.TrimSpace(r.Duration)); err == nil {
			total += d.Seconds()
			timed++
		}
	}
	if stats.Total > 0 {
		stats.SuccessRate = float64(stats.Passed) * 100 / float64(stats.Total)
	}
	if timed > 0 {
		stats.AverageDuration = total / float64(timed)
	}
	return stats, nil
}

// Ping checks the store.
func (s *BuilderService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
