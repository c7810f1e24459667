package services

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"flowbuilder/backend/internal/catalog"
	"flowbuilder/backend/pkg/models"
)

const (
	defaultRunDuration  = "1.0s"
	defaultStepDuration = "0.2s"
	successReturnCode   = "0"
)

var durationPattern = regexp.MustCompile(`(?i)Duration.*?(\d+(\.\d+)?s)`)

// ExecutionRequest is the body posted to the runner.
type ExecutionRequest struct {
	JSONConfig TestConfig `json:"json_config"`
}

// TestConfig describes one test: ordered steps plus a flat context.
type TestConfig struct {
	Name    string            `json:"name"`
	Steps   []Step            `json:"steps"`
	Context map[string]string `json:"context,omitempty"`
}

// Step is one keyword invocation.
type Step struct {
	Keyword string   `json:"keyword"`
	Args    []string `json:"args"`
}

// ExecutionResponse is the runner's answer. Result is nil when the run was
// only scheduled.
type ExecutionResponse struct {
	TestFile string     `json:"test_file"`
	Message  string     `json:"message,omitempty"`
	Result   *RunOutput `json:"result,omitempty"`
}

// RunOutput carries the completed run's process output.
type RunOutput struct {
	ReturnCode ReturnCode    `json:"returncode"`
	Stdout     string        `json:"stdout"`
	Stderr     string        `json:"stderr"`
	Steps      []StepOutcome `json:"steps,omitempty"`
}

// StepOutcome is a per-step report some runners include.
type StepOutcome struct {
	Keyword  string `json:"keyword"`
	Status   string `json:"status"`
	Duration string `json:"duration,omitempty"`
	Message  string `json:"message,omitempty"`
	Line     *int   `json:"line,omitempty"`
}

// ReturnCode is the runner's process exit code. Runners send it either as a
// string or as a number; it is always compared as a string.
type ReturnCode string

// UnmarshalJSON accepts "0", 0 and null.
func (rc *ReturnCode) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*rc = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*rc = ReturnCode(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid returncode %s: %w", data, err)
		}
		*rc = ReturnCode(n.String())
	}
	return nil
}

// BuildRequest turns a graph snapshot into the runner payload. Context nodes
// fill the context map; every other node becomes a step, in insertion order.
// Connections are not consulted.
func BuildRequest(g models.Graph, testName string) ExecutionRequest {
	cfg := TestConfig{Name: testName, Steps: []Step{}}
	for _, n := range g.Nodes {
		if n.Kind == models.KindContext {
			if key, value, ok := n.ContextEntry(); ok {
				if cfg.Context == nil {
					cfg.Context = map[string]string{}
				}
				cfg.Context[key] = value
			}
			continue
		}
		cfg.Steps = append(cfg.Steps, Step{Keyword: n.Label, Args: stepArgs(n)})
	}
	return ExecutionRequest{JSONConfig: cfg}
}

func stepArgs(n models.Node) []string {
	keys, known := catalog.ArgKeys(n.Label)
	if !known {
		if n.Config.Len() == 0 && len(n.Args) > 0 {
			return append([]string{}, n.Args...)
		}
		return n.Config.Values()
	}
	args := make([]string, 0, len(keys))
	for i, key := range keys {
		value, ok := n.Config.Get(key)
		if !ok && i < len(n.Args) {
			value = n.Args[i]
		}
		args = append(args, value)
	}
	return args
}

// BuildResult derives the recorded Result from a completed run. It returns
// nil when the response is only a scheduling acknowledgement.
func BuildResult(req ExecutionRequest, resp *ExecutionResponse, now time.Time) *models.Result {
	if resp == nil || resp.Result == nil {
		return nil
	}
	out := resp.Result

	status := models.StatusFailed
	if string(out.ReturnCode) == successReturnCode {
		status = models.StatusPassed
	}

	duration := defaultRunDuration
	if m := durationPattern.FindStringSubmatch(out.Stdout); m != nil {
		duration = m[1]
	}

	steps, errs := stepResults(req.JSONConfig.Steps, out.Steps)
	if status == models.StatusFailed && len(errs) == 0 {
		if line := firstLine(out.Stderr); line != "" {
			errs = append(errs, models.ErrorDetail{Message: line})
		}
	}

	return &models.Result{
		ID:        uuid.New().String(),
		TestName:  req.JSONConfig.Name,
		Status:    status,
		Timestamp: now,
		Duration:  duration,
		Steps:     steps,
		Log:       joinLog(out.Stdout, out.Stderr),
		Analysis:  analyze(steps, errs),
		TestFile:  resp.TestFile,
	}
}

func stepResults(sent []Step, reported []StepOutcome) ([]models.StepResult, []models.ErrorDetail) {
	steps := make([]models.StepResult, 0, len(sent))
	if len(reported) == 0 {
		for _, s := range sent {
			steps = append(steps, models.StepResult{
				Name:     s.Keyword,
				Status:   models.StatusPassed,
				Duration: defaultStepDuration,
			})
		}
		return steps, nil
	}

	var errs []models.ErrorDetail
	for i, r := range reported {
		name := r.Keyword
		if name == "" && i < len(sent) {
			name = sent[i].Keyword
		}
		d := r.Duration
		if d == "" {
			d = defaultStepDuration
		}
		st := normalizeStatus(r.Status)
		steps = append(steps, models.StepResult{Name: name, Status: st, Duration: d})
		if st == models.StatusFailed {
			errs = append(errs, models.ErrorDetail{Keyword: name, Message: r.Message, Line: r.Line})
		}
	}
	return steps, errs
}

func normalizeStatus(s string) models.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "passed", "pass", "ok", "success":
		return models.StatusPassed
	case "skipped", "skip", "not run":
		return models.StatusSkipped
	default:
		return models.StatusFailed
	}
}

func analyze(steps []models.StepResult, errs []models.ErrorDetail) *models.Analysis {
	a := &models.Analysis{Errors: errs}
	for _, s := range steps {
		switch s.Status {
		case models.StatusPassed:
			a.Passed++
		case models.StatusSkipped:
			a.Skipped++
		default:
			a.Failed++
		}
	}
	if len(steps) > 0 {
		a.PassRate = float64(a.Passed) * 100 / float64(len(steps))
	}
	return a
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func joinLog(stdout, stderr string) string {
	switch {
	case stderr == "":
		return stdout
	case stdout == "":
		return stderr
	case strings.HasSuffix(stdout, "\n"):
		return stdout + stderr
	default:
		return stdout + "\n" + stderr
	}
}
