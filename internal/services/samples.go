package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"flowbuilder/backend/internal/repository"
	"flowbuilder/backend/pkg/models"
)

func sampleNode(id string, kind models.Kind, label string, x, y float64, kv ...string) models.Node {
	return models.Node{
		ID:       id,
		Kind:     kind,
		Label:    label,
		Position: models.Position{X: x, Y: y},
		Config:   models.NewConfig(kv...),
	}
}

func day(month time.Month, d int) time.Time {
	return time.Date(2023, month, d, 12, 0, 0, 0, time.UTC)
}

// SampleGraph is the starter graph shown in a fresh editor: load a page,
// click login, check the dashboard header.
func SampleGraph() models.Graph {
	return models.Graph{
		Nodes: []models.Node{
			sampleNode("node-1", models.KindTrigger, "Page Load", 100, 100, "url", "https://example.com"),
			sampleNode("node-2", models.KindAction, "Click Element", 400, 100, "selector", "#login-button"),
			sampleNode("node-3", models.KindAssertion, "Element Exists", 700, 100, "selector", ".dashboard-header"),
		},
		Connections: []models.Connection{
			{ID: "conn-1", Source: "node-1", Target: "node-2"},
			{ID: "conn-2", Source: "node-2", Target: "node-3"},
		},
	}
}

// SampleFlows returns the demo library, oldest first.
func SampleFlows() []*models.Flow {
	twoStep := func(url, selector string) models.Graph {
		return models.Graph{
			Nodes: []models.Node{
				sampleNode("node-1", models.KindTrigger, "Page Load", 100, 100, "url", url),
				sampleNode("node-2", models.KindAction, "Click Element", 400, 100, "selector", selector),
			},
			Connections: []models.Connection{{ID: "conn-1", Source: "node-1", Target: "node-2"}},
		}
	}
	return []*models.Flow{
		{ID: "flow-2", Name: "Checkout Process", Graph: twoStep("https://example.com/cart", "#checkout-button"), CreatedAt: day(time.October, 12)},
		{ID: "flow-1", Name: "Login Flow Test", Graph: twoStep("https://example.com/login", "#login-button"), CreatedAt: day(time.October, 15)},
	}
}

// SampleResults returns the demo result history, oldest first.
func SampleResults() []*models.Result {
	step := func(name string, st models.Status, d string) models.StepResult {
		return models.StepResult{Name: name, Status: st, Duration: d}
	}
	pass, fail := models.StatusPassed, models.StatusFailed
	results := []*models.Result{
		{
			ID: "result-3", TestName: "Product Search", Status: pass, Timestamp: day(time.October, 10), Duration: "1.20s",
			Steps: []models.StepResult{
				step("Navigate to homepage", pass, "0.3s"),
				step("Enter search keyword", pass, "0.2s"),
				step("Submit search", pass, "0.4s"),
				step("Verify search results", pass, "0.3s"),
			},
		},
		{
			ID: "result-2", TestName: "Checkout Process", Status: fail, Timestamp: day(time.October, 12), Duration: "2.30s",
			Steps: []models.StepResult{
				step("Navigate to cart page", pass, "0.3s"),
				step("Verify cart items", pass, "0.5s"),
				step("Click checkout button", pass, "0.4s"),
				step("Enter shipping details", pass, "0.6s"),
				step("Submit payment", fail, "0.5s"),
			},
		},
		{
			ID: "result-1", TestName: "Login Flow Test", Status: pass, Timestamp: day(time.October, 15), Duration: "1.45s",
			Steps: []models.StepResult{
				step("Navigate to login page", pass, "0.3s"),
				step("Enter username", pass, "0.2s"),
				step("Enter password", pass, "0.2s"),
				step("Click login button", pass, "0.5s"),
				step("Verify dashboard loads", pass, "0.25s"),
			},
		},
	}
	for _, r := range results {
		var errs []models.ErrorDetail
		for _, s := range r.Steps {
			if s.Status == models.StatusFailed {
				errs = append(errs, models.ErrorDetail{Keyword: s.Name, Message: "step failed"})
			}
		}
		r.Analysis = analyze(r.Steps, errs)
	}
	return results
}

// SeedSamples writes the demo flows and results to repo, skipping ids that
// are already present.
func SeedSamples(ctx context.Context, repo repository.Repository) (flows, results int, err error) {
	for _, f := range SampleFlows() {
		_, err := repo.GetFlow(ctx, f.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return flows, results, fmt.Errorf("failed to look up flow %s: %w", f.ID, err)
		}
		if err := repo.SaveFlow(ctx, f); err != nil {
			return flows, results, fmt.Errorf("failed to seed flow %s: %w", f.ID, err)
		}
		flows++
	}
	for _, r := range SampleResults() {
		_, err := repo.GetResult(ctx, r.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return flows, results, fmt.Errorf("failed to look up result %s: %w", r.ID, err)
		}
		if err := repo.SaveResult(ctx, r); err != nil {
			return flows, results, fmt.Errorf("failed to seed result %s: %w", r.ID, err)
		}
		results++
	}
	return flows, results, nil
}
