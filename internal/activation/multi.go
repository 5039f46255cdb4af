package activation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/soyeahso/loom/internal/agent"
	"github.com/soyeahso/loom/internal/domain"
)

// Coordination modes for multi-agent activation.
const (
	ModeSequential   = "sequential"
	ModeParallel     = "parallel"
	ModeChain        = "chain"
	ModeConversation = "conversation"
)

// MultiRequest activates several agents under one shared session.
type MultiRequest struct {
	Agents   Agents
	Mode     string
	Input    map[string]any
	Instance string
}

// Agents is the ordered list of agent IDs in a multi-agent run.
type Agents []string

// ActivateMany runs the agents under a shared session ID according to
// the coordination mode. Individual failures land on their own
// records; the returned slice always has one record per agent, in
// order.
func (s *Service) ActivateMany(ctx context.Context, req MultiRequest) ([]domain.ActivationRecord, error) {
	if len(req.Agents) == 0 {
		return nil, fmt.Errorf("no agents to activate")
	}
	sessionID := uuid.New().String()

	switch req.Mode {
	case "", ModeSequential:
		return s.runSequential(ctx, req, sessionID)
	case ModeParallel:
		return s.runParallel(ctx, req, sessionID)
	case ModeChain:
		return s.runChain(ctx, req, sessionID)
	case ModeConversation:
		return s.runConversation(ctx, req, sessionID)
	default:
		return nil, fmt.Errorf("unknown coordination mode %q", req.Mode)
	}
}

// runSequential gives every agent the same input, one after another.
func (s *Service) runSequential(ctx context.Context, req MultiRequest, sessionID string) ([]domain.ActivationRecord, error) {
	recs := make([]domain.ActivationRecord, 0, len(req.Agents))
	for _, agentID := range req.Agents {
		rec, err := s.Activate(ctx, Request{
			AgentID:   agentID,
			Input:     req.Input,
			Instance:  req.Instance,
			SessionID: sessionID,
		})
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// runParallel runs all agents concurrently, bounded by MaxParallel.
func (s *Service) runParallel(ctx context.Context, req MultiRequest, sessionID string) ([]domain.ActivationRecord, error) {
	recs := make([]domain.ActivationRecord, len(req.Agents))
	errs := make([]error, len(req.Agents))

	var sem chan struct{}
	if s.maxParallel > 0 {
		sem = make(chan struct{}, s.maxParallel)
	}

	var wg sync.WaitGroup
	for i, agentID := range req.Agents {
		wg.Add(1)
		go func(i int, agentID string) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			recs[i], errs[i] = s.Activate(ctx, Request{
				AgentID:   agentID,
				Input:     req.Input,
				Instance:  req.Instance,
				SessionID: sessionID,
			})
		}(i, agentID)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return recs, err
		}
	}
	return recs, nil
}

// runChain feeds each agent's output to the next one. Map outputs pass
// through as-is, anything else is wrapped under the "input" key. A
// failed link stops the chain.
func (s *Service) runChain(ctx context.Context, req MultiRequest, sessionID string) ([]domain.ActivationRecord, error) {
	recs := make([]domain.ActivationRecord, 0, len(req.Agents))
	input := req.Input
	for _, agentID := range req.Agents {
		rec, err := s.Activate(ctx, Request{
			AgentID:   agentID,
			Input:     input,
			Instance:  req.Instance,
			SessionID: sessionID,
		})
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
		if rec.Status == domain.StatusFailed {
			return recs, nil
		}
		if m, ok := rec.Output.(map[string]any); ok {
			input = m
		} else {
			input = map[string]any{"input": rec.Output}
		}
	}
	return recs, nil
}

// runConversation runs agents in turn, each seeing the accumulated
// history of earlier turns under the "history" key.
func (s *Service) runConversation(ctx context.Context, req MultiRequest, sessionID string) ([]domain.ActivationRecord, error) {
	recs := make([]domain.ActivationRecord, 0, len(req.Agents))
	var history []map[string]any

	for _, agentID := range req.Agents {
		input := make(map[string]any, len(req.Input)+1)
		for k, v := range req.Input {
			input[k] = v
		}
		if len(history) > 0 {
			input["history"] = history
		}

		rec, err := s.Activate(ctx, Request{
			AgentID:   agentID,
			Input:     input,
			Instance:  req.Instance,
			SessionID: sessionID,
		})
		if err != nil {
			return recs, err
		}
		recs = append(recs, rec)
		if rec.Status == domain.StatusSucceeded {
			history = append(history, map[string]any{
				"agent_id": agentID,
				"output":   rec.Output,
			})
		}
	}
	return recs, nil
}

// runWorkflow expands a workflow artifact into a multi-agent run. The
// workflow record's output summarizes the member activations; a failed
// member fails the workflow activation.
func (s *Service) runWorkflow(ctx context.Context, wf *agent.WorkflowRef, rec domain.ActivationRecord, req Request) (any, error) {
	recs, err := s.ActivateMany(ctx, MultiRequest{
		Agents:   wf.Agents,
		Mode:     wf.Mode,
		Input:    req.Input,
		Instance: "local",
	})
	if err != nil {
		return nil, err
	}

	summary := make([]map[string]any, len(recs))
	var failed []string
	for i, r := range recs {
		entry := map[string]any{
			"activation_id": r.ID,
			"agent_id":      r.AgentID,
			"status":        string(r.Status),
		}
		if r.Output != nil {
			entry["output"] = r.Output
		}
		if r.Status == domain.StatusFailed {
			failed = append(failed, r.AgentID)
		}
		summary[i] = entry
	}

	if len(failed) > 0 {
		return summary, &ExecutionError{
			AgentID: wf.ID(),
			Err:     fmt.Errorf("workflow members failed: %s", strings.Join(failed, ", ")),
		}
	}
	return summary, nil
}
