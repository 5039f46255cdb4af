package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/loom/internal/activation"
	"github.com/soyeahso/loom/internal/domain"
	"github.com/soyeahso/loom/internal/store"
)

// safeConfigPrefixes lists config path prefixes that can be read and
// written via RPC. All other paths are denied by default (allowlist).
var safeConfigPrefixes = []string{
	"server.port",
	"server.bind",
	"server.customBindHost",
	"server.allowedOrigins",
	"logging",
	"activation",
}

func isAllowedConfigPath(key string) bool {
	for _, prefix := range safeConfigPrefixes {
		if key == prefix || strings.HasPrefix(key, prefix+".") {
			return true
		}
	}
	return false
}

// dispatchTimeout is the maximum duration a dispatched activation may run.
const dispatchTimeout = 5 * time.Minute

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// registerRPCHandlers sets up all JSON-RPC method handlers.
func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
	s.Handle("status", s.rpcStatus)
	s.Handle("config.get", s.rpcConfigGet)
	s.Handle("config.set", s.rpcConfigSet)
	s.Handle("activation.dispatch", s.rpcActivationDispatch)
	s.Handle("activation.get", s.rpcActivationGet)
	s.Handle("activation.list", s.rpcActivationList)
	s.Handle("providers.list", s.rpcProvidersList)
}

// Built-in RPC handlers

func (s *Server) rpcHealth(rc *RequestContext) {
	rc.Respond(HealthResponse{
		Status:  "ok",
		Version: s.version,
		Clients: s.clients.Count(),
	})
}

func (s *Server) rpcStatus(rc *RequestContext) {
	rc.Respond(map[string]any{
		"version":  s.version,
		"clients":  s.clients.Count(),
		"methods":  s.Methods(),
		"uptimeMs": time.Since(s.startedAt).Milliseconds(),
	})
}

type configGetParams struct {
	Key string `json:"key"`
}

func (s *Server) rpcConfigGet(rc *RequestContext) {
	var p configGetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Key == "" {
		rc.RespondError("invalid_params", "key is required")
		return
	}
	if !isAllowedConfigPath(p.Key) {
		rc.RespondError("forbidden", "access denied for config path: "+p.Key)
		return
	}

	s.mu.RLock()
	raw := s.configRaw
	s.mu.RUnlock()

	path, err := parseConfigPathForRPC(p.Key)
	if err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	val, ok := getValueAtPathRPC(raw, path)
	if !ok {
		rc.RespondError("not_found", "key not found: "+p.Key)
		return
	}
	rc.Respond(map[string]any{"key": p.Key, "value": val})
}

type configSetParams struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (s *Server) rpcConfigSet(rc *RequestContext) {
	var p configSetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.Key == "" {
		rc.RespondError("invalid_params", "key is required")
		return
	}
	if !isAllowedConfigPath(p.Key) {
		rc.RespondError("forbidden", "cannot modify config path: "+p.Key)
		return
	}

	path, err := parseConfigPathForRPC(p.Key)
	if err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	s.mu.Lock()
	setValueAtPathRPC(s.configRaw, path, p.Value)
	s.mu.Unlock()

	rc.Respond(map[string]any{"key": p.Key, "value": p.Value})
}

// rpcActivationDispatch runs an agent on this server. The payload
// carries binding identifiers from the caller's resolution; provider
// overrides are reconstructed from the explicit ones and re-resolved
// against this server's registry.
func (s *Server) rpcActivationDispatch(rc *RequestContext) {
	if s.activations == nil {
		rc.RespondError("unavailable", "no activation service configured")
		return
	}

	var p activation.DispatchRequest
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.AgentID == "" {
		rc.RespondError("invalid_params", "agentId is required")
		return
	}

	overrides := make(map[string]string)
	for _, b := range p.Bindings {
		if b.Source == domain.SourceExplicitConfig && b.ProviderName != "" {
			overrides[b.Param] = b.ProviderName
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	rec, err := s.activations.Activate(ctx, activation.Request{
		AgentID:   p.AgentID,
		Input:     p.Input,
		SessionID: p.SessionID,
		Instance:  "local",
		Overrides: overrides,
	})
	if err != nil {
		rc.RespondError("internal", err.Error())
		return
	}

	seq := s.eventSeq.Add(1)
	s.clients.Broadcast("activation.update", map[string]any{
		"activationId": rec.ID,
		"agentId":      rec.AgentID,
		"status":       string(rec.Status),
	}, seq)

	rc.Respond(rec)
}

type activationGetParams struct {
	ActivationID string `json:"activationId"`
}

func (s *Server) rpcActivationGet(rc *RequestContext) {
	if s.activations == nil {
		rc.RespondError("unavailable", "no activation service configured")
		return
	}

	var p activationGetParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}
	if p.ActivationID == "" {
		rc.RespondError("invalid_params", "activationId is required")
		return
	}

	rec, err := s.activations.Get(context.Background(), p.ActivationID)
	if err != nil {
		rc.RespondError("not_found", err.Error())
		return
	}
	rc.Respond(rec)
}

type activationListParams struct {
	AgentID   string `json:"agentId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Status    string `json:"status,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

func (s *Server) rpcActivationList(rc *RequestContext) {
	if s.activations == nil {
		rc.RespondError("unavailable", "no activation service configured")
		return
	}

	var p activationListParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	recs, err := s.activations.List(context.Background(), store.ActivationFilter{
		AgentID:   p.AgentID,
		SessionID: p.SessionID,
		Status:    domain.ActivationStatus(p.Status),
		Limit:     p.Limit,
	})
	if err != nil {
		rc.RespondError("internal", err.Error())
		return
	}
	rc.Respond(map[string]any{"activations": recs})
}

type providersListParams struct {
	Type string `json:"type,omitempty"`
}

// rpcProvidersList returns provider metadata. API keys never cross the
// wire.
func (s *Server) rpcProvidersList(rc *RequestContext) {
	if s.providers == nil {
		rc.Respond(map[string]any{"providers": []any{}})
		return
	}

	var p providersListParams
	if err := rc.Params(&p); err != nil {
		rc.RespondError("invalid_params", err.Error())
		return
	}

	configs, err := s.providers.List(context.Background(), p.Type)
	if err != nil {
		rc.RespondError("internal", err.Error())
		return
	}

	out := make([]map[string]any, len(configs))
	for i, cfg := range configs {
		out[i] = map[string]any{
			"id":       cfg.ID,
			"type":     cfg.Type,
			"name":     cfg.Name,
			"default":  cfg.Default,
			"endpoint": cfg.Endpoint,
			"model":    cfg.Model,
		}
	}
	rc.Respond(map[string]any{"providers": out})
}

// Helpers that mirror config.ParseConfigPath / GetValueAtPath without importing config
// to avoid circular dependencies — they operate on raw maps only.

func parseConfigPathForRPC(raw string) ([]string, error) {
	if raw == "" {
		return nil, ErrEmptyConfigPath
	}
	var parts []string
	start := 0
	for i := 0; i <= len(raw); i++ {
		if i == len(raw) || raw[i] == '.' {
			if i == start {
				return nil, ErrEmptyConfigPath
			}
			parts = append(parts, raw[start:i])
			start = i + 1
		}
	}
	return parts, nil
}

func getValueAtPathRPC(root map[string]any, path []string) (any, bool) {
	current := any(root)
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func setValueAtPathRPC(root map[string]any, path []string, value any) {
	current := root
	for _, key := range path[:len(path)-1] {
		next, ok := current[key]
		if !ok {
			next = map[string]any{}
			current[key] = next
		}
		m, ok := next.(map[string]any)
		if !ok {
			m = map[string]any{}
			current[key] = m
		}
		current = m
	}
	current[path[len(path)-1]] = value
}
