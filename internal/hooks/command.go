package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/soyeahso/loom/internal/config"
)

const defaultCommandTimeout = 30 * time.Second

// RegisterCommandHooks wires the configured shell-command hooks into
// the manager. Each command receives the event payload as JSON on the
// LOOM_HOOK_PAYLOAD environment variable.
func RegisterCommandHooks(m *Manager, cfg config.HooksConfig) {
	register := func(event string, entries []config.HookEntry) {
		for i, entry := range entries {
			if entry.Command == "" {
				continue
			}
			name := fmt.Sprintf("command:%s:%d", event, i)
			m.On(event, name, commandHandler(entry))
		}
	}

	register(EventActivationQueued, cfg.ActivationQueued)
	register(EventActivationCompleted, cfg.ActivationCompleted)
	register(EventServerStart, cfg.ServerStart)
	register(EventServerStop, cfg.ServerStop)
}

func commandHandler(entry config.HookEntry) Handler {
	timeout := defaultCommandTimeout
	if entry.Timeout > 0 {
		timeout = time.Duration(entry.Timeout) * time.Millisecond
	}

	return func(ctx context.Context, p Payload) error {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		payload, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal hook payload: %w", err)
		}

		cmd := exec.CommandContext(ctx, "sh", "-c", entry.Command)
		cmd.Env = append(cmd.Environ(), "LOOM_HOOK_PAYLOAD="+string(payload))
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("hook command failed: %w (output: %s)", err, string(out))
		}
		return nil
	}
}
