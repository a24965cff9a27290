package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"
)

// ScriptHook runs a local script with the event exposed as environment
// variables (METAFORGE_EVENT, METAFORGE_RUN_ID, METAFORGE_<KEY>).
type ScriptHook struct {
	name       string
	eventTypes []EventType
	enabled    bool
	timeout    time.Duration
	scriptPath string
	args       []string
	shell      string
}

// NewScriptHook creates a new script hook
func NewScriptHook(config *HookConfig) (Hook, error) {
	scriptPath := config.Config["script"]
	if scriptPath == "" {
		return nil, fmt.Errorf("script path required")
	}

	hook := &ScriptHook{
		name:       config.Name,
		eventTypes: config.Events,
		enabled:    config.Enabled,
		timeout:    config.Timeout,
		scriptPath: scriptPath,
		shell:      "/bin/sh",
	}
	if args := config.Config["args"]; args != "" {
		hook.args = strings.Fields(args)
	}
	if shell := config.Config["shell"]; shell != "" {
		hook.shell = shell
	}
	return hook, nil
}

func (h *ScriptHook) Name() string            { return h.name }
func (h *ScriptHook) EventTypes() []EventType { return h.eventTypes }
func (h *ScriptHook) Enabled() bool           { return h.enabled }
func (h *ScriptHook) Timeout() time.Duration  { return h.timeout }

func (h *ScriptHook) Execute(ctx context.Context, event *Event) error {
	args := append([]string{h.scriptPath}, h.args...)
	cmd := exec.CommandContext(ctx, h.shell, args...)
	cmd.Env = append(os.Environ(), eventEnv(event)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("script failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func eventEnv(event *Event) []string {
	env := []string{
		"METAFORGE_EVENT=" + string(event.Type),
		"METAFORGE_RUN_ID=" + event.RunID,
	}
	keys := make([]string, 0, len(event.Data))
	for k := range event.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("METAFORGE_%s=%s", strings.ToUpper(k), event.Data[k]))
	}
	return env
}

// WebhookHook posts the event as JSON.
type WebhookHook struct {
	name       string
	eventTypes []EventType
	enabled    bool
	timeout    time.Duration
	url        string
	headers    map[string]string
	client     *http.Client
}

// NewWebhookHook creates a webhook hook. Config keys other than "url" are
// sent as request headers.
func NewWebhookHook(config *HookConfig) (Hook, error) {
	url := config.Config["url"]
	if url == "" {
		return nil, fmt.Errorf("webhook URL required")
	}

	hook := &WebhookHook{
		name:       config.Name,
		eventTypes: config.Events,
		enabled:    config.Enabled,
		timeout:    config.Timeout,
		url:        url,
		headers:    make(map[string]string),
		client:     &http.Client{},
	}
	for k, v := range config.Config {
		if k != "url" {
			hook.headers[k] = v
		}
	}
	return hook, nil
}

func (h *WebhookHook) Name() string            { return h.name }
func (h *WebhookHook) EventTypes() []EventType { return h.eventTypes }
func (h *WebhookHook) Enabled() bool           { return h.enabled }
func (h *WebhookHook) Timeout() time.Duration  { return h.timeout }

func (h *WebhookHook) Execute(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range h.headers {
		req.Header.Set(key, value)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
