package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chemdrive/internal/config"
)

const userAgent = "Chemdrive/0.1.0"

// Service defines the notification surface exposed to the daemon.
type Service interface {
	NotifyServerStarted(ctx context.Context, address, configName string) error
	NotifyServerStopped(ctx context.Context, configName string) error
	NotifyLaunchFailed(ctx context.Context, configName string, cause error) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:     topic,
		client:       client,
		serverEvents: cfg.Notifications.ServerEvents,
		errors:       cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	serverEvents bool
	errors       bool
}

func (n *ntfyService) NotifyServerStarted(ctx context.Context, address, configName string) error {
	if !n.serverEvents {
		return nil
	}
	configName = strings.TrimSpace(configName)
	message := fmt.Sprintf("Device server running at %s", strings.TrimSpace(address))
	if configName != "" {
		message = fmt.Sprintf("%s\nConfiguration: %s", message, configName)
	}
	data := payload{
		title:   "Chemdrive - Server Started",
		message: message,
		tags:    []string{"chemdrive", "server", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyServerStopped(ctx context.Context, configName string) error {
	if !n.serverEvents {
		return nil
	}
	configName = strings.TrimSpace(configName)
	message := "Device server stopped"
	if configName != "" {
		message = fmt.Sprintf("%s\nConfiguration: %s", message, configName)
	}
	data := payload{
		title:   "Chemdrive - Server Stopped",
		message: message,
		tags:    []string{"chemdrive", "server", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyLaunchFailed(ctx context.Context, configName string, cause error) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Device server failed to start")
	if configName = strings.TrimSpace(configName); configName != "" {
		builder.WriteString(" for ")
		builder.WriteString(configName)
	}
	builder.WriteString(": ")
	if cause != nil {
		builder.WriteString(strings.TrimSpace(cause.Error()))
	} else {
		builder.WriteString("unknown")
	}
	data := payload{
		title:    "Chemdrive - Launch Failed",
		message:  builder.String(),
		tags:     []string{"chemdrive", "server", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Chemdrive - Error",
		message:  builder.String(),
		tags:     []string{"chemdrive", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Chemdrive - Test",
		message:  "Notification system test",
		tags:     []string{"chemdrive", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyServerStarted(context.Context, string, string) error { return nil }
func (noopService) NotifyServerStopped(context.Context, string) error         { return nil }
func (noopService) NotifyLaunchFailed(context.Context, string, error) error   { return nil }
func (noopService) NotifyError(context.Context, error, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }
