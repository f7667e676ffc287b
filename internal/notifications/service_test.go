package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"chemdrive/internal/config"
	"chemdrive/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyServerStarted(context.Background(), "127.0.0.1:8000", "rig.toml"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "server started",
			notify: func(svc notifications.Service) error {
				return svc.NotifyServerStarted(context.Background(), "127.0.0.1:8000", "rig.toml")
			},
			expectTitle:   "Chemdrive - Server Started",
			expectMessage: "Device server running at 127.0.0.1:8000\nConfiguration: rig.toml",
			expectTags:    "chemdrive,server,started",
		},
		{
			name: "server stopped",
			notify: func(svc notifications.Service) error {
				return svc.NotifyServerStopped(context.Background(), "rig.toml")
			},
			expectTitle:   "Chemdrive - Server Stopped",
			expectMessage: "Device server stopped\nConfiguration: rig.toml",
			expectTags:    "chemdrive,server,stopped",
		},
		{
			name: "launch failed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyLaunchFailed(context.Background(), "rig.toml", errors.New("exit code 3"))
			},
			expectTitle:    "Chemdrive - Launch Failed",
			expectMessage:  "Device server failed to start for rig.toml: exit code 3",
			expectTags:     "chemdrive,server,failed",
			expectPriority: "high",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("socket gone"), "status query")
			},
			expectTitle:    "Chemdrive - Error",
			expectMessage:  "Error with status query: socket gone",
			expectTags:     "chemdrive,error,alert",
			expectPriority: "high",
		},
		{
			name: "test notification",
			notify: func(svc notifications.Service) error {
				return svc.TestNotification(context.Background())
			},
			expectTitle:    "Chemdrive - Test",
			expectMessage:  "Notification system test",
			expectTags:     "chemdrive,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.ServerEvents = true
			cfg.Notifications.Errors = true

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsCategoryToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed category: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.ServerEvents = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	if err := svc.NotifyServerStarted(ctx, "127.0.0.1:8000", "rig.toml"); err != nil {
		t.Fatalf("suppressed server event returned error: %v", err)
	}
	if err := svc.NotifyServerStopped(ctx, "rig.toml"); err != nil {
		t.Fatalf("suppressed server event returned error: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), "supervisor"); err != nil {
		t.Fatalf("suppressed error event returned error: %v", err)
	}
}

func TestNtfyServiceSurfacesHTTPFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.ServerEvents = true

	svc := notifications.NewService(&cfg)
	err := svc.NotifyServerStarted(context.Background(), "127.0.0.1:8000", "rig.toml")
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
