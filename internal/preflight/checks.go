package preflight

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"chemdrive/internal/config"
)

// CheckServerBinary verifies the device-server executable can be found.
func CheckServerBinary(binary string) Result {
	name := "Device server binary"
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", binary, err)}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckNtfyTopic verifies the configured ntfy topic URL is well formed
// and the endpoint answers at all.
func CheckNtfyTopic(ctx context.Context, cfg *config.Config) Result {
	name := "Notifications"
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	parsed, err := url.Parse(topic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a valid URL)", topic)}
	}

	reqCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, topic, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", topic, err)}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: unreachable: %v)", topic, err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: server returned %d)", topic, resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: topic}
}
