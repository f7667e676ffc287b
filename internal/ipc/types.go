package ipc

import "time"

// RunRequest launches the device server against a configuration file.
type RunRequest struct {
	ConfigPath string `json:"config_path"`
	TakeOver   bool   `json:"take_over"`
	WaitMillis int    `json:"wait_millis"`
}

// RunResponse reports the resulting session state.
type RunResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
	Status  Status `json:"status"`
}

// StopRequest shuts down the active device-server session.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool   `json:"stopped"`
	Message string `json:"message"`
}

// ShutdownRequest asks the daemon process to exit.
type ShutdownRequest struct{}

// ShutdownResponse acknowledges the shutdown request.
type ShutdownResponse struct {
	ShuttingDown bool `json:"shutting_down"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// Status describes the daemon and any active session.
type Status struct {
	Running        bool   `json:"running"`
	State          string `json:"state"`
	Address        string `json:"address"`
	PID            int    `json:"pid"`
	SessionID      string `json:"session_id"`
	ConfigPath     string `json:"config_path"`
	ConfigName     string `json:"config_name"`
	LastError      string `json:"last_error"`
	LockPath       string `json:"lock_path"`
	LogPath        string `json:"log_path"`
	ProjectsDBPath string `json:"projects_db_path"`
}

// StatusResponse wraps Status for the RPC surface.
type StatusResponse struct {
	Status Status `json:"status"`
}

// ProjectsListRequest fetches recent projects, newest first.
type ProjectsListRequest struct {
	Limit int `json:"limit"`
}

// Project is one recent-projects record.
type Project struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	LastUsed time.Time `json:"last_used"`
}

// ProjectsListResponse contains recent-project records.
type ProjectsListResponse struct {
	Projects []Project `json:"projects"`
}

// ProjectsRemoveRequest forgets one recent project.
type ProjectsRemoveRequest struct {
	Path string `json:"path"`
}

// ProjectsRemoveResponse acknowledges removal.
type ProjectsRemoveResponse struct {
	Removed bool `json:"removed"`
}

// ProjectsClearRequest forgets all recent projects.
type ProjectsClearRequest struct{}

// ProjectsClearResponse acknowledges the clear.
type ProjectsClearResponse struct {
	Cleared bool `json:"cleared"`
}

// ProjectsPruneRequest drops records whose files no longer exist.
type ProjectsPruneRequest struct{}

// ProjectsPruneResponse lists the pruned paths.
type ProjectsPruneResponse struct {
	Pruned []string `json:"pruned"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int   `json:"wait_millis"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
