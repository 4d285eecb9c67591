// Package models holds the request and response bodies of the HTTP API.
package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2026-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go runtime version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Operating system and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// Key models
type KeyData struct {
	Name    string `json:"name" example:"Num Lock" doc:"Key name as reported by the status source"`
	ID      string `json:"id,omitempty" example:"1" doc:"Source-assigned identifier, empty when the key is not reported"`
	Enabled bool   `json:"enabled" example:"true" doc:"Whether the key is on"`
	Known   bool   `json:"known" example:"true" doc:"Whether the status source reported the key"`
}

type KeysData struct {
	Keys []KeyData `json:"keys" doc:"Controlled keys in configuration order"`
}

type KeysResponse struct {
	Body KeysData
}

type KeyInput struct {
	Name string `path:"name" example:"Num Lock" doc:"Key name"`
}

type KeyResponse struct {
	Body KeyData
}

type SetKeyInput struct {
	Name string `path:"name" example:"Scroll Lock" doc:"Key name"`
	Body struct {
		Enabled bool `json:"enabled" example:"true" doc:"Requested state"`
	}
}

type SetKeyData struct {
	Name      string `json:"name" example:"Scroll Lock" doc:"Key name"`
	Requested bool   `json:"requested" example:"true" doc:"Requested state"`
	Enabled   bool   `json:"enabled" example:"true" doc:"State after the request settled"`
	Cancelled bool   `json:"cancelled" example:"false" doc:"Whether a newer request superseded this one"`
	Outcome   string `json:"outcome" example:"converged" enum:"unchanged,converged,cancelled" doc:"How the request settled"`
	Attempts  int    `json:"attempts" example:"1" doc:"Number of on/off actions run"`
}

type SetKeyResponse struct {
	Body SetKeyData
}

// Keymap models
type KeymapResetData struct {
	Status string `json:"status" example:"ok" doc:"Reset result"`
}

type KeymapResetResponse struct {
	Body KeymapResetData
}
