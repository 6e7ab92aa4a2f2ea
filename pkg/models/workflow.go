// Package models defines the core domain models for workflow execution.
package models

import "time"

// TriggerType identifies how a workflow run is initiated.
type TriggerType string

const (
	TriggerTypeManual  TriggerType = "Manual"
	TriggerTypeWebhook TriggerType = "Webhook"
	TriggerTypeCron    TriggerType = "Cron" // Reserved, not scheduled by the engine
)

// Node types supported by the engine.
const (
	NodeTypeTelegram    = "Telegram"
	NodeTypeSlack       = "Slack"
	NodeTypeResendEmail = "ResendEmail"
	NodeTypeGemini      = "Gemini"
	NodeTypeForm        = "Form"
)

// Webhook carries the inbound trigger settings of a webhook workflow.
type Webhook struct {
	Title  string `json:"title"`
	Method string `json:"method"`
	Secret string `json:"secret,omitempty"`
}

// Node is one configured step in a workflow graph.
type Node struct {
	ID            string         `json:"id"     validate:"required"`
	Type          string         `json:"type"   validate:"required"`
	Config        map[string]any `json:"config"`
	CredentialsID string         `json:"credentialsId,omitempty"`
}

// Workflow is the graph definition a single execution runs against.
// The engine treats workflows as read-only; they are authored elsewhere.
type Workflow struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"       validate:"required,min=3"`
	Enabled     bool                `json:"enabled"`
	TriggerType TriggerType         `json:"triggerType" validate:"required"`
	Nodes       map[string]*Node    `json:"nodes"`
	Connections map[string][]string `json:"connections"`
	Webhook     *Webhook            `json:"webhook,omitempty"`
	UserID      string              `json:"userId"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// TotalTasks is the node count recorded on an execution at creation time.
func (w *Workflow) TotalTasks() int {
	return len(w.Nodes)
}
