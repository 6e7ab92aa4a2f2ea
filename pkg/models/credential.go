package models

import (
	"encoding/json"
	"time"
)

// Credential is stored secret material referenced by a node.
// Data is kept opaque here; executors parse it into their typed view.
type Credential struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"    validate:"required"`
	Platform  string          `json:"platform" validate:"required"`
	Data      json.RawMessage `json:"data"`
	UserID    string          `json:"userId"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// DecodeData parses the credential payload into the given typed view.
func (c *Credential) DecodeData(v any) error {
	return json.Unmarshal(c.Data, v)
}

// Form is a form resource provisioned for a workflow node by the CRUD layer.
// The engine only resolves references to it.
type Form struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflowId"`
	NodeID     string    `json:"nodeId"`
	Title      string    `json:"title"`
	Fields     []any     `json:"fields"`
	IsActive   bool      `json:"isActive"`
	UserID     string    `json:"userId"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
