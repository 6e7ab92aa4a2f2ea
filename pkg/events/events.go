// Package events defines the lifecycle events published while an execution
// runs. Events are transient: they are broadcast on a per-workflow pub/sub
// channel and never persisted, so a disconnected observer misses whatever
// was published while it was away.
package events

import (
	"fmt"
	"time"
)

type EventType string

const (
	ExecutionStartedEvent  EventType = "execution_started"
	ExecutionFinishedEvent EventType = "execution_finished"
	NodeStartedEvent       EventType = "node_started"
	NodeSucceededEvent     EventType = "node_succeeded"
	NodeFailedEvent        EventType = "node_failed"
)

// ChannelFor returns the pub/sub channel carrying events for a workflow.
func ChannelFor(workflowID string) string {
	return fmt.Sprintf("workflow:%s:events", workflowID)
}

// BaseEvent carries the fields common to every event. Timestamp is unix
// milliseconds at publish time; within one execution it is monotonic because
// a single coordinator publishes the events in milestone order.
type BaseEvent struct {
	Type        EventType `json:"type"`
	ExecutionID string    `json:"executionId"`
	WorkflowID  string    `json:"workflowId"`
	Timestamp   int64     `json:"ts"`
}

func NewBaseEvent(eventType EventType, executionID, workflowID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		ExecutionID: executionID,
		WorkflowID:  workflowID,
		Timestamp:   time.Now().UnixMilli(),
	}
}

type ExecutionStarted struct {
	BaseEvent

	TotalTasks int `json:"totalTasks"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionFinished struct {
	BaseEvent

	Status     string `json:"status"`
	TasksDone  int    `json:"tasksDone"`
	TotalTasks int    `json:"totalTasks"`
}

func (e ExecutionFinished) GetType() EventType {
	return ExecutionFinishedEvent
}

type NodeStarted struct {
	BaseEvent

	NodeID   string `json:"nodeId"`
	NodeType string `json:"nodeType"`
}

func (e NodeStarted) GetType() EventType {
	return NodeStartedEvent
}

type NodeSucceeded struct {
	BaseEvent

	NodeID   string `json:"nodeId"`
	NodeType string `json:"nodeType"`
}

func (e NodeSucceeded) GetType() EventType {
	return NodeSucceededEvent
}

type NodeFailed struct {
	BaseEvent

	NodeID   string `json:"nodeId"`
	NodeType string `json:"nodeType"`
	Error    string `json:"error"`
}

func (e NodeFailed) GetType() EventType {
	return NodeFailedEvent
}
