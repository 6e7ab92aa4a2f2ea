// Package workflow drives workflow executions: the scheduler orders nodes
// by their dependencies and the coordinator runs them, persisting progress
// and publishing live events.
package workflow

import (
	"sort"

	"github.com/weftlabs/weft/pkg/models"
)

// Scheduler releases nodes in dependency order. A node becomes ready once
// every node with a connection into it has completed. Ready nodes are
// released in deterministic order: the initial roots alphabetically, then
// successors in the order their parent's connection list names them.
type Scheduler struct {
	indegree   map[string]int
	successors map[string][]string
	ready      []string
	remaining  int
}

func NewScheduler(workflow *models.Workflow) *Scheduler {
	s := &Scheduler{
		indegree:   make(map[string]int, len(workflow.Nodes)),
		successors: make(map[string][]string, len(workflow.Connections)),
		remaining:  len(workflow.Nodes),
	}

	for id := range workflow.Nodes {
		s.indegree[id] = 0
	}

	for from, targets := range workflow.Connections {
		if _, ok := s.indegree[from]; !ok {
			continue
		}

		for _, to := range targets {
			if _, ok := s.indegree[to]; !ok {
				continue
			}

			s.indegree[to]++
			s.successors[from] = append(s.successors[from], to)
		}
	}

	roots := make([]string, 0, len(workflow.Nodes))

	for id, degree := range s.indegree {
		if degree == 0 {
			roots = append(roots, id)
		}
	}

	sort.Strings(roots)
	s.ready = roots

	return s
}

// Next pops the next ready node. ok is false when no node is ready; check
// Remaining to distinguish completion from a dependency cycle.
func (s *Scheduler) Next() (string, bool) {
	if len(s.ready) == 0 {
		return "", false
	}

	id := s.ready[0]
	s.ready = s.ready[1:]

	return id, true
}

// Complete marks a node finished and releases any successors whose
// dependencies are now all satisfied.
func (s *Scheduler) Complete(id string) {
	s.remaining--

	for _, successor := range s.successors[id] {
		s.indegree[successor]--
		if s.indegree[successor] == 0 {
			s.ready = append(s.ready, successor)
		}
	}
}

// Remaining reports how many nodes have not completed. A non-zero value
// after Next returns false means the graph has a cycle.
func (s *Scheduler) Remaining() int {
	return s.remaining
}
