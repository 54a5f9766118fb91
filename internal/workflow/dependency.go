// Package workflow holds the approval workflow rules for tasks and financial transactions.
//
// Every function is pure: it takes the current state, the actor and the clock value it needs,
// and returns a new state or a typed error. Persistence and side effects belong to the caller.
package workflow

import (
	"fmt"
	"slices"

	"github.com/rezkam/atelier/internal/domain"
)

// index maps task ids to tasks for dependency lookups.
func index(all []domain.Task) map[string]domain.Task {
	byID := make(map[string]domain.Task, len(all))
	for _, t := range all {
		byID[t.ID] = t
	}
	return byID
}

// unmet splits the task's direct dependencies that are not DONE into resolved tasks and unresolved ids.
// Only direct dependencies are inspected; transitive ones are ignored.
func unmet(task domain.Task, byID map[string]domain.Task) (blocking []domain.Task, missing []string) {
	for _, id := range task.Dependencies {
		dep, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		if dep.Status != domain.TaskStatusDone {
			blocking = append(blocking, dep)
		}
	}
	return blocking, missing
}

// IsBlocked reports whether task is frozen or has a direct dependency that is not DONE.
// DONE tasks are never blocked. A dependency id missing from allTasks counts as not DONE.
func IsBlocked(task domain.Task, allTasks []domain.Task) bool {
	if task.Status == domain.TaskStatusDone {
		return false
	}
	if task.IsFrozen() {
		return true
	}
	blocking, missing := unmet(task, index(allTasks))
	return len(blocking) > 0 || len(missing) > 0
}

// BlockingTasks returns the direct dependencies of task that are not DONE, in dependency order.
func BlockingTasks(task domain.Task, allTasks []domain.Task) []domain.Task {
	if task.Status == domain.TaskStatusDone {
		return nil
	}
	blocking, _ := unmet(task, index(allTasks))
	return blocking
}

// ValidateDependencies checks a proposed dependency set for task and returns it deduplicated.
// It rejects self references, ids that are not tasks of the same project, and sets that would
// close a dependency cycle.
func ValidateDependencies(task domain.Task, deps []string, allTasks []domain.Task) ([]string, error) {
	byID := index(allTasks)

	out := make([]string, 0, len(deps))
	for _, id := range deps {
		if id == task.ID {
			return nil, domain.ErrSelfDependency
		}
		dep, ok := byID[id]
		if !ok || dep.ProjectID != task.ProjectID {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownDependency, id)
		}
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}

	if path := DetectCycle(task.ID, out, allTasks); path != nil {
		return nil, &domain.DependencyCycleError{Path: path}
	}
	return out, nil
}

// DetectCycle reports whether giving taskID the dependency set deps would create a cycle
// through taskID. It returns the cycle as a path starting and ending with taskID, or nil.
//
// The search is a depth-first walk with a visited set, so every task is expanded at most once.
func DetectCycle(taskID string, deps []string, allTasks []domain.Task) []string {
	edges := make(map[string][]string, len(allTasks)+1)
	for _, t := range allTasks {
		edges[t.ID] = t.Dependencies
	}
	edges[taskID] = deps

	visited := make(map[string]bool, len(edges))
	var path []string

	var visit func(id string) bool
	visit = func(id string) bool {
		path = append(path, id)
		for _, next := range edges[id] {
			if next == taskID {
				path = append(path, next)
				return true
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			if visit(next) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}

	visited[taskID] = true
	if visit(taskID) {
		return path
	}
	return nil
}
