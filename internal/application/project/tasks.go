package project

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rezkam/atelier/internal/domain"
	"github.com/rezkam/atelier/internal/workflow"
)

// CreateTaskInput holds the fields of a new task.
// Dates use the YYYY-MM-DD form and may be empty.
type CreateTaskInput struct {
	ProjectID    string
	Title        string
	Category     string
	AssigneeID   string
	StartDate    string
	DueDate      string
	Dependencies []string
	Subtasks     []string // checklist entry titles, in order
}

// CreateTask creates a task with a pending start/completion approval matrix.
func (s *Service) CreateTask(ctx context.Context, actor domain.Actor, in CreateTaskInput) (*domain.Task, error) {
	title, err := domain.NewTitle(in.Title)
	if err != nil {
		return nil, err
	}

	var start, due domain.Date
	if in.StartDate != "" {
		if start, err = domain.ParseDate(in.StartDate); err != nil {
			return nil, err
		}
	}
	if in.DueDate != "" {
		if due, err = domain.ParseDate(in.DueDate); err != nil {
			return nil, err
		}
	}
	if !start.IsZero() && !due.IsZero() && due.Before(start) {
		return nil, domain.ErrInvalidDateRange
	}

	subtasks := make([]domain.Subtask, 0, len(in.Subtasks))
	for _, raw := range in.Subtasks {
		st, err := domain.NewTitle(raw)
		if err != nil {
			return nil, fmt.Errorf("subtask: %w", err)
		}
		id, err := newID()
		if err != nil {
			return nil, err
		}
		subtasks = append(subtasks, domain.Subtask{ID: id, Title: st.String()})
	}

	id, err := newID()
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := domain.Task{
		ID:           id,
		ProjectID:    in.ProjectID,
		Title:        title.String(),
		Category:     strings.TrimSpace(in.Category),
		AssigneeID:   strings.TrimSpace(in.AssigneeID),
		StartDate:    start,
		DueDate:      due,
		Status:       domain.TaskStatusTodo,
		StatusSource: domain.StatusSourceDerived,
		Subtasks:     subtasks,
		Approvals:    domain.NewTaskApprovals(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	task = workflow.Rederive(task, s.today())

	var created *domain.Task
	err = s.withLock(ctx, dependencyLockKey(in.ProjectID), func() error {
		return s.repo.Atomic(ctx, func(repo Repository) error {
			if _, err := repo.FindProjectByID(ctx, in.ProjectID); err != nil {
				return err
			}
			if len(in.Dependencies) > 0 {
				all, err := repo.FindTasksByProject(ctx, in.ProjectID)
				if err != nil {
					return fmt.Errorf("failed to load project tasks: %w", err)
				}
				deps, err := workflow.ValidateDependencies(task, in.Dependencies, all)
				if err != nil {
					return err
				}
				task.Dependencies = deps
			}

			var err error
			created, err = repo.CreateTask(ctx, &task)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Task created", "task_id", created.ID, "project_id", created.ProjectID, "actor_id", actor.ID)
	return created, nil
}

// GetTask retrieves a task by ID.
func (s *Service) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	if id == "" {
		return nil, domain.ErrTaskNotFound
	}
	return s.repo.FindTaskByID(ctx, id)
}

// ListTasks returns every task of a project.
func (s *Service) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	tasks, err := s.repo.FindTasksByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// BlockingResult describes why a task is or is not blocked.
type BlockingResult struct {
	Blocked  bool
	Blocking []domain.Task
}

// BlockingTasks reports whether a task is blocked and by which direct dependencies.
func (s *Service) BlockingTasks(ctx context.Context, taskID string) (*BlockingResult, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.FindTasksByProject(ctx, task.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project tasks: %w", err)
	}
	return &BlockingResult{
		Blocked:  workflow.IsBlocked(*task, all),
		Blocking: workflow.BlockingTasks(*task, all),
	}, nil
}

// SetTaskDependencies replaces a task's dependency set.
// Dependency edits of one project are serialized so two concurrent edits cannot close a cycle.
func (s *Service) SetTaskDependencies(ctx context.Context, actor domain.Actor, taskID string, deps []string, etag string) (*domain.Task, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	var updated *domain.Task
	err = s.withLock(ctx, dependencyLockKey(task.ProjectID), func() error {
		return s.withLock(ctx, taskLockKey(taskID), func() error {
			return s.repo.Atomic(ctx, func(repo Repository) error {
				current, err := repo.FindTaskByID(ctx, taskID)
				if err != nil {
					return err
				}
				if err := checkEtag(etag, current.Etag()); err != nil {
					return err
				}
				all, err := repo.FindTasksByProject(ctx, current.ProjectID)
				if err != nil {
					return fmt.Errorf("failed to load project tasks: %w", err)
				}
				next, err := workflow.SetDependencies(*current, deps, all, actor, s.now())
				if err != nil {
					return err
				}
				updated, err = repo.UpdateTask(ctx, &next)
				return err
			})
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetSubtaskCompletion toggles a checklist entry and re-derives the task status.
func (s *Service) SetSubtaskCompletion(ctx context.Context, actor domain.Actor, taskID, subtaskID string, completed bool, etag string) (*domain.Task, error) {
	var updated *domain.Task
	err := s.withLock(ctx, taskLockKey(taskID), func() error {
		return s.repo.Atomic(ctx, func(repo Repository) error {
			current, err := repo.FindTaskByID(ctx, taskID)
			if err != nil {
				return err
			}
			if err := checkEtag(etag, current.Etag()); err != nil {
				return err
			}
			next, err := workflow.SetSubtaskCompletion(*current, subtaskID, completed, actor, s.today(), s.now())
			if err != nil {
				return err
			}
			updated, err = repo.UpdateTask(ctx, &next)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RequestTaskStatus applies an explicit status change requested by actor.
func (s *Service) RequestTaskStatus(ctx context.Context, actor domain.Actor, taskID, status string, etag string) (*domain.Task, error) {
	requested, err := domain.NewTaskStatus(status)
	if err != nil {
		return nil, err
	}

	var updated *domain.Task
	err = s.withLock(ctx, taskLockKey(taskID), func() error {
		return s.repo.Atomic(ctx, func(repo Repository) error {
			current, err := repo.FindTaskByID(ctx, taskID)
			if err != nil {
				return err
			}
			if err := checkEtag(etag, current.Etag()); err != nil {
				return err
			}
			all, err := repo.FindTasksByProject(ctx, current.ProjectID)
			if err != nil {
				return fmt.Errorf("failed to load project tasks: %w", err)
			}
			next, err := workflow.RequestStatus(*current, requested, all, actor, s.now())
			if err != nil {
				return err
			}
			updated, err = repo.UpdateTask(ctx, &next)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Task status requested",
		"task_id", taskID, "status", updated.Status, "actor_id", actor.ID, "role", actor.Role)
	return updated, nil
}

// ApprovalInput is an approval command as received from a caller.
type ApprovalInput struct {
	Stage  string
	Party  string
	Action string
	Etag   string
}

func (s *Service) parseApproval(actor domain.Actor, in ApprovalInput) (domain.ApprovalCommand, error) {
	stage, err := domain.NewStage(in.Stage)
	if err != nil {
		return domain.ApprovalCommand{}, err
	}
	action, err := domain.NewApprovalAction(in.Action)
	if err != nil {
		return domain.ApprovalCommand{}, err
	}

	// The party defaults to the one the actor's role represents.
	var party domain.Party
	if in.Party == "" {
		p, ok := actor.Role.Party()
		if !ok {
			return domain.ApprovalCommand{}, fmt.Errorf("%w: %s is not an approval party", domain.ErrForbidden, actor.Role)
		}
		party = p
	} else if party, err = domain.NewParty(in.Party); err != nil {
		return domain.ApprovalCommand{}, err
	}

	return domain.ApprovalCommand{Stage: stage, Party: party, Action: action, Actor: actor, At: s.now()}, nil
}

// ApplyTaskApproval applies an approve, reject or revoke command to a task's approval matrix.
func (s *Service) ApplyTaskApproval(ctx context.Context, actor domain.Actor, taskID string, in ApprovalInput) (*domain.Task, error) {
	cmd, err := s.parseApproval(actor, in)
	if err != nil {
		return nil, err
	}

	var updated *domain.Task
	var event *domain.StageFullyApproved
	err = s.withLock(ctx, taskLockKey(taskID), func() error {
		return s.repo.Atomic(ctx, func(repo Repository) error {
			current, err := repo.FindTaskByID(ctx, taskID)
			if err != nil {
				return err
			}
			if err := checkEtag(in.Etag, current.Etag()); err != nil {
				return err
			}

			next, ev, err := workflow.ApplyTaskApproval(*current, cmd, s.today())
			if err != nil {
				return err
			}
			if !cellChanged(current.Approvals, next.Approvals, cmd) {
				updated = current
				return nil
			}

			if updated, err = repo.UpdateTask(ctx, &next); err != nil {
				return err
			}
			event = ev
			return s.recordApproval(ctx, repo, domain.EntityTask, updated.ID, updated.ProjectID, cmd, updated.Approvals, ev)
		})
	})
	if err != nil {
		return nil, err
	}

	if event != nil {
		slog.InfoContext(ctx, "Task stage fully approved", "task_id", taskID, "stage", event.Stage, "status", updated.Status)
	}
	return updated, nil
}

// ListApprovalEvents returns the approval audit trail of a task or transaction.
func (s *Service) ListApprovalEvents(ctx context.Context, kind domain.EntityKind, entityID string) ([]domain.ApprovalEvent, error) {
	switch kind {
	case domain.EntityTask:
		if _, err := s.GetTask(ctx, entityID); err != nil {
			return nil, err
		}
	case domain.EntityTransaction:
		if _, err := s.GetTransaction(ctx, entityID); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown entity kind %s", domain.ErrInvalidID, kind)
	}

	events, err := s.repo.FindApprovalEvents(ctx, kind, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approval events: %w", err)
	}
	return events, nil
}

// cellChanged reports whether cmd altered the targeted cell. Repeating a recorded decision does not.
func cellChanged(before, after domain.ApprovalMatrix, cmd domain.ApprovalCommand) bool {
	b, _ := before.Stage(cmd.Stage)
	a, _ := after.Stage(cmd.Stage)
	return b.Cell(cmd.Party) != a.Cell(cmd.Party)
}

func (s *Service) recordApproval(ctx context.Context, repo Repository, kind domain.EntityKind, entityID, projectID string, cmd domain.ApprovalCommand, m domain.ApprovalMatrix, ev *domain.StageFullyApproved) error {
	id, err := newID()
	if err != nil {
		return err
	}
	stage, _ := m.Stage(cmd.Stage)
	event := &domain.ApprovalEvent{
		ID:            id,
		EntityKind:    kind,
		EntityID:      entityID,
		ProjectID:     projectID,
		Stage:         cmd.Stage,
		Party:         cmd.Party,
		Action:        cmd.Action,
		ActorID:       cmd.Actor.ID,
		ActorRole:     cmd.Actor.Role,
		Result:        stage.Cell(cmd.Party).Status,
		FullyApproved: ev != nil,
		CreatedAt:     cmd.At,
	}
	if err := repo.RecordApprovalEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to record approval event: %w", err)
	}
	s.metrics.approvalApplied(ctx, kind, cmd.Stage, cmd.Action)
	return nil
}
