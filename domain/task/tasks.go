package task

import (
	"errors"
	"time"

	"workhub/bizerror"
	"workhub/common"
	"workhub/domain"
	"workhub/domain/notify"
	"workhub/domain/stats"
	"workhub/persistence"
	"workhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	taskIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryTasksFunc           = QueryTasks
	DetailTaskFunc           = DetailTask
	CreateStandaloneTaskFunc = CreateStandaloneTask
	AssignTaskFunc           = AssignTask
	StartTaskFunc            = StartTask
	CompleteStepFunc         = CompleteStep
	CompleteTaskFunc         = CompleteTask
	CancelTaskFunc           = CancelTask
	MarkTaskOverdueFunc      = MarkTaskOverdue

	CurrentTimestampFunc = types.CurrentTimestamp

	// AdvanceWorkflowFunc is installed by the flow package; a completed
	// task belonging to an instance re-evaluates its stage through it,
	// inside the completing transaction.
	AdvanceWorkflowFunc func(tx *gorm.DB, completedTask *domain.Task, sec *session.Context) error

	// EvaluatePenaltyFunc is installed by the penalty package; cancelling an overdue task
	// derives its penalty through it, inside the cancelling transaction.
	EvaluatePenaltyFunc func(tx *gorm.DB, t *domain.Task) error

	// TaskChangedFuncs run after a mutating transaction commits,
	// best-effort (search index sync and the like).
	TaskChangedFuncs []func(t *domain.Task)
)

type TaskQuery struct {
	Status             domain.TaskStatus
	Domain             domain.Domain
	AssigneeID         string
	WorkflowInstanceID types.ID
	EntityType         string
	EntityID           string
	OverdueOnly        bool
	Limit              int
}

type TaskCreation struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description"`
	Domain      domain.Domain   `json:"domain" binding:"required,oneof=sales circuits marketing hr"`
	Priority    domain.Priority `json:"priority" binding:"omitempty,oneof=low medium high urgent"`

	AssigneeID   string `json:"assigneeId"`
	AssigneeName string `json:"assigneeName"`

	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	EntityName string `json:"entityName"`

	Steps    domain.StepNames `json:"steps"`
	SlaHours int              `json:"slaHours"`
}

func QueryTasks(query *TaskQuery, sec *session.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())

	q := db.Model(&domain.Task{})
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.Domain != "" {
		q = q.Where("domain = ?", query.Domain)
	}
	if query.AssigneeID != "" {
		q = q.Where("assignee_id = ?", query.AssigneeID)
	}
	if query.WorkflowInstanceID != 0 {
		q = q.Where("workflow_instance_id = ?", query.WorkflowInstanceID)
	}
	if query.EntityType != "" {
		q = q.Where("entity_type = ?", query.EntityType)
	}
	if query.EntityID != "" {
		q = q.Where("entity_id = ?", query.EntityID)
	}
	if query.OverdueOnly {
		q = q.Where("deadline != ?", types.Timestamp{}).
			Where("deadline < ?", CurrentTimestampFunc()).
			Where("status NOT IN (?)", domain.TaskTerminalStatuses)
	}
	q = q.Order("FIELD(priority, 'urgent', 'high', 'medium', 'low')").Order("deadline ASC")
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func DetailTask(id types.ID, sec *session.Context) (*domain.TaskDetail, error) {
	detail := domain.TaskDetail{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	if err := db.Where(&domain.Task{ID: id}).First(&detail.Task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	activities, err := QueryTaskActivitiesFunc(id, 50, sec)
	if err != nil {
		return nil, err
	}
	detail.Activities = activities
	return &detail, nil
}

// CreateStandaloneTask creates a task outside any workflow instance.
func CreateStandaloneTask(c *TaskCreation, sec *session.Context) (*domain.Task, error) {
	now := CurrentTimestampFunc()

	checklist := make(domain.Checklist, 0, len(c.Steps))
	for idx, name := range c.Steps {
		checklist = append(checklist, domain.ChecklistStep{Order: idx + 1, Name: name})
	}

	slaHours := c.SlaHours
	if slaHours <= 0 {
		slaHours = 24
	}
	priority := c.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	t := &domain.Task{
		ID: common.NextId(taskIdWorker),

		Title:       c.Title,
		Description: c.Description,
		Domain:      c.Domain,
		Status:      domain.TaskStatusPending,
		Priority:    priority,

		AssigneeID:   c.AssigneeID,
		AssigneeName: c.AssigneeName,
		AssignedBy:   sec.Identity.ID,

		EntityType: c.EntityType,
		EntityID:   c.EntityID,
		EntityName: c.EntityName,

		Checklist:      checklist,
		StepsCompleted: 0,
		StepsTotal:     len(checklist),

		SlaHours: slaHours,
		Deadline: types.Timestamp(now.Time().Add(slaDuration(slaHours))),

		CreateTime: now,
		UpdateTime: now,
	}
	if t.AssigneeID != "" {
		t.Status = domain.TaskStatusAssigned
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		return CreateActivity(tx, t.ID, domain.ActivityCreated, "Manual", nil)
	})
	if err != nil {
		return nil, err
	}

	if t.AssigneeID != "" {
		queueNotification(t, domain.MessageTaskAssigned, sec)
	}
	invokeTaskChanged(t)
	return t, nil
}

func AssignTask(id types.ID, assigneeID, assigneeName string, sec *session.Context) (*domain.Task, error) {
	t := domain.Task{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := loadTask(tx, id, &t); err != nil {
			return err
		}
		if t.Status.IsTerminal() {
			return bizerror.ErrInvalidTransition
		}

		changes := map[string]interface{}{
			"assignee_id": assigneeID, "assignee_name": assigneeName,
			"assigned_by": sec.Identity.ID, "update_time": CurrentTimestampFunc(),
		}
		if t.Status == domain.TaskStatusPending {
			changes["status"] = domain.TaskStatusAssigned
		}
		result := tx.Model(&domain.Task{}).
			Where("id = ?", id).
			Where("status NOT IN (?)", domain.TaskTerminalStatuses).
			Update(changes)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return bizerror.ErrInvalidTransition
		}

		err := CreateActivity(tx, id, domain.ActivityAssigned, assigneeName,
			domain.ActivityDetails{"assigned_by": sec.Identity.ID.String()})
		if err != nil {
			return err
		}
		return loadTask(tx, id, &t)
	})
	if err != nil {
		return nil, err
	}

	queueNotification(&t, domain.MessageTaskAssigned, sec)
	invokeTaskChanged(&t)
	return &t, nil
}

// StartTask moves a pending/assigned task into in_progress and stamps
// started time.
func StartTask(id types.ID, sec *session.Context) (*domain.Task, error) {
	t := domain.Task{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := loadTask(tx, id, &t); err != nil {
			return err
		}

		now := CurrentTimestampFunc()
		result := tx.Model(&domain.Task{}).
			Where("id = ?", id).
			Where("status IN (?)", []domain.TaskStatus{domain.TaskStatusPending, domain.TaskStatusAssigned}).
			Update(map[string]interface{}{
				"status": domain.TaskStatusInProgress, "start_time": now, "update_time": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return bizerror.ErrInvalidTransition
		}

		if err := CreateActivity(tx, id, domain.ActivityStarted, sec.ActorName(), nil); err != nil {
			return err
		}
		return loadTask(tx, id, &t)
	})
	if err != nil {
		return nil, err
	}

	invokeTaskChanged(&t)
	return &t, nil
}

// CompleteStep marks exactly one checklist entry completed and recomputes
// steps_completed; the task status itself is untouched.
func CompleteStep(id types.ID, stepOrder int, sec *session.Context) (*domain.Task, error) {
	t := domain.Task{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := loadTask(tx, id, &t); err != nil {
			return err
		}
		if t.Status.IsTerminal() {
			return bizerror.ErrInvalidTransition
		}

		now := CurrentTimestampFunc()
		stepName := ""
		found := false
		for idx := range t.Checklist {
			if t.Checklist[idx].Order == stepOrder {
				t.Checklist[idx].Completed = true
				t.Checklist[idx].CompletedAt = now
				t.Checklist[idx].CompletedBy = sec.ActorName()
				stepName = t.Checklist[idx].Name
				found = true
				break
			}
		}
		if !found {
			return bizerror.ErrStepNotFound
		}

		result := tx.Model(&domain.Task{}).
			Where("id = ?", id).
			Where("status NOT IN (?)", domain.TaskTerminalStatuses).
			Update(map[string]interface{}{
				"checklist": t.Checklist, "steps_completed": t.Checklist.CompletedCount(), "update_time": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return bizerror.ErrInvalidTransition
		}

		err := CreateActivity(tx, id, domain.ActivityStepCompleted, sec.ActorName(),
			domain.ActivityDetails{"step": stepName, "order": stepOrder})
		if err != nil {
			return err
		}
		return loadTask(tx, id, &t)
	})
	if err != nil {
		return nil, err
	}

	invokeTaskChanged(&t)
	return &t, nil
}

// CompleteTask finishes the task, rolls up employee stats and, for
// instance tasks, re-evaluates the stage barrier — all in one
// transaction.
func CompleteTask(id types.ID, notes string, sec *session.Context) (*domain.Task, error) {
	t := domain.Task{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := loadTask(tx, id, &t); err != nil {
			return err
		}

		now := CurrentTimestampFunc()
		changes := map[string]interface{}{
			"status": domain.TaskStatusCompleted, "complete_time": now,
			"completed_by": sec.ActorName(), "update_time": now,
		}
		if notes != "" {
			changes["notes"] = notes
		}
		result := tx.Model(&domain.Task{}).
			Where("id = ?", id).
			Where("status NOT IN (?)", domain.TaskTerminalStatuses).
			Update(changes)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return bizerror.ErrInvalidTransition
		}

		err := CreateActivity(tx, id, domain.ActivityCompleted, sec.ActorName(),
			domain.ActivityDetails{"notes": notes})
		if err != nil {
			return err
		}

		if err := loadTask(tx, id, &t); err != nil {
			return err
		}
		if err := stats.RecordCompletion(tx, &t); err != nil {
			return err
		}
		if t.WorkflowInstanceID != 0 && AdvanceWorkflowFunc != nil {
			if err := AdvanceWorkflowFunc(tx, &t, sec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	queueNotification(&t, domain.MessageCompleted, sec)
	invokeTaskChanged(&t)
	return &t, nil
}

// CancelTask cancels a non-terminal task; cancelling while overdue
// derives the flat cancelled-overdue penalty inside the same transaction.
func CancelTask(id types.ID, reason string, sec *session.Context) (*domain.Task, error) {
	t := domain.Task{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := loadTask(tx, id, &t); err != nil {
			return err
		}
		wasOverdue := t.Status == domain.TaskStatusOverdue

		now := CurrentTimestampFunc()
		result := tx.Model(&domain.Task{}).
			Where("id = ?", id).
			Where("status NOT IN (?)", domain.TaskTerminalStatuses).
			Update(map[string]interface{}{
				"status": domain.TaskStatusCancelled, "notes": reason, "update_time": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return bizerror.ErrInvalidTransition
		}

		err := CreateActivity(tx, id, domain.ActivityCancelled, sec.ActorName(),
			domain.ActivityDetails{"reason": reason})
		if err != nil {
			return err
		}

		if err := loadTask(tx, id, &t); err != nil {
			return err
		}
		if wasOverdue && EvaluatePenaltyFunc != nil {
			if err := EvaluatePenaltyFunc(tx, &t); err != nil {
				return err
			}
		}
		if t.WorkflowInstanceID != 0 && AdvanceWorkflowFunc != nil {
			if err := AdvanceWorkflowFunc(tx, &t, sec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invokeTaskChanged(&t)
	return &t, nil
}

// MarkTaskOverdue is invoked only by the deadline scanner. A task already
// overdue, completed or cancelled makes it a no-op: no update, no new
// activity row.
func MarkTaskOverdue(id types.ID, hoursOverdue float64, sec *session.Context) (bool, error) {
	marked := false
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Task{}).
			Where("id = ?", id).
			Where("status NOT IN (?)", []domain.TaskStatus{
				domain.TaskStatusOverdue, domain.TaskStatusCompleted, domain.TaskStatusCancelled,
			}).
			Update(map[string]interface{}{
				"status": domain.TaskStatusOverdue, "update_time": CurrentTimestampFunc(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return nil
		}
		marked = true
		return CreateActivity(tx, id, domain.ActivityOverdue, "System",
			domain.ActivityDetails{"hours_overdue": hoursOverdue})
	})
	if err != nil {
		return false, err
	}
	return marked, nil
}

func loadTask(tx *gorm.DB, id types.ID, out *domain.Task) error {
	if err := tx.Where(&domain.Task{ID: id}).First(out).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return bizerror.ErrNotFound
		}
		return err
	}
	return nil
}

func slaDuration(hours int) time.Duration {
	return time.Duration(hours) * time.Hour
}

// queueNotification is best-effort and post-commit; a failure must not
// undo the committed transition.
func queueNotification(t *domain.Task, kind domain.MessageType, sec *session.Context) {
	if _, err := notify.QueueNotificationFunc(t, kind, sec); err != nil {
		common.Log.Warnf("failed to queue %s notification for task %d: %v", kind, t.ID, err)
	}
}

func invokeTaskChanged(t *domain.Task) {
	for _, f := range TaskChangedFuncs {
		f(t)
	}
}
