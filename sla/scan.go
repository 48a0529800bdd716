package sla

import (
	"workhub/domain"
	"workhub/domain/notify"
	"workhub/domain/penalty"
	"workhub/domain/task"
	"workhub/persistence"
	"workhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	ScanFunc = Scan

	CurrentTimestampFunc = types.CurrentTimestamp
)

// Scan walks every open task carrying a deadline, ordered by deadline,
// and classifies it exactly once per cycle: past the deadline it is
// marked overdue with a penalty derived in the same pass, otherwise a
// reminder goes out at 80% or 50% of the SLA window. Queueing is
// deduplicated downstream, so re-scanning an unchanged task is a no-op.
func Scan(sec *session.Context) error {
	now := CurrentTimestampFunc()
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())

	var tasks []domain.Task
	err := db.Where("status NOT IN (?)", domain.TaskTerminalStatuses).
		Where("deadline != ?", types.Timestamp{}).
		Order("deadline ASC").
		Find(&tasks).Error
	if err != nil {
		return err
	}

	for idx := range tasks {
		if err := scanTask(db, &tasks[idx], now, sec); err != nil {
			return err
		}
	}
	return nil
}

func scanTask(db *gorm.DB, t *domain.Task, now types.Timestamp, sec *session.Context) error {
	remaining := t.Deadline.Time().Sub(now.Time())

	if remaining <= 0 {
		hoursOverdue := -remaining.Hours()
		if _, err := task.MarkTaskOverdueFunc(t.ID, hoursOverdue, sec); err != nil {
			return err
		}
		t.Status = domain.TaskStatusOverdue

		err := db.Transaction(func(tx *gorm.DB) error {
			_, err := penalty.EvaluateTaskFunc(tx, t)
			return err
		})
		if err != nil {
			return err
		}

		// recipient resolution is best-effort, unassigned tasks still
		// produce a message
		if _, err := notify.QueueNotificationFunc(t, domain.MessageOverdue, sec); err != nil {
			return err
		}
		return nil
	}

	if t.SlaHours <= 0 {
		return nil
	}
	elapsedRatio := 1 - remaining.Hours()/float64(t.SlaHours)
	kind := domain.MessageType("")
	switch {
	case elapsedRatio >= 0.8:
		kind = domain.MessageReminder80
	case elapsedRatio >= 0.5:
		kind = domain.MessageReminder50
	default:
		return nil
	}
	_, err := notify.QueueNotificationFunc(t, kind, sec)
	return err
}
