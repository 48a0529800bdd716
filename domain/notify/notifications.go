package notify

import (
	"fmt"
	"time"

	"workhub/common"
	"workhub/directory"
	"workhub/domain"
	"workhub/persistence"
	"workhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/sony/sonyflake"
)

// DedupWindow suppresses repeats of the same (task, kind) message; this is
// what makes at-least-once scan cycles safe on the notification path.
const DedupWindow = 4 * time.Hour

var (
	idWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueueNotificationFunc  = QueueNotification
	QueryNotificationsFunc = QueryNotifications
	MarkSentFunc           = MarkSent

	CurrentTimestampFunc = types.CurrentTimestamp
)

type NotificationQuery struct {
	Status    domain.NotificationStatus
	TaskID    types.ID
	Recipient string
	Limit     int
}

// QueueNotification renders and inserts a queued message for the task's
// assignee. A notification of the same kind created within DedupWindow
// makes it a no-op.
func QueueNotification(task *domain.Task, kind domain.MessageType, sec *session.Context) (*domain.Notification, error) {
	now := CurrentTimestampFunc()
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())

	var recentCount int
	err := db.Model(&domain.Notification{}).
		Where("task_id = ?", task.ID).
		Where("message_type = ?", kind).
		Where("create_time > ?", types.Timestamp(now.Time().Add(-DedupWindow))).
		Count(&recentCount).Error
	if err != nil {
		return nil, err
	}
	if recentCount > 0 {
		return nil, nil
	}

	phone := ""
	recipientName := task.AssigneeName
	if recipientName == "" {
		recipientName = "Unknown"
	}
	if task.AssigneeID != "" {
		employee, err := directory.FindEmployeeFunc(task.AssigneeID, sec)
		if err != nil {
			return nil, err
		}
		if employee != nil {
			phone = employee.Phone()
		}
	}

	n := &domain.Notification{
		ID:     common.NextId(idWorker),
		TaskID: task.ID,

		RecipientPhone: phone,
		RecipientName:  recipientName,

		MessageType: kind,
		MessageText: buildMessage(task, kind, now),
		Status:      domain.NotificationStatusQueued,

		CreateTime: now,
	}
	if err := db.Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

func buildMessage(task *domain.Task, kind domain.MessageType, now types.Timestamp) string {
	deadline := "N/A"
	hoursLeft := 0.0
	if task.Deadline != (types.Timestamp{}) {
		deadline = task.Deadline.Time().Format("2006-01-02 15:04")
		hoursLeft = task.Deadline.Time().Sub(now.Time()).Hours()
	}

	switch kind {
	case domain.MessageTaskAssigned:
		return fmt.Sprintf("New Task: %s\nDomain: %s\nDeadline: %s\nSteps: %d\nPriority: %s",
			task.Title, task.Domain, deadline, task.StepsTotal, task.Priority)
	case domain.MessageReminder50:
		return fmt.Sprintf("Reminder: %s\n50%% of time has elapsed\n%.1fh remaining\nDeadline: %s",
			task.Title, maxFloat(0, hoursLeft), deadline)
	case domain.MessageReminder80:
		return fmt.Sprintf("URGENT: %s\n80%% of time has elapsed!\nOnly %.1fh remaining\nDeadline: %s",
			task.Title, maxFloat(0, hoursLeft), deadline)
	case domain.MessageOverdue:
		return fmt.Sprintf("OVERDUE: %s\nDeadline was: %s\nOverdue by: %.1fh\nPlease complete ASAP!",
			task.Title, deadline, -hoursLeft)
	case domain.MessageCompleted:
		completedBy := task.CompletedBy
		if completedBy == "" {
			completedBy = task.AssigneeName
		}
		return fmt.Sprintf("Completed: %s\nCompleted by: %s", task.Title, completedBy)
	case domain.MessagePenalty:
		return fmt.Sprintf("Penalty Notice for task: %s\nAction required by management", task.Title)
	default:
		return "Notification for task: " + task.Title
	}
}

func QueryNotifications(query *NotificationQuery, sec *session.Context) ([]domain.Notification, error) {
	var notifications []domain.Notification
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())

	q := db.Model(&domain.Notification{})
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.TaskID != 0 {
		q = q.Where("task_id = ?", query.TaskID)
	}
	if query.Recipient != "" {
		q = q.Where("recipient_name LIKE ?", "%"+query.Recipient+"%")
	}
	q = q.Order("create_time DESC")
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	if err := q.Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}

func MarkSent(id types.ID, sec *session.Context) error {
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	return db.Model(&domain.Notification{}).Where("id = ?", id).
		Update(map[string]interface{}{"status": domain.NotificationStatusSent, "sent_time": CurrentTimestampFunc()}).Error
}

func QueuedCount(sec *session.Context) (int, error) {
	var count int
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Model(&domain.Notification{}).Where("status = ?", domain.NotificationStatusQueued).Count(&count).Error
	return count, err
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
