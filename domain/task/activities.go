package task

import (
	"workhub/common"
	"workhub/domain"
	"workhub/persistence"
	"workhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	activityIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryTaskActivitiesFunc   = QueryTaskActivities
	QueryRecentActivitiesFunc = QueryRecentActivities
)

// CreateActivity appends one audit row inside the mutating transaction, so
// a rolled-back transition leaves no trace.
func CreateActivity(tx *gorm.DB, taskID types.ID, action, actorName string, details domain.ActivityDetails) error {
	record := domain.TaskActivity{
		ID:     common.NextId(activityIdWorker),
		TaskID: taskID,

		Action:    action,
		ActorName: actorName,
		Details:   details,

		CreateTime: CurrentTimestampFunc(),
	}
	return tx.Create(&record).Error
}

func QueryTaskActivities(taskID types.ID, limit int, sec *session.Context) ([]domain.TaskActivity, error) {
	var activities []domain.TaskActivity
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	if limit <= 0 {
		limit = 50
	}
	err := db.Where("task_id = ?", taskID).Order("create_time DESC").Limit(limit).Find(&activities).Error
	if err != nil {
		return nil, err
	}
	return activities, nil
}

// ActivityFeedEntry is an activity joined with its task's title and domain
// for the cross-task feed.
type ActivityFeedEntry struct {
	domain.TaskActivity

	TaskTitle  string        `json:"taskTitle"`
	TaskDomain domain.Domain `json:"taskDomain"`
}

func QueryRecentActivities(limit int, sec *session.Context) ([]ActivityFeedEntry, error) {
	var activities []domain.TaskActivity
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	if limit <= 0 {
		limit = 30
	}
	if err := db.Order("create_time DESC").Limit(limit).Find(&activities).Error; err != nil {
		return nil, err
	}

	titles := map[types.ID]domain.Task{}
	entries := make([]ActivityFeedEntry, 0, len(activities))
	for _, a := range activities {
		entry := ActivityFeedEntry{TaskActivity: a}
		t, found := titles[a.TaskID]
		if !found {
			if err := db.Select("id, title, domain").Where("id = ?", a.TaskID).First(&t).Error; err == nil {
				titles[a.TaskID] = t
			}
		}
		entry.TaskTitle = t.Title
		entry.TaskDomain = t.Domain
		entries = append(entries, entry)
	}
	return entries, nil
}
