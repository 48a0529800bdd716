package stats

import (
	"errors"
	"math"

	"workhub/domain"
	"workhub/persistence"
	"workhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	QueryLeaderboardFunc  = QueryLeaderboard
	FindEmployeeStatsFunc = FindEmployeeStats

	CurrentTimestampFunc = types.CurrentTimestamp
)

// LeaderboardEntry is EmployeeStats with the derived on-time rate.
type LeaderboardEntry struct {
	domain.EmployeeStats

	OnTimeRate int `json:"onTimeRate"`
}

// RecordCompletion rolls the completed task into the assignee's counters.
// It runs inside the completing transaction so the task row and the rollup
// commit together. The running average uses the standard incremental-mean
// update; streak fields are deliberately left alone.
func RecordCompletion(tx *gorm.DB, task *domain.Task) error {
	if task.AssigneeID == "" {
		return nil
	}

	onTime := 0
	if task.Deadline != (types.Timestamp{}) && !task.CompleteTime.Time().After(task.Deadline.Time()) {
		onTime = 1
	}
	hours := 0.0
	if task.StartTime != (types.Timestamp{}) {
		hours = task.CompleteTime.Time().Sub(task.StartTime.Time()).Hours()
		hours = math.Max(0, hours)
	}
	now := CurrentTimestampFunc()

	record := domain.EmployeeStats{}
	err := tx.Where(&domain.EmployeeStats{EmployeeID: task.AssigneeID}).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		record = domain.EmployeeStats{
			EmployeeID:   task.AssigneeID,
			EmployeeName: task.AssigneeName,

			TasksCompleted:     1,
			TasksOnTime:        onTime,
			AvgCompletionHours: hours,

			UpdateTime: now,
		}
		return tx.Create(&record).Error
	}
	if err != nil {
		return err
	}

	newAvg := (record.AvgCompletionHours*float64(record.TasksCompleted) + hours) / float64(record.TasksCompleted+1)
	return tx.Model(&domain.EmployeeStats{}).Where("employee_id = ?", task.AssigneeID).
		Update(map[string]interface{}{
			"tasks_completed":      record.TasksCompleted + 1,
			"tasks_on_time":        record.TasksOnTime + onTime,
			"avg_completion_hours": newAvg,
			"update_time":          now,
		}).Error
}

// AddPenaltyTotal adds an approved penalty amount to the employee's
// cumulative total, inside the approving transaction.
func AddPenaltyTotal(tx *gorm.DB, employeeID string, amount float64) error {
	return tx.Model(&domain.EmployeeStats{}).Where("employee_id = ?", employeeID).
		Update(map[string]interface{}{
			"total_penalties": gorm.Expr("total_penalties + ?", amount),
			"update_time":     CurrentTimestampFunc(),
		}).Error
}

func QueryLeaderboard(sec *session.Context) ([]LeaderboardEntry, error) {
	var records []domain.EmployeeStats
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	if err := db.Order("tasks_completed DESC").Limit(50).Find(&records).Error; err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(records))
	for _, record := range records {
		entry := LeaderboardEntry{EmployeeStats: record}
		if record.TasksCompleted > 0 {
			entry.OnTimeRate = int(math.Round(float64(record.TasksOnTime) / float64(record.TasksCompleted) * 100))
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// FindEmployeeStats returns a zero-valued record for employees without a
// rollup row yet.
func FindEmployeeStats(employeeID string, sec *session.Context) (*domain.EmployeeStats, error) {
	record := domain.EmployeeStats{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Where(&domain.EmployeeStats{EmployeeID: employeeID}).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.EmployeeStats{EmployeeID: employeeID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
