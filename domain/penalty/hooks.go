package penalty

import (
	"workhub/domain"
	"workhub/domain/task"

	"github.com/jinzhu/gorm"
)

// Cancelling an already overdue task still yields its penalty; the task
// package reaches back through this hook to stay free of a package
// cycle.
func init() {
	task.EvaluatePenaltyFunc = func(tx *gorm.DB, t *domain.Task) error {
		_, err := EvaluateTaskFunc(tx, t)
		return err
	}
}
