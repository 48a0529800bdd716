package domain

import (
	"github.com/fundwit/go-commons/types"
)

// EmployeeStats is the incrementally maintained per-employee rollup; it is
// never recomputed from scratch. Streak fields are stored pass-through,
// no engine rule derives them.
type EmployeeStats struct {
	EmployeeID   string `json:"employeeId" gorm:"primary_key"`
	EmployeeName string `json:"employeeName"`
	Department   string `json:"department"`

	TasksCompleted int `json:"tasksCompleted"`
	TasksOnTime    int `json:"tasksOnTime"`
	TasksOverdue   int `json:"tasksOverdue"`

	CurrentStreak int `json:"currentStreak"`
	BestStreak    int `json:"bestStreak"`

	AvgCompletionHours float64 `json:"avgCompletionHours"`
	TotalPenalties     float64 `json:"totalPenalties"`

	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (s *EmployeeStats) TableName() string {
	return "employee_stats"
}
