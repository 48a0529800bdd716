package domain

import (
	"github.com/fundwit/go-commons/types"
)

// Penalty is the financial consequence of an overdue task. At most one
// pending penalty may exist per task; escalation upgrades that row in
// place and never downgrades it.
type Penalty struct {
	ID     types.ID `json:"id" gorm:"primary_key"`
	TaskID types.ID `json:"taskId"`

	EmployeeID   string `json:"employeeId"`
	EmployeeName string `json:"employeeName"`

	PenaltyType PenaltyType   `json:"penaltyType"`
	Amount      float64       `json:"amount"`
	Reason      string        `json:"reason"`
	Status      PenaltyStatus `json:"status"`

	ApprovedBy    types.ID        `json:"approvedBy"`
	ApproveTime   types.Timestamp `json:"approveTime" sql:"type:DATETIME(6)"`
	PayrollPeriod string          `json:"payrollPeriod"`
	Notes         string          `json:"notes"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (p *Penalty) TableName() string {
	return "penalties"
}

// PenaltyDetail joins the penalty with its task's title and domain.
type PenaltyDetail struct {
	Penalty

	TaskTitle string `json:"taskTitle"`
	Domain    Domain `json:"domain"`
}

// PenaltySummary is the per-employee rollup of penalty records.
type PenaltySummary struct {
	EmployeeID   string `json:"employeeId"`
	EmployeeName string `json:"employeeName"`

	TotalPenalties int `json:"totalPenalties"`
	PendingCount   int `json:"pendingCount"`
	ApprovedCount  int `json:"approvedCount"`
	WaivedCount    int `json:"waivedCount"`

	TotalApprovedAmount float64 `json:"totalApprovedAmount"`
	TotalPendingAmount  float64 `json:"totalPendingAmount"`
}
