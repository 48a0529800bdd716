package penalty

import (
	"errors"
	"fmt"

	"workhub/bizerror"
	"workhub/common"
	"workhub/domain"
	"workhub/domain/stats"
	"workhub/persistence"
	"workhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

// CancelledOverdueAmount applies whenever a task is cancelled while
// overdue, regardless of how long it was overdue.
const CancelledOverdueAmount = 500

type tierRule struct {
	MaxHours float64
	Amount   float64
	Type     domain.PenaltyType
	Label    string
}

// tiers are evaluated by hours-overdue ascending; first match wins.
var tiers = []tierRule{
	{MaxHours: 24, Amount: 50, Type: domain.PenaltyTypeMinorDelay, Label: "Overdue < 24h"},
	{MaxHours: 72, Amount: 150, Type: domain.PenaltyTypeModerateDelay, Label: "Overdue 1-3 days"},
	{MaxHours: -1, Amount: 300, Type: domain.PenaltyTypeSevereDelay, Label: "Overdue > 3 days"},
}

var (
	idWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	EvaluateTaskFunc   = EvaluateTask
	QueryPenaltiesFunc = QueryPenalties
	PenaltySummaryFunc = PenaltySummary
	ApprovePenaltyFunc = ApprovePenalty
	WaivePenaltyFunc   = WaivePenalty

	CurrentTimestampFunc = types.CurrentTimestamp
)

type PenaltyQuery struct {
	Status        domain.PenaltyStatus
	EmployeeID    string
	PayrollPeriod string
	Limit         int
}

// EvaluateTask derives the penalty a task's overdue state warrants and
// applies it against the task's single pending penalty row: create when
// absent, upgrade in place when the new amount is strictly greater, no-op
// otherwise. A penalty that already left pending is final for this task.
func EvaluateTask(tx *gorm.DB, task *domain.Task) (*domain.Penalty, error) {
	if task.AssigneeID == "" || task.Deadline == (types.Timestamp{}) {
		return nil, nil
	}
	now := CurrentTimestampFunc()
	if !now.Time().After(task.Deadline.Time()) && task.Status != domain.TaskStatusCancelled {
		return nil, nil
	}
	hoursOverdue := now.Time().Sub(task.Deadline.Time()).Hours()

	var amount float64
	var penaltyType domain.PenaltyType
	var reason string
	if task.Status == domain.TaskStatusCancelled {
		amount = CancelledOverdueAmount
		penaltyType = domain.PenaltyTypeCancelledOverdue
		reason = fmt.Sprintf("Task %q cancelled while overdue by %.1fh", task.Title, hoursOverdue)
	} else {
		rule := tiers[len(tiers)-1]
		for _, t := range tiers {
			if t.MaxHours > 0 && hoursOverdue <= t.MaxHours {
				rule = t
				break
			}
		}
		amount = rule.Amount
		penaltyType = rule.Type
		reason = fmt.Sprintf("Task %q overdue by %.1fh (%s)", task.Title, hoursOverdue, rule.Label)
	}

	var existing []domain.Penalty
	if err := tx.Where("task_id = ?", task.ID).Order("create_time DESC").Limit(1).Find(&existing).Error; err != nil {
		return nil, err
	}

	if len(existing) > 0 {
		last := existing[0]
		if last.Status != domain.PenaltyStatusPending || last.Amount >= amount {
			return nil, nil
		}
		err := tx.Model(&domain.Penalty{}).
			Where("id = ?", last.ID).
			Where("status = ?", domain.PenaltyStatusPending).
			Update(map[string]interface{}{
				"amount": amount, "penalty_type": penaltyType, "reason": reason, "update_time": now,
			}).Error
		if err != nil {
			return nil, err
		}
		last.Amount = amount
		last.PenaltyType = penaltyType
		last.Reason = reason
		last.UpdateTime = now
		return &last, nil
	}

	p := domain.Penalty{
		ID:     common.NextId(idWorker),
		TaskID: task.ID,

		EmployeeID:   task.AssigneeID,
		EmployeeName: task.AssigneeName,

		PenaltyType: penaltyType,
		Amount:      amount,
		Reason:      reason,
		Status:      domain.PenaltyStatusPending,

		CreateTime: now,
		UpdateTime: now,
	}
	if err := tx.Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func QueryPenalties(query *PenaltyQuery, sec *session.Context) ([]domain.PenaltyDetail, error) {
	var penalties []domain.Penalty
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())

	q := db.Model(&domain.Penalty{})
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.EmployeeID != "" {
		q = q.Where("employee_id = ?", query.EmployeeID)
	}
	if query.PayrollPeriod != "" {
		q = q.Where("payroll_period = ?", query.PayrollPeriod)
	}
	q = q.Order("create_time DESC")
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	if err := q.Find(&penalties).Error; err != nil {
		return nil, err
	}

	details := make([]domain.PenaltyDetail, 0, len(penalties))
	for _, p := range penalties {
		detail := domain.PenaltyDetail{Penalty: p}
		var task domain.Task
		err := db.Select("title, domain").Where(&domain.Task{ID: p.TaskID}).First(&task).Error
		if err == nil {
			detail.TaskTitle = task.Title
			detail.Domain = task.Domain
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

func PenaltySummary(sec *session.Context) ([]domain.PenaltySummary, error) {
	var summaries []domain.PenaltySummary
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Raw(`SELECT employee_id, employee_name,
			COUNT(*) AS total_penalties,
			SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END) AS pending_count,
			SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END) AS approved_count,
			SUM(CASE WHEN status = 'waived' THEN 1 ELSE 0 END) AS waived_count,
			SUM(CASE WHEN status = 'approved' THEN amount ELSE 0 END) AS total_approved_amount,
			SUM(CASE WHEN status = 'pending' THEN amount ELSE 0 END) AS total_pending_amount
		FROM penalties GROUP BY employee_id, employee_name
		ORDER BY total_pending_amount DESC`).Scan(&summaries).Error
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// ApprovePenalty is valid only while the penalty is pending; it stamps the
// approver and adds the amount to the employee's cumulative total in the
// same transaction.
func ApprovePenalty(id types.ID, payrollPeriod string, sec *session.Context) (*domain.Penalty, error) {
	p := domain.Penalty{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.Penalty{ID: id}).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return bizerror.ErrNotFound
			}
			return err
		}
		if p.Status != domain.PenaltyStatusPending {
			return bizerror.ErrPenaltyNotPending
		}

		now := CurrentTimestampFunc()
		result := tx.Model(&domain.Penalty{}).
			Where("id = ?", id).
			Where("status = ?", domain.PenaltyStatusPending).
			Update(map[string]interface{}{
				"status": domain.PenaltyStatusApproved, "approved_by": sec.Identity.ID,
				"approve_time": now, "payroll_period": payrollPeriod, "update_time": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return bizerror.ErrPenaltyNotPending
		}

		if err := stats.AddPenaltyTotal(tx, p.EmployeeID, p.Amount); err != nil {
			return err
		}
		return tx.Where(&domain.Penalty{ID: id}).First(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// WaivePenalty is valid only while the penalty is pending.
func WaivePenalty(id types.ID, notes string, sec *session.Context) (*domain.Penalty, error) {
	p := domain.Penalty{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.Penalty{ID: id}).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return bizerror.ErrNotFound
			}
			return err
		}
		if p.Status != domain.PenaltyStatusPending {
			return bizerror.ErrPenaltyNotPending
		}

		now := CurrentTimestampFunc()
		result := tx.Model(&domain.Penalty{}).
			Where("id = ?", id).
			Where("status = ?", domain.PenaltyStatusPending).
			Update(map[string]interface{}{
				"status": domain.PenaltyStatusWaived, "approved_by": sec.Identity.ID,
				"approve_time": now, "notes": notes, "update_time": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return bizerror.ErrPenaltyNotPending
		}
		return tx.Where(&domain.Penalty{ID: id}).First(&p).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}
