package penalty_test

import (
	"context"
	"testing"
	"time"

	"workhub/bizerror"
	"workhub/domain"
	"workhub/domain/penalty"
	"workhub/domain/stats"
	"workhub/persistence"
	"workhub/session"
	"workhub/testinfra"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) *gorm.DB {
	db := testinfra.StartMysqlTestDatabase("workhub")
	*testDatabase = db
	gormDB := db.DS.GormDB(context.Background())
	Expect(gormDB.AutoMigrate(&domain.Penalty{}, &domain.Task{}, &domain.EmployeeStats{}).Error).To(BeNil())

	persistence.ActiveDataSourceManager = db.DS
	return gormDB
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func buildOverdueTask(hoursOverdue float64, now time.Time) *domain.Task {
	return &domain.Task{
		ID: 1001, Title: "Install circuit",
		Domain: domain.DomainCircuits, Status: domain.TaskStatusOverdue,
		AssigneeID: "emp-1", AssigneeName: "Dana",
		Deadline: types.Timestamp(now.Add(-time.Duration(hoursOverdue * float64(time.Hour)))),
	}
}

func TestEvaluateTask(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.Local)
	penalty.CurrentTimestampFunc = func() types.Timestamp { return types.Timestamp(now) }
	defer func() { penalty.CurrentTimestampFunc = types.CurrentTimestamp }()

	t.Run("tasks without assignee or deadline never yield penalties", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)

		task := buildOverdueTask(10, now)
		task.AssigneeID = ""
		p, err := penalty.EvaluateTask(db, task)
		Expect(err).To(BeNil())
		Expect(p).To(BeNil())

		task = buildOverdueTask(10, now)
		task.Deadline = types.Timestamp{}
		p, err = penalty.EvaluateTask(db, task)
		Expect(err).To(BeNil())
		Expect(p).To(BeNil())
	})

	t.Run("a task still inside its deadline is untouched", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)

		task := buildOverdueTask(0, now)
		task.Status = domain.TaskStatusInProgress
		task.Deadline = types.Timestamp(now.Add(3 * time.Hour))
		p, err := penalty.EvaluateTask(db, task)
		Expect(err).To(BeNil())
		Expect(p).To(BeNil())
	})

	t.Run("amount escalates with hours overdue", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)

		cases := []struct {
			hoursOverdue float64
			amount       float64
			penaltyType  domain.PenaltyType
		}{
			{10, 50, domain.PenaltyTypeMinorDelay},
			{48, 150, domain.PenaltyTypeModerateDelay},
			{100, 300, domain.PenaltyTypeSevereDelay},
		}
		for idx, c := range cases {
			task := buildOverdueTask(c.hoursOverdue, now)
			task.ID = types.ID(2000 + idx)
			p, err := penalty.EvaluateTask(db, task)
			Expect(err).To(BeNil())
			Expect(p).ToNot(BeNil())
			Expect(p.Amount).To(Equal(c.amount))
			Expect(p.PenaltyType).To(Equal(c.penaltyType))
			Expect(p.Status).To(Equal(domain.PenaltyStatusPending))
			Expect(p.EmployeeID).To(Equal("emp-1"))
		}
	})

	t.Run("cancelling an overdue task costs the flat amount", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)

		task := buildOverdueTask(2, now)
		task.Status = domain.TaskStatusCancelled
		p, err := penalty.EvaluateTask(db, task)
		Expect(err).To(BeNil())
		Expect(p).ToNot(BeNil())
		Expect(p.Amount).To(Equal(float64(penalty.CancelledOverdueAmount)))
		Expect(p.PenaltyType).To(Equal(domain.PenaltyTypeCancelledOverdue))
	})

	t.Run("pending penalty upgrades in place and only upward", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)

		task := buildOverdueTask(10, now)
		first, err := penalty.EvaluateTask(db, task)
		Expect(err).To(BeNil())
		Expect(first.Amount).To(Equal(float64(50)))

		// same tier again: no-op
		p, err := penalty.EvaluateTask(db, task)
		Expect(err).To(BeNil())
		Expect(p).To(BeNil())

		// deeper overdue: same row, larger amount
		task.Deadline = types.Timestamp(now.Add(-48 * time.Hour))
		p, err = penalty.EvaluateTask(db, task)
		Expect(err).To(BeNil())
		Expect(p).ToNot(BeNil())
		Expect(p.ID).To(Equal(first.ID))
		Expect(p.Amount).To(Equal(float64(150)))

		var count int
		Expect(db.Model(&domain.Penalty{}).Where("task_id = ?", task.ID).Count(&count).Error).To(BeNil())
		Expect(count).To(Equal(1))

		// shallower evaluation never downgrades
		task.Deadline = types.Timestamp(now.Add(-10 * time.Hour))
		p, err = penalty.EvaluateTask(db, task)
		Expect(err).To(BeNil())
		Expect(p).To(BeNil())
	})

	t.Run("a resolved penalty is final for its task", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)

		task := buildOverdueTask(10, now)
		first, err := penalty.EvaluateTask(db, task)
		Expect(err).To(BeNil())
		Expect(db.Model(&domain.Penalty{}).Where("id = ?", first.ID).
			Update("status", domain.PenaltyStatusApproved).Error).To(BeNil())

		task.Deadline = types.Timestamp(now.Add(-100 * time.Hour))
		p, err := penalty.EvaluateTask(db, task)
		Expect(err).To(BeNil())
		Expect(p).To(BeNil())
	})
}

func TestApprovePenalty(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.Local)
	penalty.CurrentTimestampFunc = func() types.Timestamp { return types.Timestamp(now) }
	defer func() { penalty.CurrentTimestampFunc = types.CurrentTimestamp }()

	t.Run("approving adds the amount to the employee's total exactly once", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(500, session.RoleAdmin)

		Expect(db.Create(&domain.EmployeeStats{EmployeeID: "emp-1", EmployeeName: "Dana",
			UpdateTime: types.Timestamp(now)}).Error).To(BeNil())
		task := buildOverdueTask(48, now)
		created, err := penalty.EvaluateTask(db, task)
		Expect(err).To(BeNil())

		approved, err := penalty.ApprovePenalty(created.ID, "2024-05", sec)
		Expect(err).To(BeNil())
		Expect(approved.Status).To(Equal(domain.PenaltyStatusApproved))
		Expect(approved.ApprovedBy).To(Equal(types.ID(500)))
		Expect(approved.PayrollPeriod).To(Equal("2024-05"))

		record, err := stats.FindEmployeeStats("emp-1", sec)
		Expect(err).To(BeNil())
		Expect(record.TotalPenalties).To(Equal(float64(150)))

		_, err = penalty.ApprovePenalty(created.ID, "2024-05", sec)
		Expect(err).To(Equal(bizerror.ErrPenaltyNotPending))

		record, err = stats.FindEmployeeStats("emp-1", sec)
		Expect(err).To(BeNil())
		Expect(record.TotalPenalties).To(Equal(float64(150)))
	})

	t.Run("approving an unknown penalty fails with not found", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(500, session.RoleAdmin)

		_, err := penalty.ApprovePenalty(404404, "2024-05", sec)
		Expect(err).To(Equal(bizerror.ErrNotFound))
	})
}

func TestWaivePenalty(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.Local)
	penalty.CurrentTimestampFunc = func() types.Timestamp { return types.Timestamp(now) }
	defer func() { penalty.CurrentTimestampFunc = types.CurrentTimestamp }()

	t.Run("waiving keeps the employee's total untouched", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(500, session.RoleAdmin)

		task := buildOverdueTask(10, now)
		created, err := penalty.EvaluateTask(db, task)
		Expect(err).To(BeNil())

		waived, err := penalty.WaivePenalty(created.ID, "first offence", sec)
		Expect(err).To(BeNil())
		Expect(waived.Status).To(Equal(domain.PenaltyStatusWaived))
		Expect(waived.Notes).To(Equal("first offence"))

		record, err := stats.FindEmployeeStats("emp-1", sec)
		Expect(err).To(BeNil())
		Expect(record.TotalPenalties).To(BeZero())

		_, err = penalty.WaivePenalty(created.ID, "again", sec)
		Expect(err).To(Equal(bizerror.ErrPenaltyNotPending))
	})
}

func TestQueryPenalties(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	now := time.Date(2024, 5, 20, 12, 0, 0, 0, time.Local)
	penalty.CurrentTimestampFunc = func() types.Timestamp { return types.Timestamp(now) }
	defer func() { penalty.CurrentTimestampFunc = types.CurrentTimestamp }()

	t.Run("query joins task title and filters by status", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(500, session.RoleAdmin)

		task := buildOverdueTask(10, now)
		Expect(db.Create(task).Error).To(BeNil())
		created, err := penalty.EvaluateTask(db, task)
		Expect(err).To(BeNil())

		details, err := penalty.QueryPenalties(&penalty.PenaltyQuery{Status: domain.PenaltyStatusPending}, sec)
		Expect(err).To(BeNil())
		Expect(len(details)).To(Equal(1))
		Expect(details[0].ID).To(Equal(created.ID))
		Expect(details[0].TaskTitle).To(Equal("Install circuit"))
		Expect(details[0].Domain).To(Equal(domain.DomainCircuits))

		details, err = penalty.QueryPenalties(&penalty.PenaltyQuery{Status: domain.PenaltyStatusApproved}, sec)
		Expect(err).To(BeNil())
		Expect(len(details)).To(BeZero())
	})

	t.Run("summary groups by employee", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(500, session.RoleAdmin)

		t1 := buildOverdueTask(10, now)
		t1.ID = 3001
		_, err := penalty.EvaluateTask(db, t1)
		Expect(err).To(BeNil())

		t2 := buildOverdueTask(100, now)
		t2.ID = 3002
		t2.AssigneeID, t2.AssigneeName = "emp-2", "Robin"
		created, err := penalty.EvaluateTask(db, t2)
		Expect(err).To(BeNil())
		_, err = penalty.ApprovePenalty(created.ID, "2024-05", sec)
		Expect(err).To(BeNil())

		summaries, err := penalty.PenaltySummary(sec)
		Expect(err).To(BeNil())
		Expect(len(summaries)).To(Equal(2))

		byEmployee := map[string]domain.PenaltySummary{}
		for _, s := range summaries {
			byEmployee[s.EmployeeID] = s
		}
		Expect(byEmployee["emp-1"].PendingCount).To(Equal(1))
		Expect(byEmployee["emp-1"].TotalPendingAmount).To(Equal(float64(50)))
		Expect(byEmployee["emp-2"].ApprovedCount).To(Equal(1))
		Expect(byEmployee["emp-2"].TotalApprovedAmount).To(Equal(float64(300)))
	})
}
