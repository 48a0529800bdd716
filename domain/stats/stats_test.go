package stats_test

import (
	"context"
	"testing"
	"time"

	"workhub/domain"
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
	Expect(gormDB.AutoMigrate(&domain.EmployeeStats{}).Error).To(BeNil())

	persistence.ActiveDataSourceManager = db.DS
	return gormDB
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func buildCompletedTask(start, complete, deadline time.Time) *domain.Task {
	return &domain.Task{
		ID: 100, Title: "follow up lead",
		AssigneeID: "emp-1", AssigneeName: "Dana",
		Status:       domain.TaskStatusCompleted,
		StartTime:    types.Timestamp(start),
		CompleteTime: types.Timestamp(complete),
		Deadline:     types.Timestamp(deadline),
	}
}

func TestRecordCompletion(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	base := time.Date(2024, 5, 20, 8, 0, 0, 0, time.Local)

	t.Run("first completion creates the rollup row", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(10, session.RoleUser)

		task := buildCompletedTask(base, base.Add(4*time.Hour), base.Add(8*time.Hour))
		Expect(stats.RecordCompletion(db, task)).To(BeNil())

		record, err := stats.FindEmployeeStats("emp-1", sec)
		Expect(err).To(BeNil())
		Expect(record.TasksCompleted).To(Equal(1))
		Expect(record.TasksOnTime).To(Equal(1))
		Expect(record.AvgCompletionHours).To(Equal(float64(4)))
	})

	t.Run("average updates incrementally and late completions do not count on time", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(10, session.RoleUser)

		first := buildCompletedTask(base, base.Add(4*time.Hour), base.Add(8*time.Hour))
		Expect(stats.RecordCompletion(db, first)).To(BeNil())

		// 10h completion, past the deadline
		second := buildCompletedTask(base, base.Add(10*time.Hour), base.Add(8*time.Hour))
		second.ID = 101
		Expect(stats.RecordCompletion(db, second)).To(BeNil())

		record, err := stats.FindEmployeeStats("emp-1", sec)
		Expect(err).To(BeNil())
		Expect(record.TasksCompleted).To(Equal(2))
		Expect(record.TasksOnTime).To(Equal(1))
		Expect(record.AvgCompletionHours).To(Equal(float64(7)))
	})

	t.Run("tasks never started contribute zero hours", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(10, session.RoleUser)

		task := buildCompletedTask(base, base.Add(4*time.Hour), base.Add(8*time.Hour))
		task.StartTime = types.Timestamp{}
		Expect(stats.RecordCompletion(db, task)).To(BeNil())

		record, err := stats.FindEmployeeStats("emp-1", sec)
		Expect(err).To(BeNil())
		Expect(record.AvgCompletionHours).To(BeZero())
	})

	t.Run("tasks without assignee are skipped", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)

		task := buildCompletedTask(base, base.Add(4*time.Hour), base.Add(8*time.Hour))
		task.AssigneeID = ""
		Expect(stats.RecordCompletion(db, task)).To(BeNil())

		var count int
		Expect(db.Model(&domain.EmployeeStats{}).Count(&count).Error).To(BeNil())
		Expect(count).To(BeZero())
	})
}

func TestQueryLeaderboard(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("leaderboard orders by completions and derives on-time rate", func(t *testing.T) {
		defer teardown(t, testDatabase)
		db := setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(10, session.RoleUser)

		now := types.CurrentTimestamp()
		Expect(db.Create(&domain.EmployeeStats{EmployeeID: "emp-1", EmployeeName: "Dana",
			TasksCompleted: 10, TasksOnTime: 9, UpdateTime: now}).Error).To(BeNil())
		Expect(db.Create(&domain.EmployeeStats{EmployeeID: "emp-2", EmployeeName: "Robin",
			TasksCompleted: 3, TasksOnTime: 1, UpdateTime: now}).Error).To(BeNil())

		entries, err := stats.QueryLeaderboard(sec)
		Expect(err).To(BeNil())
		Expect(len(entries)).To(Equal(2))
		Expect(entries[0].EmployeeID).To(Equal("emp-1"))
		Expect(entries[0].OnTimeRate).To(Equal(90))
		Expect(entries[1].EmployeeID).To(Equal("emp-2"))
		Expect(entries[1].OnTimeRate).To(Equal(33))
	})

	t.Run("employees without a rollup row read back as zeroes", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(10, session.RoleUser)

		record, err := stats.FindEmployeeStats("emp-none", sec)
		Expect(err).To(BeNil())
		Expect(record.EmployeeID).To(Equal("emp-none"))
		Expect(record.TasksCompleted).To(BeZero())
		Expect(record.TotalPenalties).To(BeZero())
	})
}
