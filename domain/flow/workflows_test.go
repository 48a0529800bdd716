package flow_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"workhub/bizerror"
	"workhub/domain"
	"workhub/domain/flow"
	"workhub/domain/notify"
	"workhub/domain/task"
	"workhub/domain/template"
	"workhub/persistence"
	"workhub/session"
	"workhub/testinfra"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
)

var fixedNow = time.Date(2024, 5, 20, 9, 0, 0, 0, time.Local)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) *gorm.DB {
	db := testinfra.StartMysqlTestDatabase("workhub")
	*testDatabase = db
	gormDB := db.DS.GormDB(context.Background())
	assert.Nil(t, gormDB.AutoMigrate(&domain.Template{}, &domain.WorkflowDefinition{}, &domain.WorkflowInstance{},
		&domain.Task{}, &domain.TaskActivity{}, &domain.EmployeeStats{}).Error)

	persistence.ActiveDataSourceManager = db.DS
	task.CurrentTimestampFunc = func() types.Timestamp { return types.Timestamp(fixedNow) }
	flow.CurrentTimestampFunc = func() types.Timestamp { return types.Timestamp(fixedNow) }
	notify.QueueNotificationFunc = func(t *domain.Task, kind domain.MessageType, sec *session.Context) (*domain.Notification, error) {
		return nil, nil
	}
	return gormDB
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}

	task.CurrentTimestampFunc = types.CurrentTimestamp
	flow.CurrentTimestampFunc = types.CurrentTimestamp
	notify.QueueNotificationFunc = notify.QueueNotification
	task.TaskChangedFuncs = nil
}

func buildDefinition(t *testing.T, sec *session.Context, wait bool) *domain.WorkflowDefinition {
	first, err := template.CreateTemplate(&template.TemplateCreation{
		Name:   "Site survey",
		Domain: domain.DomainCircuits,
		Steps:  domain.StepNames{"measure", "report"},
	}, sec)
	Expect(err).To(BeNil())
	second, err := template.CreateTemplate(&template.TemplateCreation{
		Name: "Installation", Domain: domain.DomainCircuits,
	}, sec)
	Expect(err).To(BeNil())

	definition, err := flow.CreateDefinition(&flow.DefinitionCreation{
		Name: "Circuit delivery", Domain: domain.DomainCircuits,
		Stages: domain.Stages{
			{Order: 1, TemplateID: first.ID, WaitForPrevious: false},
			{Order: 2, TemplateID: second.ID, WaitForPrevious: wait},
		},
	}, sec)
	Expect(err).To(BeNil())
	return definition
}

func TestStartWorkflow(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("starting materializes only the gated first stage", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(10, session.RoleAdmin)
		definition := buildDefinition(t, sec, true)

		started, err := flow.StartWorkflow(&flow.InstanceCreation{
			DefinitionID: definition.ID,
			EntityType:   "customer", EntityID: "cust-9", EntityName: "Acme",
		}, sec)
		Expect(err).To(BeNil())
		Expect(started.Instance.Status).To(Equal(domain.InstanceStatusActive))
		Expect(started.Instance.CurrentStage).To(Equal(1))
		Expect(started.Instance.StartedBy).To(Equal(types.ID(10)))

		// the materialized tasks come back with the instance
		Expect(len(started.Tasks)).To(Equal(1))
		Expect(started.Tasks[0].Title).To(Equal("Site survey"))

		tasks, err := task.QueryTasks(&task.TaskQuery{WorkflowInstanceID: started.Instance.ID}, sec)
		Expect(err).To(BeNil())
		Expect(len(tasks)).To(Equal(1))
		Expect(tasks[0].ID).To(Equal(started.Tasks[0].ID))
		Expect(tasks[0].Title).To(Equal("Site survey"))
		Expect(tasks[0].StageOrder).To(Equal(1))
		Expect(tasks[0].StepsTotal).To(Equal(2))
		Expect(tasks[0].EntityID).To(Equal("cust-9"))
	})

	t.Run("an ungated stage is materialized at start", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(10, session.RoleAdmin)
		definition := buildDefinition(t, sec, false)

		started, err := flow.StartWorkflow(&flow.InstanceCreation{DefinitionID: definition.ID}, sec)
		Expect(err).To(BeNil())
		Expect(len(started.Tasks)).To(Equal(2))

		tasks, err := task.QueryTasks(&task.TaskQuery{WorkflowInstanceID: started.Instance.ID}, sec)
		Expect(err).To(BeNil())
		Expect(len(tasks)).To(Equal(2))
	})

	t.Run("materialization stops at the first waiting stage", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(10, session.RoleAdmin)

		first, err := template.CreateTemplate(&template.TemplateCreation{
			Name: "Qualify lead", Domain: domain.DomainSales,
		}, sec)
		Expect(err).To(BeNil())
		second, err := template.CreateTemplate(&template.TemplateCreation{
			Name: "Draft contract", Domain: domain.DomainSales,
		}, sec)
		Expect(err).To(BeNil())
		third, err := template.CreateTemplate(&template.TemplateCreation{
			Name: "Announce win", Domain: domain.DomainSales,
		}, sec)
		Expect(err).To(BeNil())

		definition, err := flow.CreateDefinition(&flow.DefinitionCreation{
			Name: "Closing", Domain: domain.DomainSales,
			Stages: domain.Stages{
				{Order: 1, TemplateID: first.ID, WaitForPrevious: false},
				{Order: 2, TemplateID: second.ID, WaitForPrevious: true},
				{Order: 3, TemplateID: third.ID, WaitForPrevious: false},
			},
		}, sec)
		Expect(err).To(BeNil())

		// stage 3 does not wait, but stage 2 does and shields it
		started, err := flow.StartWorkflow(&flow.InstanceCreation{DefinitionID: definition.ID}, sec)
		Expect(err).To(BeNil())
		Expect(len(started.Tasks)).To(Equal(1))
		Expect(started.Tasks[0].StageOrder).To(Equal(1))

		tasks, err := task.QueryTasks(&task.TaskQuery{WorkflowInstanceID: started.Instance.ID}, sec)
		Expect(err).To(BeNil())
		Expect(len(tasks)).To(Equal(1))
		Expect(tasks[0].Title).To(Equal("Qualify lead"))
	})

	t.Run("a stage without an explicit wait flag waits for its predecessor", func(t *testing.T) {
		stages := domain.Stages{}
		Expect(json.Unmarshal([]byte(`[
			{"order": 1, "templateId": "101"},
			{"order": 2, "templateId": "102"},
			{"order": 3, "templateId": "103", "waitForPrevious": false}
		]`), &stages)).To(BeNil())
		Expect(stages[0].WaitForPrevious).To(BeTrue())
		Expect(stages[1].WaitForPrevious).To(BeTrue())
		Expect(stages[2].WaitForPrevious).To(BeFalse())
	})

	t.Run("unknown or inactive definitions are rejected", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(10, session.RoleAdmin)

		_, err := flow.StartWorkflow(&flow.InstanceCreation{DefinitionID: 404404}, sec)
		Expect(err).To(Equal(bizerror.ErrNotFound))

		definition := buildDefinition(t, sec, true)
		inactive := false
		_, err = flow.UpdateDefinition(definition.ID, &flow.DefinitionUpdating{IsActive: &inactive}, sec)
		Expect(err).To(BeNil())

		_, err = flow.StartWorkflow(&flow.InstanceCreation{DefinitionID: definition.ID}, sec)
		Expect(err).To(Equal(bizerror.ErrDefinitionInactive))
	})
}

func TestAdvanceWorkflow(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("completing the stage barrier pulls in the next stage and finally the instance", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(10, session.RoleAdmin)
		definition := buildDefinition(t, sec, true)

		started, err := flow.StartWorkflow(&flow.InstanceCreation{DefinitionID: definition.ID}, sec)
		Expect(err).To(BeNil())
		instance := started.Instance

		tasks, err := task.QueryTasks(&task.TaskQuery{WorkflowInstanceID: instance.ID}, sec)
		Expect(err).To(BeNil())
		Expect(len(tasks)).To(Equal(1))

		// stage 1 completes: stage 2 materializes, instance advances
		_, err = task.CompleteTask(tasks[0].ID, "", sec)
		Expect(err).To(BeNil())

		detail, err := flow.DetailInstance(instance.ID, sec)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(domain.InstanceStatusActive))
		Expect(detail.CurrentStage).To(Equal(2))
		Expect(detail.WorkflowName).To(Equal("Circuit delivery"))

		tasks, err = task.QueryTasks(&task.TaskQuery{WorkflowInstanceID: instance.ID}, sec)
		Expect(err).To(BeNil())
		Expect(len(tasks)).To(Equal(2))
		var stageTwo *domain.Task
		for idx := range tasks {
			if tasks[idx].StageOrder == 2 {
				stageTwo = &tasks[idx]
			}
		}
		Expect(stageTwo).ToNot(BeNil())
		Expect(stageTwo.Title).To(Equal("Installation"))

		// stage 2 completes: no next stage, the instance finishes
		_, err = task.CompleteTask(stageTwo.ID, "", sec)
		Expect(err).To(BeNil())

		detail, err = flow.DetailInstance(instance.ID, sec)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(domain.InstanceStatusCompleted))
		Expect(detail.CompleteTime).To(Equal(types.Timestamp(fixedNow)))
	})

	t.Run("a cancelled task also clears the barrier", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(10, session.RoleAdmin)
		definition := buildDefinition(t, sec, true)

		started, err := flow.StartWorkflow(&flow.InstanceCreation{DefinitionID: definition.ID}, sec)
		Expect(err).To(BeNil())
		instance := started.Instance
		tasks, err := task.QueryTasks(&task.TaskQuery{WorkflowInstanceID: instance.ID}, sec)
		Expect(err).To(BeNil())

		_, err = task.CancelTask(tasks[0].ID, "not needed", sec)
		Expect(err).To(BeNil())

		detail, err := flow.DetailInstance(instance.ID, sec)
		Expect(err).To(BeNil())
		Expect(detail.CurrentStage).To(Equal(2))
		Expect(detail.Status).To(Equal(domain.InstanceStatusActive))
	})

	t.Run("parallel stages complete the instance only when all tasks are closed", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(10, session.RoleAdmin)
		definition := buildDefinition(t, sec, false)

		started, err := flow.StartWorkflow(&flow.InstanceCreation{DefinitionID: definition.ID}, sec)
		Expect(err).To(BeNil())
		instance := started.Instance
		tasks, err := task.QueryTasks(&task.TaskQuery{WorkflowInstanceID: instance.ID}, sec)
		Expect(err).To(BeNil())
		Expect(len(tasks)).To(Equal(2))

		var stageOne, stageTwo *domain.Task
		for idx := range tasks {
			if tasks[idx].StageOrder == 1 {
				stageOne = &tasks[idx]
			} else {
				stageTwo = &tasks[idx]
			}
		}

		// the early-finished parallel stage alone completes nothing
		_, err = task.CompleteTask(stageTwo.ID, "", sec)
		Expect(err).To(BeNil())
		detail, err := flow.DetailInstance(instance.ID, sec)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(domain.InstanceStatusActive))

		_, err = task.CompleteTask(stageOne.ID, "", sec)
		Expect(err).To(BeNil())
		detail, err = flow.DetailInstance(instance.ID, sec)
		Expect(err).To(BeNil())
		Expect(detail.Status).To(Equal(domain.InstanceStatusCompleted))
	})
}

func TestEntityJourney(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("journey bundles instances and tasks of the entity", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		sec := testinfra.BuildSecCtx(10, session.RoleAdmin)
		definition := buildDefinition(t, sec, true)

		started, err := flow.StartWorkflow(&flow.InstanceCreation{
			DefinitionID: definition.ID,
			EntityType:   "customer", EntityID: "cust-9", EntityName: "Acme",
		}, sec)
		Expect(err).To(BeNil())

		journey, err := flow.EntityJourney("customer", "cust-9", sec)
		Expect(err).To(BeNil())
		Expect(len(journey.Instances)).To(Equal(1))
		Expect(journey.Instances[0].ID).To(Equal(started.Instance.ID))
		Expect(len(journey.Tasks)).To(Equal(1))

		journey, err = flow.EntityJourney("customer", "cust-none", sec)
		Expect(err).To(BeNil())
		Expect(journey.Instances).To(BeEmpty())
		Expect(journey.Tasks).To(BeEmpty())
	})
}
