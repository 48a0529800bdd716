package flow

import (
	"errors"

	"workhub/bizerror"
	"workhub/common"
	"workhub/domain"
	"workhub/domain/notify"
	"workhub/domain/task"
	"workhub/persistence"
	"workhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	StartWorkflowFunc  = StartWorkflow
	QueryInstancesFunc = QueryInstances
	DetailInstanceFunc = DetailInstance
	EntityJourneyFunc  = EntityJourney
)

func init() {
	task.AdvanceWorkflowFunc = AdvanceWorkflow
}

type InstanceCreation struct {
	DefinitionID types.ID `json:"definitionId" binding:"required"`

	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	EntityName string `json:"entityName"`
}

type InstanceQuery struct {
	Status       domain.InstanceStatus
	DefinitionID types.ID
	EntityType   string
	EntityID     string
	Limit        int
}

// EntityJourney bundles everything the engine knows about one business
// entity.
type Journey struct {
	Instances []domain.InstanceDetail `json:"instances"`
	Tasks     []domain.Task           `json:"tasks"`
}

// StartResult is what a caller gets back from starting a workflow:
// the new instance together with the tasks materialized at start.
type StartResult struct {
	Instance *domain.WorkflowInstance `json:"instance"`
	Tasks    []*domain.Task           `json:"tasks"`
}

// StartWorkflow creates an instance of an active definition and
// materializes the leading run of stages, stage one plus every
// following stage until the first one gated on its predecessor, in a
// single transaction.
func StartWorkflow(c *InstanceCreation, sec *session.Context) (*StartResult, error) {
	now := CurrentTimestampFunc()
	instance := &domain.WorkflowInstance{
		ID:           common.NextId(flowIdWorker),
		DefinitionID: c.DefinitionID,

		EntityType: c.EntityType,
		EntityID:   c.EntityID,
		EntityName: c.EntityName,

		Status:       domain.InstanceStatusActive,
		CurrentStage: 1,

		StartedBy: sec.Identity.ID,

		CreateTime: now,
		UpdateTime: now,
	}

	var created []*domain.Task
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Transaction(func(tx *gorm.DB) error {
		definition := domain.WorkflowDefinition{}
		if err := tx.Where(&domain.WorkflowDefinition{ID: c.DefinitionID}).First(&definition).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return bizerror.ErrNotFound
			}
			return err
		}
		if !definition.IsActive {
			return bizerror.ErrDefinitionInactive
		}

		if err := tx.Create(instance).Error; err != nil {
			return err
		}

		for _, stage := range definition.Stages {
			if stage.Order > 1 && stage.WaitForPrevious {
				break
			}
			t, err := materializeStage(tx, &definition, instance, stage, sec)
			if err != nil {
				return err
			}
			created = append(created, t...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, t := range created {
		if t.AssigneeID != "" {
			if _, err := notify.QueueNotificationFunc(t, domain.MessageTaskAssigned, sec); err != nil {
				common.Log.Warnf("failed to queue assignment notification for task %d: %v", t.ID, err)
			}
		}
		for _, f := range task.TaskChangedFuncs {
			f(t)
		}
	}
	if created == nil {
		created = []*domain.Task{}
	}
	return &StartResult{Instance: instance, Tasks: created}, nil
}

// AdvanceWorkflow re-evaluates the stage barrier after a task of an
// instance reaches a terminal status. It runs inside the transaction
// that closed the task.
func AdvanceWorkflow(tx *gorm.DB, completedTask *domain.Task, sec *session.Context) error {
	instance := domain.WorkflowInstance{}
	err := tx.Where(&domain.WorkflowInstance{ID: completedTask.WorkflowInstanceID}).First(&instance).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if instance.Status == domain.InstanceStatusCompleted || instance.Status == domain.InstanceStatusCancelled {
		return nil
	}

	definition := domain.WorkflowDefinition{}
	if err := tx.Where(&domain.WorkflowDefinition{ID: instance.DefinitionID}).First(&definition).Error; err != nil {
		return err
	}

	open, err := openTaskCount(tx, instance.ID, completedTask.StageOrder)
	if err != nil {
		return err
	}
	if open > 0 {
		return nil
	}

	// the current stage clearing pulls the next gated stage in; an
	// early-finished parallel stage only matters for overall completion
	if completedTask.StageOrder == instance.CurrentStage {
		next := instance.CurrentStage + 1
		for {
			stage, ok := definition.Stages.FindStage(next)
			if !ok {
				break
			}
			var existing int
			err := tx.Model(&domain.Task{}).
				Where("workflow_instance_id = ? AND stage_order = ?", instance.ID, stage.Order).
				Count(&existing).Error
			if err != nil {
				return err
			}
			if existing == 0 {
				if _, err := materializeStage(tx, &definition, &instance, stage, sec); err != nil {
					return err
				}
			}

			err = tx.Model(&domain.WorkflowInstance{}).
				Where("id = ?", instance.ID).
				Update(map[string]interface{}{"current_stage": next, "update_time": CurrentTimestampFunc()}).Error
			if err != nil {
				return err
			}
			instance.CurrentStage = next

			open, err := openTaskCount(tx, instance.ID, stage.Order)
			if err != nil {
				return err
			}
			if open > 0 {
				return nil
			}
			next++
		}
	}

	openTotal, err := openTaskCount(tx, instance.ID, 0)
	if err != nil {
		return err
	}
	if openTotal > 0 {
		return nil
	}

	now := CurrentTimestampFunc()
	return tx.Model(&domain.WorkflowInstance{}).
		Where("id = ?", instance.ID).
		Where("status = ?", domain.InstanceStatusActive).
		Update(map[string]interface{}{
			"status": domain.InstanceStatusCompleted, "complete_time": now, "update_time": now,
		}).Error
}

func QueryInstances(query *InstanceQuery, sec *session.Context) ([]domain.InstanceDetail, error) {
	var records []domain.InstanceDetail
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())

	q := db.Table("workflow_instances").
		Select("workflow_instances.*, workflow_definitions.name AS workflow_name, workflow_definitions.domain AS domain").
		Joins("LEFT JOIN workflow_definitions ON workflow_definitions.id = workflow_instances.definition_id")
	if query.Status != "" {
		q = q.Where("workflow_instances.status = ?", query.Status)
	}
	if query.DefinitionID != 0 {
		q = q.Where("workflow_instances.definition_id = ?", query.DefinitionID)
	}
	if query.EntityType != "" {
		q = q.Where("workflow_instances.entity_type = ?", query.EntityType)
	}
	if query.EntityID != "" {
		q = q.Where("workflow_instances.entity_id = ?", query.EntityID)
	}
	q = q.Order("workflow_instances.create_time DESC")
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}
	if err := q.Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailInstance(id types.ID, sec *session.Context) (*domain.InstanceDetail, error) {
	detail := domain.InstanceDetail{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	if err := db.Where(&domain.WorkflowInstance{ID: id}).First(&detail.WorkflowInstance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}

	definition := domain.WorkflowDefinition{}
	err := db.Where(&domain.WorkflowDefinition{ID: detail.DefinitionID}).First(&definition).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	detail.WorkflowName = definition.Name
	detail.Domain = definition.Domain
	return &detail, nil
}

// EntityJourney lists all instances and tasks recorded for a business
// entity, newest first.
func EntityJourney(entityType, entityID string, sec *session.Context) (*Journey, error) {
	instances, err := QueryInstancesFunc(&InstanceQuery{EntityType: entityType, EntityID: entityID}, sec)
	if err != nil {
		return nil, err
	}
	tasks, err := task.QueryTasksFunc(&task.TaskQuery{EntityType: entityType, EntityID: entityID}, sec)
	if err != nil {
		return nil, err
	}
	journey := Journey{Instances: instances, Tasks: tasks}
	if journey.Instances == nil {
		journey.Instances = []domain.InstanceDetail{}
	}
	if journey.Tasks == nil {
		journey.Tasks = []domain.Task{}
	}
	return &journey, nil
}

func materializeStage(tx *gorm.DB, definition *domain.WorkflowDefinition, instance *domain.WorkflowInstance,
	stage domain.Stage, sec *session.Context) ([]*domain.Task, error) {

	template := domain.Template{}
	if err := tx.Where(&domain.Template{ID: stage.TemplateID}).First(&template).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrUnknownStage
		}
		return nil, err
	}

	t, err := task.BuildTaskFromTemplateFunc(tx, &template, instance, stage, sec)
	if err != nil {
		return nil, err
	}
	return []*domain.Task{t}, nil
}

// openTaskCount counts non-terminal tasks of an instance; stageOrder 0
// spans all stages.
func openTaskCount(tx *gorm.DB, instanceID types.ID, stageOrder int) (int, error) {
	count := 0
	q := tx.Model(&domain.Task{}).
		Where("workflow_instance_id = ?", instanceID).
		Where("status NOT IN (?)", domain.TaskTerminalStatuses)
	if stageOrder > 0 {
		q = q.Where("stage_order = ?", stageOrder)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
