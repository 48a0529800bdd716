package task

import (
	"workhub/common"
	"workhub/domain"
	"workhub/domain/task/assign"
	"workhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var BuildTaskFromTemplateFunc = BuildTaskFromTemplate

// BuildTaskFromTemplate materializes one task for a workflow stage inside
// the caller's transaction: checklist copied 1:1 from the template's step
// names, deadline fixed to now + SLA, assignee resolved by the template's
// rule. The task starts assigned when the rule resolves, pending
// otherwise.
func BuildTaskFromTemplate(tx *gorm.DB, template *domain.Template, instance *domain.WorkflowInstance,
	stage domain.Stage, sec *session.Context) (*domain.Task, error) {

	now := CurrentTimestampFunc()

	checklist := make(domain.Checklist, 0, len(template.Steps))
	for idx, name := range template.Steps {
		checklist = append(checklist, domain.ChecklistStep{Order: idx + 1, Name: name})
	}

	t := &domain.Task{
		ID: common.NextId(taskIdWorker),

		WorkflowInstanceID: instance.ID,
		TemplateID:         template.ID,
		StageOrder:         stage.Order,

		Title:       template.Name,
		Description: template.Description,
		Domain:      template.Domain,
		Status:      domain.TaskStatusPending,
		Priority:    template.Priority,

		EntityType: instance.EntityType,
		EntityID:   instance.EntityID,
		EntityName: instance.EntityName,

		Checklist:      checklist,
		StepsCompleted: 0,
		StepsTotal:     len(checklist),

		SlaHours: template.DefaultSlaHours,
		Deadline: types.Timestamp(now.Time().Add(slaDuration(template.DefaultSlaHours))),

		CreateTime: now,
		UpdateTime: now,
	}

	if assignee, resolved := assign.ResolveFunc(assign.RuleOfTemplate(template), sec); resolved {
		t.AssigneeID = assignee.ID
		t.AssigneeName = assignee.Name
		t.Status = domain.TaskStatusAssigned
	}

	if err := tx.Create(t).Error; err != nil {
		return nil, err
	}

	err := CreateActivity(tx, t.ID, domain.ActivityCreated, "System",
		domain.ActivityDetails{"template": template.Name, "workflow": instance.ID.String()})
	if err != nil {
		return nil, err
	}
	return t, nil
}
