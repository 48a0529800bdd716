package domain

import (
	"github.com/fundwit/go-commons/types"
)

// WorkflowInstance is one running execution of a definition against a
// business entity. Only the orchestrator mutates it; completed and
// cancelled are terminal.
type WorkflowInstance struct {
	ID           types.ID `json:"id" gorm:"primary_key"`
	DefinitionID types.ID `json:"definitionId"`

	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	EntityName string `json:"entityName"`

	Status       InstanceStatus `json:"status"`
	CurrentStage int            `json:"currentStage"`

	StartedBy types.ID `json:"startedBy"`

	CreateTime   types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime   types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
	CompleteTime types.Timestamp `json:"completeTime" sql:"type:DATETIME(6)"`
}

func (i *WorkflowInstance) TableName() string {
	return "workflow_instances"
}

// InstanceDetail joins the instance with its definition's name and domain.
type InstanceDetail struct {
	WorkflowInstance

	WorkflowName string `json:"workflowName"`
	Domain       Domain `json:"domain"`
}
