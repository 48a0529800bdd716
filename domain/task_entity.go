package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fundwit/go-commons/types"
)

// Task is one concrete work item, standalone or spawned by a workflow
// stage. The deadline is fixed at creation and never recomputed.
type Task struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	// WorkflowInstanceID is zero for standalone tasks.
	WorkflowInstanceID types.ID `json:"workflowInstanceId"`
	TemplateID         types.ID `json:"templateId"`
	StageOrder         int      `json:"stageOrder"`

	Title       string     `json:"title"`
	Description string     `json:"description"`
	Domain      Domain     `json:"domain"`
	Status      TaskStatus `json:"status"`
	Priority    Priority   `json:"priority"`

	AssigneeID   string   `json:"assigneeId"`
	AssigneeName string   `json:"assigneeName"`
	AssignedBy   types.ID `json:"assignedBy"`

	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	EntityName string `json:"entityName"`

	Checklist      Checklist `json:"checklist" sql:"type:TEXT"`
	StepsCompleted int       `json:"stepsCompleted"`
	StepsTotal     int       `json:"stepsTotal"`

	SlaHours int             `json:"slaHours"`
	Deadline types.Timestamp `json:"deadline" sql:"type:DATETIME(6)"`

	StartTime    types.Timestamp `json:"startTime" sql:"type:DATETIME(6)"`
	CompleteTime types.Timestamp `json:"completeTime" sql:"type:DATETIME(6)"`
	CompletedBy  string          `json:"completedBy"`
	Notes        string          `json:"notes"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (t *Task) TableName() string {
	return "tasks"
}

type ChecklistStep struct {
	Order       int             `json:"order"`
	Name        string          `json:"name"`
	Completed   bool            `json:"completed"`
	CompletedAt types.Timestamp `json:"completedAt"`
	CompletedBy string          `json:"completedBy"`
}

type Checklist []ChecklistStep

// CompletedCount keeps the steps_completed column honest: it is the only
// source the task ops may persist.
func (c Checklist) CompletedCount() int {
	n := 0
	for _, step := range c {
		if step.Completed {
			n++
		}
	}
	return n
}

func (t Checklist) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *Checklist) Scan(v interface{}) error {
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	return json.Unmarshal([]byte(jsonString), c)
}

// TaskDetail joins a task with its activity trail.
type TaskDetail struct {
	Task

	Activities []TaskActivity `json:"activities"`
}
