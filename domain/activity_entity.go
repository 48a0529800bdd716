package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fundwit/go-commons/types"
)

const (
	ActivityCreated       = "created"
	ActivityAssigned      = "assigned"
	ActivityStarted       = "started"
	ActivityStepCompleted = "step_completed"
	ActivityCompleted     = "completed"
	ActivityCancelled     = "cancelled"
	ActivityOverdue       = "overdue"
)

// TaskActivity is the append-only audit record of a task: one row per
// state-changing operation, never mutated.
type TaskActivity struct {
	ID     types.ID `json:"id" gorm:"primary_key"`
	TaskID types.ID `json:"taskId"`

	Action    string          `json:"action"`
	ActorName string          `json:"actorName"`
	Details   ActivityDetails `json:"details" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (a *TaskActivity) TableName() string {
	return "task_activities"
}

type ActivityDetails map[string]interface{}

func (t ActivityDetails) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *ActivityDetails) Scan(v interface{}) error {
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
