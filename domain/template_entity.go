package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/fundwit/go-commons/types"
)

// Template is a reusable blueprint for one task: checklist step names,
// SLA budget and the rule resolving the assignee. A template referenced by
// running tasks is never mutated in place; updates only affect future
// instantiations.
type Template struct {
	ID          types.ID `json:"id" gorm:"primary_key"`
	Name        string   `json:"name"`
	Domain      Domain   `json:"domain"`
	Description string   `json:"description"`

	DefaultSlaHours    int          `json:"defaultSlaHours"`
	AssigneeRule       AssigneeRule `json:"assigneeRule"`
	AssigneeDepartment string       `json:"assigneeDepartment"`
	AssigneeRole       string       `json:"assigneeRole"`

	Steps    StepNames `json:"steps" sql:"type:TEXT"`
	Priority Priority  `json:"priority"`
	IsActive bool      `json:"isActive"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (t *Template) TableName() string {
	return "templates"
}

// StepNames is the ordered list of checklist step names, stored as a JSON
// TEXT column.
type StepNames []string

func (t StepNames) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *StepNames) Scan(v interface{}) error {
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
