package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fundwit/go-commons/types"
)

// WorkflowDefinition chains templates into an ordered list of stages.
type WorkflowDefinition struct {
	ID          types.ID `json:"id" gorm:"primary_key"`
	Name        string   `json:"name"`
	Domain      Domain   `json:"domain"`
	Description string   `json:"description"`

	TriggerType   TriggerType `json:"triggerType"`
	TriggerConfig string      `json:"triggerConfig" sql:"type:TEXT"`

	Stages   Stages `json:"stages" sql:"type:TEXT"`
	IsActive bool   `json:"isActive"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (d *WorkflowDefinition) TableName() string {
	return "workflow_definitions"
}

type Stage struct {
	Order           int      `json:"order"`
	TemplateID      types.ID `json:"templateId"`
	WaitForPrevious bool     `json:"waitForPrevious"`
}

// UnmarshalJSON treats a missing waitForPrevious as waiting. A stage
// only runs at start when it explicitly opts out of the gate.
func (s *Stage) UnmarshalJSON(data []byte) error {
	raw := struct {
		Order           int      `json:"order"`
		TemplateID      types.ID `json:"templateId"`
		WaitForPrevious *bool    `json:"waitForPrevious"`
	}{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Order = raw.Order
	s.TemplateID = raw.TemplateID
	s.WaitForPrevious = raw.WaitForPrevious == nil || *raw.WaitForPrevious
	return nil
}

type Stages []Stage

// FindStage returns the stage with the given order, or false.
func (s Stages) FindStage(order int) (Stage, bool) {
	for _, stage := range s {
		if stage.Order == order {
			return stage, true
		}
	}
	return Stage{}, false
}

// Validate checks that stage orders are unique and monotonically
// increasing starting at 1.
func (s Stages) Validate() error {
	if len(s) == 0 {
		return errors.New("stages must not be empty")
	}
	for idx, stage := range s {
		if stage.Order != idx+1 {
			return fmt.Errorf("stage order must be %d, but is %d", idx+1, stage.Order)
		}
		if stage.TemplateID == 0 {
			return fmt.Errorf("stage %d has no template", stage.Order)
		}
	}
	return nil
}

func (t Stages) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&t)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (c *Stages) Scan(v interface{}) error {
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
