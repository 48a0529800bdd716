package flow

import (
	"errors"

	"workhub/bizerror"
	"workhub/common"
	"workhub/domain"
	"workhub/persistence"
	"workhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	flowIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryDefinitionsFunc = QueryDefinitions
	DetailDefinitionFunc = DetailDefinition
	CreateDefinitionFunc = CreateDefinition
	UpdateDefinitionFunc = UpdateDefinition

	CurrentTimestampFunc = types.CurrentTimestamp
)

type DefinitionCreation struct {
	Name        string        `json:"name" binding:"required"`
	Domain      domain.Domain `json:"domain" binding:"required,oneof=sales circuits marketing hr"`
	Description string        `json:"description"`

	TriggerType   domain.TriggerType `json:"triggerType" binding:"omitempty,oneof=manual auto_on_create auto_on_status scheduled"`
	TriggerConfig string             `json:"triggerConfig"`

	Stages domain.Stages `json:"stages" binding:"required"`
}

type DefinitionUpdating struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`

	TriggerType   *domain.TriggerType `json:"triggerType"`
	TriggerConfig *string             `json:"triggerConfig"`

	Stages   *domain.Stages `json:"stages"`
	IsActive *bool          `json:"isActive"`
}

func QueryDefinitions(d domain.Domain, sec *session.Context) ([]domain.WorkflowDefinition, error) {
	var records []domain.WorkflowDefinition
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	q := db.Where("is_active = ?", true)
	if d != "" {
		q = q.Where("domain = ?", d)
	}
	if err := q.Order("domain, name").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func DetailDefinition(id types.ID, sec *session.Context) (*domain.WorkflowDefinition, error) {
	record := domain.WorkflowDefinition{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	if err := db.Where(&domain.WorkflowDefinition{ID: id}).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func CreateDefinition(c *DefinitionCreation, sec *session.Context) (*domain.WorkflowDefinition, error) {
	if err := c.Stages.Validate(); err != nil {
		return nil, &bizerror.ErrBadParam{Cause: err}
	}
	triggerType := c.TriggerType
	if triggerType == "" {
		triggerType = domain.TriggerManual
	}

	now := CurrentTimestampFunc()
	record := &domain.WorkflowDefinition{
		ID:          common.NextId(flowIdWorker),
		Name:        c.Name,
		Domain:      c.Domain,
		Description: c.Description,

		TriggerType:   triggerType,
		TriggerConfig: c.TriggerConfig,

		Stages:   c.Stages,
		IsActive: true,

		CreateTime: now,
		UpdateTime: now,
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, stage := range c.Stages {
			if err := tx.Where(&domain.Template{ID: stage.TemplateID}).First(&domain.Template{}).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &bizerror.ErrBadParam{Cause: errors.New("unknown template in stage")}
				}
				return err
			}
		}
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func UpdateDefinition(id types.ID, u *DefinitionUpdating, sec *session.Context) (*domain.WorkflowDefinition, error) {
	changes := map[string]interface{}{"update_time": CurrentTimestampFunc()}
	if u.Name != nil {
		changes["name"] = *u.Name
	}
	if u.Description != nil {
		changes["description"] = *u.Description
	}
	if u.TriggerType != nil {
		changes["trigger_type"] = *u.TriggerType
	}
	if u.TriggerConfig != nil {
		changes["trigger_config"] = *u.TriggerConfig
	}
	if u.Stages != nil {
		if err := u.Stages.Validate(); err != nil {
			return nil, &bizerror.ErrBadParam{Cause: err}
		}
		changes["stages"] = *u.Stages
	}
	if u.IsActive != nil {
		changes["is_active"] = *u.IsActive
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.WorkflowDefinition{}).Where("id = ?", id).Update(changes)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return bizerror.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return DetailDefinitionFunc(id, sec)
}
