package template

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
	idWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryTemplatesFunc = QueryTemplates
	DetailTemplateFunc = DetailTemplate
	CreateTemplateFunc = CreateTemplate
	UpdateTemplateFunc = UpdateTemplate
)

type TemplateCreation struct {
	Name        string        `json:"name" binding:"required"`
	Domain      domain.Domain `json:"domain" binding:"required,oneof=sales circuits marketing hr"`
	Description string        `json:"description"`

	DefaultSlaHours    int                 `json:"defaultSlaHours"`
	AssigneeRule       domain.AssigneeRule `json:"assigneeRule" binding:"omitempty,oneof=manual department role round-robin"`
	AssigneeDepartment string              `json:"assigneeDepartment"`
	AssigneeRole       string              `json:"assigneeRole"`

	Steps    domain.StepNames `json:"steps"`
	Priority domain.Priority  `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
}

// TemplateUpdating carries only the fields the caller wants changed.
type TemplateUpdating struct {
	Name        *string        `json:"name"`
	Domain      *domain.Domain `json:"domain"`
	Description *string        `json:"description"`

	DefaultSlaHours    *int                 `json:"defaultSlaHours"`
	AssigneeRule       *domain.AssigneeRule `json:"assigneeRule"`
	AssigneeDepartment *string              `json:"assigneeDepartment"`
	AssigneeRole       *string              `json:"assigneeRole"`

	Steps    *domain.StepNames `json:"steps"`
	Priority *domain.Priority  `json:"priority"`
	IsActive *bool             `json:"isActive"`
}

func QueryTemplates(d domain.Domain, sec *session.Context) ([]domain.Template, error) {
	var templates []domain.Template
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())

	q := db.Where("is_active = ?", true)
	if d != "" {
		q = q.Where("domain = ?", d)
	}
	if err := q.Order("domain ASC").Order("name ASC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func DetailTemplate(id types.ID, sec *session.Context) (*domain.Template, error) {
	t := domain.Template{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	if err := db.Where(&domain.Template{ID: id}).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func CreateTemplate(c *TemplateCreation, sec *session.Context) (*domain.Template, error) {
	now := types.CurrentTimestamp()
	t := &domain.Template{
		ID:          common.NextId(idWorker),
		Name:        c.Name,
		Domain:      c.Domain,
		Description: c.Description,

		DefaultSlaHours:    c.DefaultSlaHours,
		AssigneeRule:       c.AssigneeRule,
		AssigneeDepartment: c.AssigneeDepartment,
		AssigneeRole:       c.AssigneeRole,

		Steps:    c.Steps,
		Priority: c.Priority,
		IsActive: true,

		CreateTime: now,
		UpdateTime: now,
	}
	if t.DefaultSlaHours <= 0 {
		t.DefaultSlaHours = 24
	}
	if t.AssigneeRule == "" {
		t.AssigneeRule = domain.AssigneeRuleManual
	}
	if t.Priority == "" {
		t.Priority = domain.PriorityMedium
	}
	if t.Steps == nil {
		t.Steps = domain.StepNames{}
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	if err := db.Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTemplate mutates only the supplied fields. Tasks already spawned
// from the template are untouched; the change affects future
// instantiations only.
func UpdateTemplate(id types.ID, u *TemplateUpdating, sec *session.Context) (*domain.Template, error) {
	t := domain.Template{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.Template{ID: id}).First(&t).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return bizerror.ErrNotFound
			}
			return err
		}

		changes := map[string]interface{}{}
		if u.Name != nil {
			changes["name"] = *u.Name
		}
		if u.Domain != nil {
			changes["domain"] = *u.Domain
		}
		if u.Description != nil {
			changes["description"] = *u.Description
		}
		if u.DefaultSlaHours != nil {
			changes["default_sla_hours"] = *u.DefaultSlaHours
		}
		if u.AssigneeRule != nil {
			changes["assignee_rule"] = *u.AssigneeRule
		}
		if u.AssigneeDepartment != nil {
			changes["assignee_department"] = *u.AssigneeDepartment
		}
		if u.AssigneeRole != nil {
			changes["assignee_role"] = *u.AssigneeRole
		}
		if u.Steps != nil {
			changes["steps"] = *u.Steps
		}
		if u.Priority != nil {
			changes["priority"] = *u.Priority
		}
		if u.IsActive != nil {
			changes["is_active"] = *u.IsActive
		}
		changes["update_time"] = types.CurrentTimestamp()

		if err := tx.Model(&domain.Template{}).Where("id = ?", id).Update(changes).Error; err != nil {
			return err
		}
		// query again
		return tx.Where(&domain.Template{ID: id}).First(&t).Error
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}
