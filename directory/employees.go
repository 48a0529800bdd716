package directory

import (
	"time"

	"workhub/persistence"
	"workhub/session"

	"github.com/patrickmn/go-cache"
)

var (
	QueryEmployeesFunc = QueryEmployees
	FindEmployeeFunc   = FindEmployee

	// employeeCache fronts by-id lookups; the directory is owned by a
	// separate subsystem and is read-only here, so short staleness is fine.
	employeeCache = cache.New(1*time.Minute, 5*time.Minute)
)

const StatusOnDuty = "on duty"

// Employee is a read-only projection of the employee directory.
type Employee struct {
	ID           string `json:"id" gorm:"primary_key"`
	EmployeeName string `json:"employeeName"`
	Department   string `json:"department"`

	PersonalPhone string `json:"personalPhone"`
	BusinessPhone string `json:"businessPhone"`

	Status    string `json:"status"`
	IsDeleted bool   `json:"-"`
}

func (e *Employee) TableName() string {
	return "employees"
}

// QueryEmployees lists on-duty employees, optionally narrowed to a
// department (substring match, as the directory stores free-form names).
func QueryEmployees(department string, sec *session.Context) ([]Employee, error) {
	var employees []Employee
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())

	q := db.Where("is_deleted = ?", false).Where("status = ?", StatusOnDuty)
	if department != "" {
		q = q.Where("department LIKE ?", "%"+department+"%")
	}
	if err := q.Order("employee_name ASC").Find(&employees).Error; err != nil {
		return nil, err
	}
	return employees, nil
}

// FindEmployee returns nil when the employee is absent, never an error for
// a miss.
func FindEmployee(id string, sec *session.Context) (*Employee, error) {
	if id == "" {
		return nil, nil
	}
	if cached, found := employeeCache.Get(id); found {
		e := cached.(Employee)
		return &e, nil
	}

	var employees []Employee
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())
	if err := db.Where("id = ?", id).Limit(1).Find(&employees).Error; err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, nil
	}
	employeeCache.Set(id, employees[0], cache.DefaultExpiration)
	return &employees[0], nil
}

// Phone picks the contact number for notifications, business first.
func (e *Employee) Phone() string {
	if e.BusinessPhone != "" {
		return e.BusinessPhone
	}
	return e.PersonalPhone
}
