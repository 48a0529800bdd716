package assign

import (
	"errors"
	"math/rand"
	"testing"

	"workhub/directory"
	"workhub/domain"
	"workhub/session"

	. "github.com/onsi/gomega"
)

func restoreDirectory() {
	directory.QueryEmployeesFunc = directory.QueryEmployees
	randIntn = rand.Intn
}

func TestResolve(t *testing.T) {
	RegisterTestingT(t)
	sec := &session.Context{Identity: session.Identity{ID: 1, Name: "tester"}}

	t.Run("manual and unknown rules resolve to nobody", func(t *testing.T) {
		defer restoreDirectory()

		a, ok := Resolve(Rule{Kind: domain.AssigneeRuleManual}, sec)
		Expect(ok).To(BeFalse())
		Expect(a).To(BeNil())

		a, ok = Resolve(Rule{Kind: domain.AssigneeRule("geo_proximity")}, sec)
		Expect(ok).To(BeFalse())
		Expect(a).To(BeNil())
	})

	t.Run("department rule picks among the department's on-duty employees", func(t *testing.T) {
		defer restoreDirectory()

		directory.QueryEmployeesFunc = func(department string, sec *session.Context) ([]directory.Employee, error) {
			Expect(department).To(Equal("Circuits"))
			return []directory.Employee{
				{ID: "emp-1", EmployeeName: "Dana"},
				{ID: "emp-2", EmployeeName: "Robin"},
				{ID: "emp-3", EmployeeName: "Sam"},
			}, nil
		}
		randIntn = func(n int) int {
			Expect(n).To(Equal(3))
			return 1
		}

		a, ok := Resolve(Rule{Kind: domain.AssigneeRuleDepartment, Department: "Circuits"}, sec)
		Expect(ok).To(BeTrue())
		Expect(a.ID).To(Equal("emp-2"))
		Expect(a.Name).To(Equal("Robin"))
	})

	t.Run("department rule degrades to unassigned on misses and errors", func(t *testing.T) {
		defer restoreDirectory()

		_, ok := Resolve(Rule{Kind: domain.AssigneeRuleDepartment}, sec)
		Expect(ok).To(BeFalse())

		directory.QueryEmployeesFunc = func(department string, sec *session.Context) ([]directory.Employee, error) {
			return nil, nil
		}
		_, ok = Resolve(Rule{Kind: domain.AssigneeRuleDepartment, Department: "Circuits"}, sec)
		Expect(ok).To(BeFalse())

		directory.QueryEmployeesFunc = func(department string, sec *session.Context) ([]directory.Employee, error) {
			return nil, errors.New("directory unavailable")
		}
		_, ok = Resolve(Rule{Kind: domain.AssigneeRuleDepartment, Department: "Circuits"}, sec)
		Expect(ok).To(BeFalse())
	})

	t.Run("role rule resolves to nobody", func(t *testing.T) {
		defer restoreDirectory()

		a, ok := Resolve(Rule{Kind: domain.AssigneeRuleRole, Role: "lead"}, sec)
		Expect(ok).To(BeFalse())
		Expect(a).To(BeNil())
	})

	t.Run("round robin cycles through on-duty employees", func(t *testing.T) {
		defer restoreDirectory()

		directory.QueryEmployeesFunc = func(department string, sec *session.Context) ([]directory.Employee, error) {
			Expect(department).To(BeEmpty())
			return []directory.Employee{
				{ID: "emp-1", EmployeeName: "Dana"},
				{ID: "emp-2", EmployeeName: "Robin"},
			}, nil
		}
		roundRobinCursor = 0

		picked := []string{}
		for i := 0; i < 4; i++ {
			a, ok := Resolve(Rule{Kind: domain.AssigneeRuleRoundRobin}, sec)
			Expect(ok).To(BeTrue())
			picked = append(picked, a.ID)
		}
		Expect(picked).To(Equal([]string{"emp-1", "emp-2", "emp-1", "emp-2"}))
	})
}

func TestRuleOfTemplate(t *testing.T) {
	RegisterTestingT(t)

	template := &domain.Template{
		AssigneeRule:       domain.AssigneeRuleDepartment,
		AssigneeDepartment: "Sales",
		AssigneeRole:       "closer",
	}
	rule := RuleOfTemplate(template)
	Expect(rule.Kind).To(Equal(domain.AssigneeRuleDepartment))
	Expect(rule.Department).To(Equal("Sales"))
	Expect(rule.Role).To(Equal("closer"))
}
