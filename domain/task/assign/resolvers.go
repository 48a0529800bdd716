package assign

import (
	"math/rand"
	"sync/atomic"

	"workhub/directory"
	"workhub/domain"
	"workhub/session"
)

var (
	ResolveFunc = Resolve

	randIntn         = rand.Intn
	roundRobinCursor uint64
)

// Assignee is the resolved owner of a task.
type Assignee struct {
	ID   string
	Name string
}

// Rule is the closed set of assignment variants a template may carry.
type Rule struct {
	Kind       domain.AssigneeRule
	Department string
	Role       string
}

// Resolver maps a rule to a concrete assignee. A miss is (nil, false),
// never an error: the caller leaves the task unassigned.
type Resolver interface {
	Resolve(rule Rule, sec *session.Context) (*Assignee, bool)
}

var resolvers = map[domain.AssigneeRule]Resolver{
	domain.AssigneeRuleManual:     manualResolver{},
	domain.AssigneeRuleDepartment: departmentResolver{},
	domain.AssigneeRuleRole:       roleResolver{},
	domain.AssigneeRuleRoundRobin: roundRobinResolver{},
}

// Resolve dispatches to the rule's variant. Unknown rules resolve to
// nobody rather than failing, so a new rule value rolled out ahead of its
// resolver degrades to manual assignment.
func Resolve(rule Rule, sec *session.Context) (*Assignee, bool) {
	resolver, found := resolvers[rule.Kind]
	if !found {
		return nil, false
	}
	return resolver.Resolve(rule, sec)
}

func RuleOfTemplate(t *domain.Template) Rule {
	return Rule{Kind: t.AssigneeRule, Department: t.AssigneeDepartment, Role: t.AssigneeRole}
}

type manualResolver struct{}

func (manualResolver) Resolve(rule Rule, sec *session.Context) (*Assignee, bool) {
	return nil, false
}

// departmentResolver spreads load by picking uniformly at random among the
// on-duty employees of the department, not least-loaded.
type departmentResolver struct{}

func (departmentResolver) Resolve(rule Rule, sec *session.Context) (*Assignee, bool) {
	if rule.Department == "" {
		return nil, false
	}
	employees, err := directory.QueryEmployeesFunc(rule.Department, sec)
	if err != nil || len(employees) == 0 {
		return nil, false
	}
	picked := employees[randIntn(len(employees))]
	return &Assignee{ID: picked.ID, Name: picked.EmployeeName}, true
}

// roleResolver is a placeholder variant: the employee directory carries no
// role attribute yet, so it resolves to nobody.
type roleResolver struct{}

func (roleResolver) Resolve(rule Rule, sec *session.Context) (*Assignee, bool) {
	return nil, false
}

// roundRobinResolver cycles through all on-duty employees in directory
// order. The cursor is process-local; fairness across restarts is not a
// goal.
type roundRobinResolver struct{}

func (roundRobinResolver) Resolve(rule Rule, sec *session.Context) (*Assignee, bool) {
	employees, err := directory.QueryEmployeesFunc("", sec)
	if err != nil || len(employees) == 0 {
		return nil, false
	}
	cursor := atomic.AddUint64(&roundRobinCursor, 1)
	picked := employees[int((cursor-1)%uint64(len(employees)))]
	return &Assignee{ID: picked.ID, Name: picked.EmployeeName}, true
}
