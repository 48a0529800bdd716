package dashboard

import (
	"math"

	"workhub/domain"
	"workhub/persistence"
	"workhub/session"

	"github.com/fundwit/go-commons/types"
)

// RevenueAtRiskPerTask is the flat figure each overdue task is assumed
// to put in jeopardy.
const RevenueAtRiskPerTask = 5000

var (
	QueryDashboardFunc = QueryDashboard

	CurrentTimestampFunc = types.CurrentTimestamp
)

type DomainSummary struct {
	Domain domain.Domain `json:"domain"`

	ActiveTasks    int `json:"activeTasks"`
	OverdueTasks   int `json:"overdueTasks"`
	CompletedTasks int `json:"completedTasks"`
	TotalTasks     int `json:"totalTasks"`

	CompletionRate int `json:"completionRate"`
	RevenueAtRisk  int `json:"revenueAtRisk"`
}

type Dashboard struct {
	Domains []DomainSummary `json:"domains"`

	ActiveTasks    int `json:"activeTasks"`
	OverdueTasks   int `json:"overdueTasks"`
	CompletedTasks int `json:"completedTasks"`
	TotalTasks     int `json:"totalTasks"`
	RevenueAtRisk  int `json:"revenueAtRisk"`
}

type domainCount struct {
	Domain    domain.Domain `gorm:"column:domain"`
	Total     int           `gorm:"column:total"`
	Completed int           `gorm:"column:completed"`
	Active    int           `gorm:"column:active"`
	Overdue   int           `gorm:"column:overdue"`
}

// QueryDashboard rolls task counts up per business domain in one grouped
// query. Active means not yet closed, so an overdue task is still
// active; overdue is judged by the deadline having passed, not by the
// status the scanner may or may not have applied yet.
func QueryDashboard(sec *session.Context) (*Dashboard, error) {
	now := CurrentTimestampFunc()
	db := persistence.ActiveDataSourceManager.GormDB(sec.Ctx())

	var counts []domainCount
	err := db.Raw(`SELECT domain,
			COUNT(*) AS total,
			SUM(status = ?) AS completed,
			SUM(status NOT IN (?)) AS active,
			SUM(status NOT IN (?) AND deadline != ? AND deadline < ?) AS overdue
		FROM tasks GROUP BY domain`,
		domain.TaskStatusCompleted, domain.TaskTerminalStatuses,
		domain.TaskTerminalStatuses, types.Timestamp{}, now).
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	byDomain := map[domain.Domain]*DomainSummary{}
	for _, d := range domain.Domains {
		byDomain[d] = &DomainSummary{Domain: d}
	}
	for _, row := range counts {
		summary, found := byDomain[row.Domain]
		if !found {
			summary = &DomainSummary{Domain: row.Domain}
			byDomain[row.Domain] = summary
		}
		summary.TotalTasks += row.Total
		summary.CompletedTasks += row.Completed
		summary.ActiveTasks += row.Active
		summary.OverdueTasks += row.Overdue
	}

	result := Dashboard{Domains: make([]DomainSummary, 0, len(domain.Domains))}
	for _, d := range domain.Domains {
		summary := byDomain[d]
		total := summary.TotalTasks
		if total == 0 {
			total = 1
		}
		summary.CompletionRate = int(math.Round(float64(summary.CompletedTasks) / float64(total) * 100))
		summary.RevenueAtRisk = summary.OverdueTasks * RevenueAtRiskPerTask

		result.ActiveTasks += summary.ActiveTasks
		result.OverdueTasks += summary.OverdueTasks
		result.CompletedTasks += summary.CompletedTasks
		result.TotalTasks += summary.TotalTasks
		result.RevenueAtRisk += summary.RevenueAtRisk
		result.Domains = append(result.Domains, *summary)
	}
	return &result, nil
}
