package domain

// Domain is the business area a template, definition or task belongs to.
type Domain string

const (
	DomainSales     = Domain("sales")
	DomainCircuits  = Domain("circuits")
	DomainMarketing = Domain("marketing")
	DomainHR        = Domain("hr")
)

var Domains = []Domain{DomainSales, DomainCircuits, DomainMarketing, DomainHR}

type Priority string

const (
	PriorityLow    = Priority("low")
	PriorityMedium = Priority("medium")
	PriorityHigh   = Priority("high")
	PriorityUrgent = Priority("urgent")
)

// PriorityRank orders priorities for task listing, most urgent first.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityUrgent:
		return 1
	case PriorityHigh:
		return 2
	case PriorityMedium:
		return 3
	default:
		return 4
	}
}

type TaskStatus string

const (
	TaskStatusPending    = TaskStatus("pending")
	TaskStatusAssigned   = TaskStatus("assigned")
	TaskStatusInProgress = TaskStatus("in_progress")
	TaskStatusCompleted  = TaskStatus("completed")
	TaskStatusCancelled  = TaskStatus("cancelled")
	TaskStatusBlocked    = TaskStatus("blocked")
	TaskStatusOverdue    = TaskStatus("overdue")
)

// TaskTerminalStatuses are the states a task never leaves.
var TaskTerminalStatuses = []TaskStatus{TaskStatusCompleted, TaskStatusCancelled}

func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusCancelled
}

type InstanceStatus string

const (
	InstanceStatusActive    = InstanceStatus("active")
	InstanceStatusCompleted = InstanceStatus("completed")
	InstanceStatusCancelled = InstanceStatus("cancelled")
	InstanceStatusPaused    = InstanceStatus("paused")
)

type AssigneeRule string

const (
	AssigneeRuleManual     = AssigneeRule("manual")
	AssigneeRuleDepartment = AssigneeRule("department")
	AssigneeRuleRole       = AssigneeRule("role")
	AssigneeRuleRoundRobin = AssigneeRule("round-robin")
)

type TriggerType string

const (
	TriggerManual       = TriggerType("manual")
	TriggerAutoOnCreate = TriggerType("auto_on_create")
	TriggerAutoOnStatus = TriggerType("auto_on_status")
	TriggerScheduled    = TriggerType("scheduled")
)

type PenaltyStatus string

const (
	PenaltyStatusPending  = PenaltyStatus("pending")
	PenaltyStatusApproved = PenaltyStatus("approved")
	PenaltyStatusWaived   = PenaltyStatus("waived")
	PenaltyStatusDeducted = PenaltyStatus("deducted")
)

type PenaltyType string

const (
	PenaltyTypeMinorDelay       = PenaltyType("minor_delay")
	PenaltyTypeModerateDelay    = PenaltyType("moderate_delay")
	PenaltyTypeSevereDelay      = PenaltyType("severe_delay")
	PenaltyTypeCancelledOverdue = PenaltyType("cancelled_overdue")
)

type MessageType string

const (
	MessageTaskAssigned = MessageType("task_assigned")
	MessageReminder50   = MessageType("reminder_50")
	MessageReminder80   = MessageType("reminder_80")
	MessageOverdue      = MessageType("overdue")
	MessageCompleted    = MessageType("completed")
	MessagePenalty      = MessageType("penalty")
)

type NotificationStatus string

const (
	NotificationStatusQueued  = NotificationStatus("queued")
	NotificationStatusSent    = NotificationStatus("sent")
	NotificationStatusFailed  = NotificationStatus("failed")
	NotificationStatusSkipped = NotificationStatus("skipped")
)
