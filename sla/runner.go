package sla

import (
	"workhub/session"

	cron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"
)

var scanning = atomic.NewBool(false)

// StartCron schedules the deadline scan every five minutes.
func StartCron() {
	crontab := cron.New(cron.WithSeconds())
	crontab.AddFunc("0 */5 * * * ?", RunScan)
	crontab.Start()
}

// RunScan executes one scan cycle; an already running cycle makes the
// new one a no-op.
func RunScan() {
	if !scanning.CAS(false, true) {
		logrus.Info("deadline scan: previous cycle still running, skipped")
		return
	}
	defer scanning.Store(false)

	if err := ScanFunc(scannerContext()); err != nil {
		logrus.Errorf("deadline scan: cycle aborted: %v", err)
	}
}

func scannerContext() *session.Context {
	return &session.Context{
		Identity: session.Identity{Name: "System"},
		Role:     session.RoleAdmin,
	}
}
