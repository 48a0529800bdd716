package main

import (
	"context"
	"net/http"
	"os"

	"workhub/bizerror"
	"workhub/client/es"
	"workhub/common"
	"workhub/directory"
	"workhub/domain"
	"workhub/domain/dashboard"
	"workhub/domain/flow"
	"workhub/domain/notify"
	"workhub/domain/penalty"
	"workhub/domain/stats"
	"workhub/domain/task"
	"workhub/domain/template"
	"workhub/infra/tracing"
	"workhub/persistence"
	"workhub/search"
	"workhub/servehttp"
	"workhub/session"
	"workhub/sessions"
	"workhub/sla"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	common.Log.Infoln("service start")

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		logrus.Fatalf("parse database config failed %v", err)
	}
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			logrus.Fatalf("failed to prepare database %v", err)
		}
	}

	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		logrus.Fatalf("database connection failed %v", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	db := ds.GormDB(context.Background())
	err = db.AutoMigrate(
		&session.User{},
		&directory.Employee{},
		&domain.Template{},
		&domain.WorkflowDefinition{},
		&domain.WorkflowInstance{},
		&domain.Task{},
		&domain.TaskActivity{},
		&domain.Penalty{},
		&domain.Notification{},
		&domain.EmployeeStats{},
	).Error
	if err != nil {
		logrus.Fatalf("database migration failed %v", err)
	}
	if err := session.EnsureAdminUser(db); err != nil {
		logrus.Fatalf("failed to ensure admin user %v", err)
	}

	tracingCloser := tracing.InitTracer()
	defer tracingCloser.Close()

	if os.Getenv("ELASTICSEARCH_URL") != "" {
		es.CreateClientFromEnv()
		search.InstallTaskIndexing()
	}

	engine := gin.New()
	engine.Use(gin.Logger(), bizerror.ErrorHandling(), tracing.TracingIngress())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "workhub")
	})

	sessions.RegisterSessionsHandler(engine)
	sessions.RegisterSessionHandler(engine, session.SimpleAuthFilter())

	securedRoute := []gin.HandlerFunc{session.SimpleAuthFilter()}
	directory.RegisterEmployeesRestAPI(engine, securedRoute...)
	template.RegisterTemplatesRestAPI(engine, securedRoute...)
	flow.RegisterWorkflowsRestAPI(engine, securedRoute...)
	task.RegisterTasksRestAPI(engine, securedRoute...)
	notify.RegisterNotificationsRestAPI(engine, securedRoute...)
	penalty.RegisterPenaltiesRestAPI(engine, securedRoute...)
	stats.RegisterStatsRestAPI(engine, securedRoute...)
	dashboard.RegisterDashboardRestAPI(engine, securedRoute...)
	sla.RegisterScanRestAPI(engine, securedRoute...)
	if os.Getenv("ELASTICSEARCH_URL") != "" {
		search.RegisterTaskSearchRestAPI(engine, securedRoute...)
	}

	sla.StartCron()

	servehttp.StartHTTPServer(engine)
}
