package dashboard

import (
	"net/http"
	"strconv"

	"workhub/bizerror"
	"workhub/domain/task"
	"workhub/session"

	"github.com/gin-gonic/gin"
)

var (
	PathDashboard  = "/v1/dashboard"
	PathActivities = "/v1/activities"
)

func RegisterDashboardRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathDashboard, middleWares...)
	g.GET("", handleQueryDashboard)

	a := r.Group(PathActivities, middleWares...)
	a.GET("", handleQueryActivities)
}

func handleQueryDashboard(c *gin.Context) {
	record, err := QueryDashboardFunc(session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleQueryActivities(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
		limit = parsed
	}
	records, err := task.QueryRecentActivitiesFunc(limit, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}
