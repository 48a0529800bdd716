package stats

import (
	"net/http"

	"workhub/session"

	"github.com/gin-gonic/gin"
)

var PathStats = "/v1/stats"

func RegisterStatsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathStats, middleWares...)
	g.GET("leaderboard", handleLeaderboard)
	g.GET("mine", handleMyStats)
}

func handleLeaderboard(c *gin.Context) {
	records, err := QueryLeaderboardFunc(session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleMyStats(c *gin.Context) {
	sec := session.FindSecurityContext(c)
	employeeID := ""
	if sec != nil {
		employeeID = sec.EmployeeID
		if employeeID == "" {
			employeeID = sec.Identity.ID.String()
		}
	}
	record, err := FindEmployeeStatsFunc(employeeID, sec)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}
