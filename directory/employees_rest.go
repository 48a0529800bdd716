package directory

import (
	"net/http"

	"workhub/session"

	"github.com/gin-gonic/gin"
)

var PathEmployees = "/v1/employees"

func RegisterEmployeesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathEmployees, middleWares...)
	g.GET("", handleQueryEmployees)
}

func handleQueryEmployees(c *gin.Context) {
	records, err := QueryEmployeesFunc(c.Query("department"), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}
