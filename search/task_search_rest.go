package search

import (
	"net/http"

	"workhub/domain"
	"workhub/session"

	"github.com/gin-gonic/gin"
)

var PathTaskSearch = "/v1/task-search"

func RegisterTaskSearchRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathTaskSearch, middleWares...)
	g.GET("", handleSearchTasks)
}

func handleSearchTasks(c *gin.Context) {
	query := TaskSearchQuery{
		Keyword:    c.Query("q"),
		Domain:     domain.Domain(c.Query("domain")),
		Status:     domain.TaskStatus(c.Query("status")),
		AssigneeID: c.Query("assigneeId"),
	}
	records, err := SearchTasksFunc(query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}
