package task

import (
	"errors"
	"net/http"
	"strconv"

	"workhub/bizerror"
	"workhub/domain"
	"workhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var PathTasks = "/v1/tasks"

type taskAssignment struct {
	AssigneeID   string `json:"assigneeId" binding:"required"`
	AssigneeName string `json:"assigneeName" binding:"required"`
}

type taskCompletion struct {
	Notes string `json:"notes"`
}

type taskCancellation struct {
	Reason string `json:"reason" binding:"required"`
}

func RegisterTasksRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathTasks, middleWares...)
	g.GET("", handleQueryTasks)
	g.GET("mine", handleQueryMyTasks)
	g.GET(":id", handleDetailTask)
	g.POST("", session.ManagerRoleFilter(), handleCreateTask)
	g.POST(":id/assign", session.ManagerRoleFilter(), handleAssignTask)
	g.POST(":id/start", handleStartTask)
	g.POST(":id/steps/:order/complete", handleCompleteStep)
	g.POST(":id/complete", handleCompleteTask)
	g.POST(":id/cancel", session.ManagerRoleFilter(), handleCancelTask)
}

func handleQueryTasks(c *gin.Context) {
	query := TaskQuery{
		Status:     domain.TaskStatus(c.Query("status")),
		Domain:     domain.Domain(c.Query("domain")),
		AssigneeID: c.Query("assigneeId"),
		EntityType: c.Query("entityType"),
		EntityID:   c.Query("entityId"),
	}
	if raw := c.Query("workflowInstanceId"); raw != "" {
		query.WorkflowInstanceID = parseId(raw)
	}
	if c.Query("overdueOnly") == "true" {
		query.OverdueOnly = true
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
		query.Limit = limit
	}

	records, err := QueryTasksFunc(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleQueryMyTasks(c *gin.Context) {
	sec := session.FindSecurityContext(c)
	assigneeID := sec.EmployeeID
	if assigneeID == "" {
		assigneeID = sec.Identity.ID.String()
	}
	records, err := QueryTasksFunc(&TaskQuery{AssigneeID: assigneeID}, sec)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailTask(c *gin.Context) {
	record, err := DetailTaskFunc(parseId(c.Param("id")), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleCreateTask(c *gin.Context) {
	creation := TaskCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateStandaloneTaskFunc(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func handleAssignTask(c *gin.Context) {
	assignment := taskAssignment{}
	if err := c.ShouldBindBodyWith(&assignment, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := AssignTaskFunc(parseId(c.Param("id")), assignment.AssigneeID, assignment.AssigneeName,
		session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleStartTask(c *gin.Context) {
	record, err := StartTaskFunc(parseId(c.Param("id")), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleCompleteStep(c *gin.Context) {
	order, err := strconv.Atoi(c.Param("order"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CompleteStepFunc(parseId(c.Param("id")), order, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleCompleteTask(c *gin.Context) {
	completion := taskCompletion{}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindBodyWith(&completion, binding.JSON); err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
	}
	record, err := CompleteTaskFunc(parseId(c.Param("id")), completion.Notes, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleCancelTask(c *gin.Context) {
	cancellation := taskCancellation{}
	if err := c.ShouldBindBodyWith(&cancellation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CancelTaskFunc(parseId(c.Param("id")), cancellation.Reason, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func parseId(raw string) types.ID {
	id, err := types.ParseID(raw)
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + raw + "'")})
	}
	return id
}
