package penalty

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

var PathPenalties = "/v1/penalties"

func RegisterPenaltiesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathPenalties, middleWares...)
	g.GET("", handleQueryPenalties)
	g.GET("summary", handlePenaltySummary)
	g.POST(":id/approve", session.ManagerRoleFilter(), handleApprovePenalty)
	g.POST(":id/waive", session.ManagerRoleFilter(), handleWaivePenalty)
}

type penaltyApproval struct {
	PayrollPeriod string `json:"payrollPeriod"`
}

type penaltyWaiver struct {
	Notes string `json:"notes"`
}

func handleQueryPenalties(c *gin.Context) {
	query := PenaltyQuery{
		Status:        domain.PenaltyStatus(c.Query("status")),
		EmployeeID:    c.Query("employeeId"),
		PayrollPeriod: c.Query("payrollPeriod"),
		Limit:         100,
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			panic(&bizerror.ErrBadParam{Cause: errors.New("invalid limit '" + raw + "'")})
		}
		query.Limit = limit
	}
	records, err := QueryPenaltiesFunc(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handlePenaltySummary(c *gin.Context) {
	records, err := PenaltySummaryFunc(session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleApprovePenalty(c *gin.Context) {
	id := parseId(c.Param("id"))
	req := penaltyApproval{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := ApprovePenaltyFunc(id, req.PayrollPeriod, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleWaivePenalty(c *gin.Context) {
	id := parseId(c.Param("id"))
	req := penaltyWaiver{}
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := WaivePenaltyFunc(id, req.Notes, session.FindSecurityContext(c))
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
