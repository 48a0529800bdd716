package notify

import (
	"errors"
	"net/http"
	"strconv"

	"workhub/bizerror"
	"workhub/domain"
	"workhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

var PathNotifications = "/v1/notifications"

func RegisterNotificationsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathNotifications, middleWares...)
	g.GET("", handleQueryNotifications)
	g.POST(":id/sent", session.ManagerRoleFilter(), handleMarkSent)
}

func handleQueryNotifications(c *gin.Context) {
	query := NotificationQuery{
		Status:    domain.NotificationStatus(c.Query("status")),
		Recipient: c.Query("recipient"),
		Limit:     50,
	}
	if raw := c.Query("taskId"); raw != "" {
		id, err := types.ParseID(raw)
		if err != nil {
			panic(&bizerror.ErrBadParam{Cause: errors.New("invalid taskId '" + raw + "'")})
		}
		query.TaskID = id
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			panic(&bizerror.ErrBadParam{Cause: errors.New("invalid limit '" + raw + "'")})
		}
		query.Limit = limit
	}

	records, err := QueryNotificationsFunc(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleMarkSent(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	if err := MarkSentFunc(id, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}
