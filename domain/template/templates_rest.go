package template

import (
	"errors"
	"net/http"

	"workhub/bizerror"
	"workhub/domain"
	"workhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var PathTemplates = "/v1/templates"

func RegisterTemplatesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathTemplates, middleWares...)
	g.GET("", handleQueryTemplates)
	g.GET(":id", handleDetailTemplate)
	g.POST("", session.ManagerRoleFilter(), handleCreateTemplate)
	g.PUT(":id", session.ManagerRoleFilter(), handleUpdateTemplate)
}

func handleQueryTemplates(c *gin.Context) {
	records, err := QueryTemplatesFunc(domain.Domain(c.Query("domain")), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailTemplate(c *gin.Context) {
	id := parseId(c.Param("id"))
	record, err := DetailTemplateFunc(id, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleCreateTemplate(c *gin.Context) {
	creation := TemplateCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateTemplateFunc(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleUpdateTemplate(c *gin.Context) {
	id := parseId(c.Param("id"))
	updating := TemplateUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateTemplateFunc(id, &updating, session.FindSecurityContext(c))
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
