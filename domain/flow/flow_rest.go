package flow

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

var (
	PathDefinitions   = "/v1/workflow-definitions"
	PathInstances     = "/v1/workflow-instances"
	PathEntityJourney = "/v1/entity-journeys"
)

func RegisterWorkflowsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	d := r.Group(PathDefinitions, middleWares...)
	d.GET("", handleQueryDefinitions)
	d.GET(":id", handleDetailDefinition)
	d.POST("", session.ManagerRoleFilter(), handleCreateDefinition)
	d.PUT(":id", session.ManagerRoleFilter(), handleUpdateDefinition)

	i := r.Group(PathInstances, middleWares...)
	i.GET("", handleQueryInstances)
	i.GET(":id", handleDetailInstance)
	i.POST("", handleStartWorkflow)

	j := r.Group(PathEntityJourney, middleWares...)
	j.GET("", handleEntityJourney)
}

func handleQueryDefinitions(c *gin.Context) {
	records, err := QueryDefinitionsFunc(domain.Domain(c.Query("domain")), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailDefinition(c *gin.Context) {
	record, err := DetailDefinitionFunc(parseId(c.Param("id")), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleCreateDefinition(c *gin.Context) {
	creation := DefinitionCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := CreateDefinitionFunc(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func handleUpdateDefinition(c *gin.Context) {
	updating := DefinitionUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := UpdateDefinitionFunc(parseId(c.Param("id")), &updating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleQueryInstances(c *gin.Context) {
	query := InstanceQuery{
		Status:     domain.InstanceStatus(c.Query("status")),
		EntityType: c.Query("entityType"),
		EntityID:   c.Query("entityId"),
	}
	if raw := c.Query("definitionId"); raw != "" {
		query.DefinitionID = parseId(raw)
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			panic(&bizerror.ErrBadParam{Cause: err})
		}
		query.Limit = limit
	}
	records, err := QueryInstancesFunc(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}

func handleDetailInstance(c *gin.Context) {
	record, err := DetailInstanceFunc(parseId(c.Param("id")), session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, record)
}

func handleStartWorkflow(c *gin.Context) {
	creation := InstanceCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	record, err := StartWorkflowFunc(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}

func handleEntityJourney(c *gin.Context) {
	entityType, entityID := c.Query("entityType"), c.Query("entityId")
	if entityType == "" || entityID == "" {
		panic(&bizerror.ErrBadParam{Cause: errors.New("entityType and entityId are required")})
	}
	record, err := EntityJourneyFunc(entityType, entityID, session.FindSecurityContext(c))
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
