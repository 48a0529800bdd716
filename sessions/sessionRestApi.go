package sessions

import (
	"net/http"
	"time"

	"workhub/bizerror"
	"workhub/session"

	"github.com/gin-gonic/gin"
)

func RegisterSessionHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group("/v1/session", middleWares...)
	g.GET("", DetailSessionSecurityContext)
}

func DetailSessionSecurityContext(c *gin.Context) {
	sec := session.FindSecurityContext(c)

	now := time.Now()
	ttl := session.TokenExpiration - now.Sub(sec.SigningTime)
	if ttl > 0 {
		securityContext := session.Context{
			Token: sec.Token, Identity: sec.Identity, Role: sec.Role,
			EmployeeID: sec.EmployeeID, SigningTime: now,
		}
		session.TokenCache.Set(sec.Token, &securityContext, ttl)
		c.JSON(http.StatusOK, &securityContext)
	} else {
		panic(bizerror.ErrUnauthenticated)
	}
}
