package sla

import (
	"net/http"
	"time"

	"workhub/session"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

var (
	PathScanRequests = "/v1/sla-scans"

	scanRequestLimiter = rate.NewLimiter(rate.Every(time.Minute), 1)
)

func RegisterScanRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathScanRequests, middleWares...)
	g.POST("", session.ManagerRoleFilter(), handleScanRequest)
}

func handleScanRequest(c *gin.Context) {
	if !scanRequestLimiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"message": "scan requested too frequently"})
		return
	}
	go RunScan()
	c.JSON(http.StatusCreated, gin.H{"result": "scan scheduled"})
}
