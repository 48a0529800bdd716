package session

import (
	"time"

	"workhub/bizerror"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

const TokenExpiration = 24 * time.Hour

// TokenCache holds security contexts of signed-in users, keyed by token.
var TokenCache = cache.New(TokenExpiration, 1*time.Minute)

const KeySecCtx = "SecCtx"
const KeySecToken = "sec_token"

func SimpleAuthFilter() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token, err := ctx.Cookie(KeySecToken)
		if err != nil {
			panic(bizerror.ErrUnauthenticated)
		}
		securityContextValue, found := TokenCache.Get(token)
		if !found {
			panic(bizerror.ErrUnauthenticated)
		}
		secCtx, ok := securityContextValue.(*Context)
		if !ok {
			panic(bizerror.ErrUnauthenticated)
		}
		InjectSessionIntoGinContext(ctx, secCtx)
		ctx.Next()
	}
}

// ManagerRoleFilter guards operations reserved to admin/owner roles.
func ManagerRoleFilter() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		secCtx := FindSecurityContext(ctx)
		if secCtx == nil || !secCtx.IsManager() {
			panic(bizerror.ErrForbidden)
		}
		ctx.Next()
	}
}

func InjectSessionIntoGinContext(ctx *gin.Context, secCtx *Context) {
	if secCtx != nil && secCtx.Token != "" {
		ctx.Set(KeySecCtx, secCtx)
	}
}

func FindSecurityContext(ctx *gin.Context) *Context {
	value, found := ctx.Get(KeySecCtx)
	if !found {
		return nil
	}
	s0, ok := value.(*Context)
	if !ok || s0.Token == "" {
		return nil
	}
	s := *s0
	s.Context = ctx.Request.Context() // trace context
	return &s
}
