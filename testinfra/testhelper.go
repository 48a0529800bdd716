package testinfra

import (
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"time"

	"workhub/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

// BuildSecCtx builds a security context for service level tests.
func BuildSecCtx(uid types.ID, role string) *session.Context {
	return &session.Context{
		Token:       "test-token-" + uid.String(),
		Identity:    session.Identity{ID: uid, Name: "user-" + uid.String()},
		Role:        role,
		SigningTime: time.Now(),
	}
}

// SignIn registers the context in the token cache so REST level tests can
// pass SimpleAuthFilter with its cookie.
func SignIn(sec *session.Context) *http.Cookie {
	session.TokenCache.Set(sec.Token, sec, 0)
	return &http.Cookie{Name: session.KeySecToken, Value: sec.Token}
}

func ExecuteRequest(req *http.Request, router *gin.Engine) (int, string, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	bodyBytes, _ := ioutil.ReadAll(w.Body)
	return w.Code, string(bodyBytes), w
}
