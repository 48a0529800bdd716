package session

import (
	"context"
	"time"

	"github.com/fundwit/go-commons/types"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
	RoleOwner = "owner"
)

type Identity struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
}

type Context struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`
	Role     string   `json:"role"`

	// EmployeeID links the login to the employee directory, empty for
	// accounts without a directory record.
	EmployeeID string `json:"employeeId"`

	SigningTime time.Time       `json:"-"`
	Context     context.Context `json:"-"`
}

func (c *Context) Ctx() context.Context {
	if c == nil || c.Context == nil {
		return context.Background()
	}
	return c.Context
}

func (c *Context) ActorName() string {
	if c.Identity.Nickname != "" {
		return c.Identity.Nickname
	}
	return c.Identity.Name
}

func (c *Context) IsManager() bool {
	return c.Role == RoleAdmin || c.Role == RoleOwner
}
