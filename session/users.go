package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"workhub/common"

	"github.com/fundwit/go-commons/types"
	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/sony/sonyflake"
)

var userIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

type User struct {
	ID     types.ID `json:"id" gorm:"primary_key"`
	Name   string   `json:"name" gorm:"unique_index:uni_user_name"`
	Secret string   `json:"-"`

	Nickname string `json:"nickname"`
	Role     string `json:"role"`

	EmployeeID string `json:"employeeId"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (u *User) TableName() string {
	return "users"
}

type LoginRequest struct {
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func HashSha256(raw string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	return hex.EncodeToString(h.Sum(nil))
}

// EnsureAdminUser creates the bootstrap admin account on first start and
// logs its generated password exactly once.
func EnsureAdminUser(db *gorm.DB) error {
	user := User{}
	err := db.Where(&User{Name: "admin"}).First(&user).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	password := uuid.New().String()
	user = User{
		ID:         common.NextId(userIdWorker),
		Name:       "admin",
		Secret:     HashSha256(password),
		Nickname:   "Administrator",
		Role:       RoleAdmin,
		CreateTime: types.CurrentTimestamp(),
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}
	logrus.Warnf("admin user created with generated password: %s", password)
	return nil
}
