package domain

import (
	"github.com/fundwit/go-commons/types"
)

// Notification is one queued outbound message. Delivery transport is an
// external collaborator; the engine only decides what to enqueue and
// whether the 4-hour dedup window suppresses it.
type Notification struct {
	ID     types.ID `json:"id" gorm:"primary_key"`
	TaskID types.ID `json:"taskId"`

	RecipientPhone string `json:"recipientPhone"`
	RecipientName  string `json:"recipientName"`

	MessageType MessageType        `json:"messageType"`
	MessageText string             `json:"messageText" sql:"type:TEXT"`
	Status      NotificationStatus `json:"status"`

	SentTime   types.Timestamp `json:"sentTime" sql:"type:DATETIME(6)"`
	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (n *Notification) TableName() string {
	return "notifications"
}
