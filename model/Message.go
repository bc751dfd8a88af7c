package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message 会话消息（集合 messages），通过 ChatID 挂在会话下。
// 只追加，本服务从不修改或删除。
type Message struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID    string             `bson:"chatId" json:"chatId"`
	SenderID  string             `bson:"senderId" json:"senderId"`
	Text      string             `bson:"text" json:"text"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}

// CollectionMessages 消息集合名
const CollectionMessages = "messages"
