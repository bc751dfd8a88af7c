package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat 会话文档（集合 chats）。
// Participants 固定两人，顺序为 [创建者, 对方]，创建后不可修改。
type Chat struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Participants []string           `bson:"participants" json:"participants"`
	Updated      time.Time          `bson:"updated" json:"updated"`
}

// ChatSnapshot 返回给客户端的会话视图：
// 元数据 + 对方参与者资料（不含自己） + 最近消息窗口（按时间升序）。
type ChatSnapshot struct {
	ID           string     `json:"id"`
	Updated      time.Time  `json:"updated"`
	Participants []Profile  `json:"participants"`
	Messages     []*Message `json:"messages"`
}

// CollectionChats 会话集合名
const CollectionChats = "chats"
