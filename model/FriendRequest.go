package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FriendRequest 待处理的好友申请（集合 friend_requests）。
// 方向性：By 向 To 发起。申请被接受或拒绝后直接删除文档，不保留状态字段。
// 申请的创建由其他服务负责，本服务只做查询与处理。
type FriendRequest struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	By        string             `bson:"by" json:"by"`
	To        string             `bson:"to" json:"to"`
	CreatedAt time.Time          `bson:"createdAt,omitempty" json:"createdAt,omitempty"`
}

// CollectionFriendRequests 好友申请集合名
const CollectionFriendRequests = "friend_requests"
