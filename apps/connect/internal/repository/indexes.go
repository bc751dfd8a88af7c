package repository

import (
	"SocialSync/model"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes 创建查询路径依赖的索引（幂等，可在每次启动时调用）。
// - friend_requests(to, by)：按接收人列出 + 按 (to, by) 清理
// - chats(participants, updated)：按参与者列出会话
// - messages(chatId, timestamp)：最近消息窗口
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		model.CollectionFriendRequests: {
			{Keys: bson.D{{Key: "to", Value: 1}, {Key: "by", Value: 1}}, Options: options.Index().SetName("idx_to_by")},
		},
		model.CollectionChats: {
			{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updated", Value: -1}}, Options: options.Index().SetName("idx_participants_updated")},
		},
		model.CollectionMessages: {
			{Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "timestamp", Value: -1}}, Options: options.Index().SetName("idx_chat_timestamp")},
		},
	}

	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return WrapDBError(err)
		}
	}
	return nil
}
