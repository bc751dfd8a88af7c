package repository

import (
	"SocialSync/model"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// messageRepositoryImpl 消息数据访问层实现
type messageRepositoryImpl struct {
	coll *mongo.Collection
}

// NewMessageRepository 创建消息仓储实例
func NewMessageRepository(db *mongo.Database) IMessageRepository {
	return &messageRepositoryImpl{coll: db.Collection(model.CollectionMessages)}
}

// ListRecent 倒序取最近 limit 条，再翻转为升序返回
func (r *messageRepositoryImpl) ListRecent(ctx context.Context, chatID string, limit int64) ([]*model.Message, error) {
	if limit <= 0 {
		return []*model.Message{}, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)
	cursor, err := r.coll.Find(ctx, bson.M{"chatId": chatID}, opts)
	if err != nil {
		return nil, WrapDBError(err)
	}
	defer cursor.Close(ctx)

	messages := make([]*model.Message, 0, limit)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, WrapDBError(err)
	}
	reverseMessages(messages)
	return messages, nil
}

func reverseMessages(messages []*model.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
