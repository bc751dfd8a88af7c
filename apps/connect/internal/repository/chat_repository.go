package repository

import (
	"SocialSync/model"
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// chatRepositoryImpl 会话数据访问层实现
type chatRepositoryImpl struct {
	coll *mongo.Collection
}

// NewChatRepository 创建会话仓储实例
func NewChatRepository(db *mongo.Database) IChatRepository {
	return &chatRepositoryImpl{coll: db.Collection(model.CollectionChats)}
}

// ListByParticipant 查询包含 userID 的会话（数组字段等值匹配即 contains）
func (r *chatRepositoryImpl) ListByParticipant(ctx context.Context, userID string) ([]*model.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, WrapDBError(err)
	}
	defer cursor.Close(ctx)

	chats := make([]*model.Chat, 0)
	if err := cursor.All(ctx, &chats); err != nil {
		return nil, WrapDBError(err)
	}
	return chats, nil
}

// Create 插入会话文档，返回生成的 ObjectID（十六进制）
func (r *chatRepositoryImpl) Create(ctx context.Context, chat *model.Chat) (string, error) {
	result, err := r.coll.InsertOne(ctx, chat)
	if err != nil {
		return "", WrapDBError(err)
	}
	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", WrapDBError(errors.New("unexpected inserted id type"))
	}
	return oid.Hex(), nil
}

// GetByID 根据会话 ID 查询；非法 ID 视为不存在
func (r *chatRepositoryImpl) GetByID(ctx context.Context, chatID string) (*model.Chat, error) {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, ErrRecordNotFound
	}
	var chat model.Chat
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&chat); err != nil {
		return nil, WrapDBError(err)
	}
	return &chat, nil
}
