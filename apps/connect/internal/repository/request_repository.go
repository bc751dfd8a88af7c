package repository

import (
	"SocialSync/model"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// friendRequestRepositoryImpl 好友申请数据访问层实现
type friendRequestRepositoryImpl struct {
	coll *mongo.Collection
}

// NewFriendRequestRepository 创建好友申请仓储实例
func NewFriendRequestRepository(db *mongo.Database) IFriendRequestRepository {
	return &friendRequestRepositoryImpl{coll: db.Collection(model.CollectionFriendRequests)}
}

// ListByRecipient 查询发给 userID 的待处理申请
func (r *friendRequestRepositoryImpl) ListByRecipient(ctx context.Context, userID string) ([]*model.FriendRequest, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"to": userID})
	if err != nil {
		return nil, WrapDBError(err)
	}
	defer cursor.Close(ctx)

	requests := make([]*model.FriendRequest, 0)
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, WrapDBError(err)
	}
	return requests, nil
}

// CountByPair 统计 (to, by) 匹配的申请条数
func (r *friendRequestRepositoryImpl) CountByPair(ctx context.Context, to, by string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"to": to, "by": by})
	if err != nil {
		return 0, WrapDBError(err)
	}
	return n, nil
}

// DeleteByPair 删除全部 (to, by) 匹配的申请
// 同一对用户可能存在重复申请文档，这里一次性全部清理；重复调用返回 0。
func (r *friendRequestRepositoryImpl) DeleteByPair(ctx context.Context, to, by string) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{"to": to, "by": by})
	if err != nil {
		return 0, WrapDBError(err)
	}
	return result.DeletedCount, nil
}
