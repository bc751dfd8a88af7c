package repository

import (
	"SocialSync/model"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// userRepositoryImpl 用户文档数据访问层实现
type userRepositoryImpl struct {
	coll *mongo.Collection
}

// NewUserRepository 创建用户仓储实例
func NewUserRepository(db *mongo.Database) IUserRepository {
	return &userRepositoryImpl{coll: db.Collection(model.CollectionUsers)}
}

// GetByID 根据用户 ID 查询
func (r *userRepositoryImpl) GetByID(ctx context.Context, userID string) (*model.User, error) {
	var user model.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		return nil, WrapDBError(err)
	}
	return &user, nil
}

// BatchGetByIDs 批量查询用户
// 空 ID 集合直接返回，部分存储后端会拒绝 $in: [] 查询。
func (r *userRepositoryImpl) BatchGetByIDs(ctx context.Context, userIDs []string) ([]*model.User, error) {
	if len(userIDs) == 0 {
		return []*model.User{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}}, opts)
	if err != nil {
		return nil, WrapDBError(err)
	}
	defer cursor.Close(ctx)

	users := make([]*model.User, 0, len(userIDs))
	if err := cursor.All(ctx, &users); err != nil {
		return nil, WrapDBError(err)
	}
	return users, nil
}

// AddFriend 使用 $addToSet 单侧追加好友，天然幂等
func (r *userRepositoryImpl) AddFriend(ctx context.Context, userID, friendID string) error {
	result, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$addToSet": bson.M{"friends": friendID}},
	)
	if err != nil {
		return WrapDBError(err)
	}
	if result.MatchedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}
