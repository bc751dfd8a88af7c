package service

import (
	"SocialSync/apps/connect/internal/repository"
	"SocialSync/model"
	"SocialSync/pkg/logger"
	"context"
	"sync"

	"go.uber.org/zap"
)

var serviceLoggerOnce sync.Once

func initServiceTestLogger() {
	serviceLoggerOnce.Do(func() {
		logger.ReplaceGlobal(zap.NewNop())
	})
}

type fakeUserRepository struct {
	getByIDFn       func(context.Context, string) (*model.User, error)
	batchGetByIDsFn func(context.Context, []string) ([]*model.User, error)
	addFriendFn     func(context.Context, string, string) error
}

func (f *fakeUserRepository) GetByID(ctx context.Context, userID string) (*model.User, error) {
	if f.getByIDFn == nil {
		return nil, repository.ErrRecordNotFound
	}
	return f.getByIDFn(ctx, userID)
}

func (f *fakeUserRepository) BatchGetByIDs(ctx context.Context, userIDs []string) ([]*model.User, error) {
	if f.batchGetByIDsFn == nil {
		return []*model.User{}, nil
	}
	return f.batchGetByIDsFn(ctx, userIDs)
}

func (f *fakeUserRepository) AddFriend(ctx context.Context, userID, friendID string) error {
	if f.addFriendFn == nil {
		return nil
	}
	return f.addFriendFn(ctx, userID, friendID)
}

type fakeRequestRepository struct {
	listByRecipientFn func(context.Context, string) ([]*model.FriendRequest, error)
	countByPairFn     func(context.Context, string, string) (int64, error)
	deleteByPairFn    func(context.Context, string, string) (int64, error)
}

func (f *fakeRequestRepository) ListByRecipient(ctx context.Context, userID string) ([]*model.FriendRequest, error) {
	if f.listByRecipientFn == nil {
		return []*model.FriendRequest{}, nil
	}
	return f.listByRecipientFn(ctx, userID)
}

func (f *fakeRequestRepository) CountByPair(ctx context.Context, to, by string) (int64, error) {
	if f.countByPairFn == nil {
		return 1, nil
	}
	return f.countByPairFn(ctx, to, by)
}

func (f *fakeRequestRepository) DeleteByPair(ctx context.Context, to, by string) (int64, error) {
	if f.deleteByPairFn == nil {
		return 1, nil
	}
	return f.deleteByPairFn(ctx, to, by)
}

type fakeRepairer struct {
	mu      sync.Mutex
	edges   [][2]string
	ctxErrs []error
	err     error
}

func (f *fakeRepairer) RepairFriendEdge(ctx context.Context, userID, friendID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edges = append(f.edges, [2]string{userID, friendID})
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.err
}

func profileIDs(profiles []model.Profile) []string {
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	return ids
}

func seedUsers(store *repository.MemoryStore, ids ...string) {
	for _, id := range ids {
		store.PutUser(model.User{ID: id, Name: "name-" + id, Email: id + "@example.com"})
	}
}
