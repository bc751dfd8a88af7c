package service

import (
	"SocialSync/apps/connect/internal/repository"
	"SocialSync/model"
	"SocialSync/pkg/ctxmeta"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRelationshipFixture(repairer EdgeRepairer) (*repository.MemoryStore, IRelationshipService) {
	initServiceTestLogger()
	store := repository.NewMemoryStore()
	return store, NewRelationshipService(store.Users(), store.FriendRequests(), repairer)
}

func TestListPendingRequests_EmptySkipsBatchQuery(t *testing.T) {
	store, svc := newRelationshipFixture(nil)
	seedUsers(store, "u1")

	profiles, err := svc.ListPendingRequests(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, profiles)
	assert.Empty(t, profiles)
	assert.Equal(t, 1, store.Calls(repository.OpListRequests))
	assert.Equal(t, 0, store.Calls(repository.OpBatchGetUsers))
}

func TestListPendingRequests_OnlyRequestersAddressedToUser(t *testing.T) {
	store, svc := newRelationshipFixture(nil)
	seedUsers(store, "u1", "u2", "u3", "u4")
	store.PutFriendRequest("u2", "u1")
	store.PutFriendRequest("u3", "u1")
	store.PutFriendRequest("u3", "u1")
	store.PutFriendRequest("u4", "u2")
	// 申请人文档已删除时直接跳过
	store.PutFriendRequest("gone", "u1")

	profiles, err := svc.ListPendingRequests(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u3"}, profileIDs(profiles))
	assert.Equal(t, "name-u2", profiles[0].Name)
}

func TestAcceptRequest_Scenario(t *testing.T) {
	store, svc := newRelationshipFixture(nil)
	seedUsers(store, "u1", "u2", "u3")
	store.PutFriendRequest("u2", "u1")
	store.PutFriendRequest("u3", "u1")
	ctx := context.Background()

	pending, err := svc.ListPendingRequests(ctx, "u1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u2", "u3"}, profileIDs(pending))

	require.NoError(t, svc.AcceptRequest(ctx, "u1", "u2"))

	u1, _ := store.User("u1")
	u2, _ := store.User("u2")
	assert.Contains(t, u1.Friends, "u2")
	assert.Contains(t, u2.Friends, "u1")
	assert.Zero(t, store.PendingRequests("u1", "u2"))

	pending, err = svc.ListPendingRequests(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, profileIDs(pending))

	friends, err := svc.ListFriends(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, profileIDs(friends))
}

func TestAcceptRequest_PartialFailureStillDeletesAndRepairs(t *testing.T) {
	repairer := &fakeRepairer{}
	store, svc := newRelationshipFixture(repairer)
	seedUsers(store, "u1", "u2")
	store.PutFriendRequest("u2", "u1")
	boom := errors.New("write timeout")
	store.InjectFault(repository.OpAddFriend, func(key string) error {
		if key == "u2" {
			return boom
		}
		return nil
	})

	err := svc.AcceptRequest(context.Background(), "u1", "u2")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialAccept)
	assert.ErrorIs(t, err, boom)

	u1, _ := store.User("u1")
	assert.Contains(t, u1.Friends, "u2")
	assert.Zero(t, store.PendingRequests("u1", "u2"))
	assert.Equal(t, [][2]string{{"u2", "u1"}}, repairer.edges)
}

func TestAcceptRequest_WithoutPendingRequestWritesNothing(t *testing.T) {
	store, svc := newRelationshipFixture(nil)
	seedUsers(store, "mallory", "victim")
	// 反方向的申请不能被当作可接受的申请
	store.PutFriendRequest("mallory", "victim")
	ctx := context.Background()

	err := svc.AcceptRequest(ctx, "mallory", "victim")
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.NotErrorIs(t, err, ErrPartialAccept)

	mallory, _ := store.User("mallory")
	victim, _ := store.User("victim")
	assert.Empty(t, mallory.Friends)
	assert.Empty(t, victim.Friends)
	assert.Zero(t, store.Calls(repository.OpAddFriend))
	assert.Zero(t, store.Calls(repository.OpDeleteRequests))
	assert.Equal(t, 1, store.PendingRequests("victim", "mallory"))
}

func TestAcceptRequest_SecondAcceptIsPrecondition(t *testing.T) {
	store, svc := newRelationshipFixture(nil)
	seedUsers(store, "u1", "u2")
	store.PutFriendRequest("u2", "u1")
	ctx := context.Background()

	require.NoError(t, svc.AcceptRequest(ctx, "u1", "u2"))
	assert.ErrorIs(t, svc.AcceptRequest(ctx, "u1", "u2"), ErrPrecondition)
	assert.Equal(t, 2, store.Calls(repository.OpAddFriend))
}

func TestAcceptRequest_CountFailureWritesNothing(t *testing.T) {
	store, svc := newRelationshipFixture(nil)
	seedUsers(store, "u1", "u2")
	store.PutFriendRequest("u2", "u1")
	store.InjectFault(repository.OpCountRequests, func(string) error {
		return errors.New("socket closed")
	})

	err := svc.AcceptRequest(context.Background(), "u1", "u2")
	assert.ErrorIs(t, err, repository.ErrDatabase)
	assert.Zero(t, store.Calls(repository.OpAddFriend))
	assert.Equal(t, 1, store.PendingRequests("u1", "u2"))
}

func TestAcceptRequest_CleanupSurvivesExpiredEventContext(t *testing.T) {
	initServiceTestLogger()
	users := &fakeUserRepository{
		addFriendFn: func(ctx context.Context, owner, friend string) error {
			if owner == "u2" {
				<-ctx.Done()
				return ctx.Err()
			}
			return nil
		},
	}
	var (
		deleteCtxErr error
		deleteTrace  string
		deleteCalls  int
	)
	requests := &fakeRequestRepository{
		deleteByPairFn: func(ctx context.Context, to, by string) (int64, error) {
			deleteCalls++
			deleteCtxErr = ctx.Err()
			deleteTrace = ctxmeta.TraceID(ctx)
			return 1, nil
		},
	}
	repairer := &fakeRepairer{}
	svc := NewRelationshipService(users, requests, repairer)

	ctx, cancel := context.WithTimeout(ctxmeta.WithTraceID(context.Background(), "trace-accept"), 20*time.Millisecond)
	defer cancel()

	err := svc.AcceptRequest(ctx, "u1", "u2")
	assert.ErrorIs(t, err, ErrPartialAccept)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Equal(t, 1, deleteCalls)
	assert.NoError(t, deleteCtxErr)
	assert.Equal(t, "trace-accept", deleteTrace)
	assert.Equal(t, [][2]string{{"u2", "u1"}}, repairer.edges)
	assert.Equal(t, []error{nil}, repairer.ctxErrs)
}

func TestAcceptRequest_RejectsSelfAndEmpty(t *testing.T) {
	store, svc := newRelationshipFixture(nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.AcceptRequest(ctx, "u1", ""), ErrPrecondition)
	assert.ErrorIs(t, svc.AcceptRequest(ctx, "u1", "u1"), ErrPrecondition)
	assert.Zero(t, store.Calls(repository.OpAddFriend))
}

func TestRejectRequest_Idempotent(t *testing.T) {
	store, svc := newRelationshipFixture(nil)
	store.PutFriendRequest("u2", "u1")
	store.PutFriendRequest("u2", "u1")
	store.PutFriendRequest("u3", "u1")
	ctx := context.Background()

	require.NoError(t, svc.RejectRequest(ctx, "u1", "u2"))
	assert.Zero(t, store.PendingRequests("u1", "u2"))
	assert.Equal(t, 1, store.PendingRequests("u1", "u3"))

	require.NoError(t, svc.RejectRequest(ctx, "u1", "u2"))
	assert.Zero(t, store.PendingRequests("u1", "u2"))
	assert.Equal(t, 1, store.PendingRequests("u1", "u3"))
}

func TestRejectRequest_OnlyTargetsRequestsToActingUser(t *testing.T) {
	store, svc := newRelationshipFixture(nil)
	store.PutFriendRequest("u1", "u2")

	require.NoError(t, svc.RejectRequest(context.Background(), "u1", "u2"))
	assert.Equal(t, 1, store.PendingRequests("u2", "u1"))
}

func TestListFriends_OrderedRegardlessOfStoreOrder(t *testing.T) {
	initServiceTestLogger()
	users := &fakeUserRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Friends: []string{"c", "a", "b"}}, nil
		},
		batchGetByIDsFn: func(ctx context.Context, ids []string) ([]*model.User, error) {
			return []*model.User{{ID: "c"}, {ID: "b"}, {ID: "a"}}, nil
		},
	}
	svc := NewRelationshipService(users, repository.NewMemoryStore().FriendRequests(), nil)

	for i := 0; i < 3; i++ {
		friends, err := svc.ListFriends(context.Background(), "me")
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, profileIDs(friends))
	}
}

func TestListFriends_MissingUserAndEmptyFriends(t *testing.T) {
	store, svc := newRelationshipFixture(nil)
	seedUsers(store, "lonely")
	ctx := context.Background()

	_, err := svc.ListFriends(ctx, "ghost")
	assert.ErrorIs(t, err, ErrPrecondition)

	friends, err := svc.ListFriends(ctx, "lonely")
	require.NoError(t, err)
	assert.NotNil(t, friends)
	assert.Empty(t, friends)
	assert.Zero(t, store.Calls(repository.OpBatchGetUsers))
}

func TestListFriends_StoreErrorPropagates(t *testing.T) {
	initServiceTestLogger()
	users := &fakeUserRepository{
		getByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, repository.WrapDBError(errors.New("socket closed"))
		},
	}
	svc := NewRelationshipService(users, repository.NewMemoryStore().FriendRequests(), nil)

	_, err := svc.ListFriends(context.Background(), "me")
	assert.ErrorIs(t, err, repository.ErrDatabase)
	assert.NotErrorIs(t, err, ErrPrecondition)
}
