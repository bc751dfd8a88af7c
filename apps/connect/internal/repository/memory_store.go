package repository

import (
	"SocialSync/model"
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// 内存存储的操作名，用于调用计数与故障注入
const (
	OpGetUser        = "users.get"
	OpBatchGetUsers  = "users.batchGet"
	OpAddFriend      = "users.addFriend"
	OpListRequests   = "requests.listByRecipient"
	OpCountRequests  = "requests.countByPair"
	OpDeleteRequests = "requests.deleteByPair"
	OpListChats      = "chats.listByParticipant"
	OpCreateChat     = "chats.create"
	OpGetChat        = "chats.get"
	OpListMessages   = "messages.listRecent"
)

// Fault 故障注入函数，key 为操作的第一个参数（通常是用户或会话 ID），返回非 nil 即让该次调用失败
type Fault func(key string) error

// MemoryStore 进程内文档存储，实现全部 Repository 接口。
// 用于 STORE_DRIVER=memory 的本地开发模式与测试；单把互斥锁保证每次字段更新原子。
type MemoryStore struct {
	mu       sync.Mutex
	users    map[string]*model.User
	requests map[primitive.ObjectID]*model.FriendRequest
	chats    map[primitive.ObjectID]*model.Chat
	messages map[string][]*model.Message
	calls    map[string]int
	faults   map[string]Fault
}

// NewMemoryStore 创建空的内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]*model.User),
		requests: make(map[primitive.ObjectID]*model.FriendRequest),
		chats:    make(map[primitive.ObjectID]*model.Chat),
		messages: make(map[string][]*model.Message),
		calls:    make(map[string]int),
		faults:   make(map[string]Fault),
	}
}

// Users 返回用户仓储视图
func (s *MemoryStore) Users() IUserRepository { return memoryUserRepo{s} }

// FriendRequests 返回好友申请仓储视图
func (s *MemoryStore) FriendRequests() IFriendRequestRepository { return memoryRequestRepo{s} }

// Chats 返回会话仓储视图
func (s *MemoryStore) Chats() IChatRepository { return memoryChatRepo{s} }

// Messages 返回消息仓储视图
func (s *MemoryStore) Messages() IMessageRepository { return memoryMessageRepo{s} }

// ==================== 数据准备 ====================

// PutUser 写入（覆盖）用户文档
func (s *MemoryStore) PutUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = cloneUser(&u)
}

// PutFriendRequest 写入一条好友申请，返回生成的 ID
func (s *MemoryStore) PutFriendRequest(by, to string) primitive.ObjectID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := primitive.NewObjectID()
	s.requests[id] = &model.FriendRequest{ID: id, By: by, To: to, CreatedAt: time.Now()}
	return id
}

// PutMessage 追加一条消息
func (s *MemoryStore) PutMessage(m model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	s.messages[m.ChatID] = append(s.messages[m.ChatID], &m)
}

// User 读取用户快照（测试断言用），不计入调用次数
func (s *MemoryStore) User(id string) (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, false
	}
	return *cloneUser(u), true
}

// PendingRequests 统计 (to, by) 的剩余申请数，不计入调用次数
func (s *MemoryStore) PendingRequests(to, by string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.To == to && r.By == by {
			n++
		}
	}
	return n
}

// ==================== 观测与故障注入 ====================

// Calls 返回某操作的调用次数
func (s *MemoryStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// InjectFault 为某操作设置故障；fault 为 nil 时清除
func (s *MemoryStore) InjectFault(op string, fault Fault) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fault == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = fault
}

// enter 记录调用并检查故障，调用方需持有锁
func (s *MemoryStore) enter(op, key string) error {
	s.calls[op]++
	if f, ok := s.faults[op]; ok {
		if err := f(key); err != nil {
			return WrapDBError(err)
		}
	}
	return nil
}

// ==================== 用户 ====================

type memoryUserRepo struct{ s *MemoryStore }

func (r memoryUserRepo) GetByID(ctx context.Context, userID string) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(OpGetUser, userID); err != nil {
		return nil, err
	}
	u, ok := r.s.users[userID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return cloneUser(u), nil
}

// BatchGetByIDs 按 map 遍历顺序返回（即无序），调用方不能依赖存储顺序
func (r memoryUserRepo) BatchGetByIDs(ctx context.Context, userIDs []string) ([]*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(OpBatchGetUsers, ""); err != nil {
		return nil, err
	}
	want := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		want[id] = struct{}{}
	}
	out := make([]*model.User, 0, len(want))
	for id, u := range r.s.users {
		if _, ok := want[id]; ok {
			out = append(out, cloneUser(u))
		}
	}
	return out, nil
}

func (r memoryUserRepo) AddFriend(ctx context.Context, userID, friendID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(OpAddFriend, userID); err != nil {
		return err
	}
	u, ok := r.s.users[userID]
	if !ok {
		return ErrRecordNotFound
	}
	for _, f := range u.Friends {
		if f == friendID {
			return nil
		}
	}
	u.Friends = append(u.Friends, friendID)
	return nil
}

// ==================== 好友申请 ====================

type memoryRequestRepo struct{ s *MemoryStore }

func (r memoryRequestRepo) ListByRecipient(ctx context.Context, userID string) ([]*model.FriendRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(OpListRequests, userID); err != nil {
		return nil, err
	}
	out := make([]*model.FriendRequest, 0)
	for _, req := range r.s.requests {
		if req.To == userID {
			cp := *req
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r memoryRequestRepo) CountByPair(ctx context.Context, to, by string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(OpCountRequests, to); err != nil {
		return 0, err
	}
	var n int64
	for _, req := range r.s.requests {
		if req.To == to && req.By == by {
			n++
		}
	}
	return n, nil
}

func (r memoryRequestRepo) DeleteByPair(ctx context.Context, to, by string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(OpDeleteRequests, to); err != nil {
		return 0, err
	}
	var n int64
	for id, req := range r.s.requests {
		if req.To == to && req.By == by {
			delete(r.s.requests, id)
			n++
		}
	}
	return n, nil
}

// ==================== 会话 ====================

type memoryChatRepo struct{ s *MemoryStore }

func (r memoryChatRepo) ListByParticipant(ctx context.Context, userID string) ([]*model.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(OpListChats, userID); err != nil {
		return nil, err
	}
	out := make([]*model.Chat, 0)
	for _, c := range r.s.chats {
		for _, p := range c.Participants {
			if p == userID {
				out = append(out, cloneChat(c))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Updated.Equal(out[j].Updated) {
			return out[i].ID.Hex() > out[j].ID.Hex()
		}
		return out[i].Updated.After(out[j].Updated)
	})
	return out, nil
}

func (r memoryChatRepo) Create(ctx context.Context, chat *model.Chat) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := ""
	if len(chat.Participants) > 0 {
		key = chat.Participants[0]
	}
	if err := r.s.enter(OpCreateChat, key); err != nil {
		return "", err
	}
	stored := cloneChat(chat)
	stored.ID = primitive.NewObjectID()
	r.s.chats[stored.ID] = stored
	return stored.ID.Hex(), nil
}

func (r memoryChatRepo) GetByID(ctx context.Context, chatID string) (*model.Chat, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(OpGetChat, chatID); err != nil {
		return nil, err
	}
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, ErrRecordNotFound
	}
	c, ok := r.s.chats[oid]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return cloneChat(c), nil
}

// ==================== 消息 ====================

type memoryMessageRepo struct{ s *MemoryStore }

func (r memoryMessageRepo) ListRecent(ctx context.Context, chatID string, limit int64) ([]*model.Message, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.enter(OpListMessages, chatID); err != nil {
		return nil, err
	}
	all := make([]*model.Message, 0, len(r.s.messages[chatID]))
	for _, m := range r.s.messages[chatID] {
		cp := *m
		all = append(all, &cp)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})
	if limit <= 0 {
		return []*model.Message{}, nil
	}
	if int64(len(all)) > limit {
		all = all[int64(len(all))-limit:]
	}
	return all, nil
}

func cloneUser(u *model.User) *model.User {
	cp := *u
	if u.Friends != nil {
		cp.Friends = append([]string(nil), u.Friends...)
	}
	return &cp
}

func cloneChat(c *model.Chat) *model.Chat {
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	return &cp
}
