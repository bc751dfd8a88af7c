package manager

import (
	"SocialSync/pkg/metrics"
	"sync"
)

// ConnectionManager 管理所有在线 WebSocket 连接，仅用于生命周期与优雅退出。
// 维护两套索引：
// - byID(conn_id) 用于精确定位单条连接；
// - byUser(user_id -> conn_id -> client) 用于按用户统计。
// 同一用户允许多条并存连接，互不替换。
type ConnectionManager struct {
	mu       sync.RWMutex
	byID     map[string]*Client
	byUser   map[string]map[string]*Client
	shutdown bool
}

// NewConnectionManager 创建连接管理器实例。
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		byID:   make(map[string]*Client),
		byUser: make(map[string]map[string]*Client),
	}
}

// Register 注册一个已绑定身份的连接。
// 返回 false 表示管理器已关闭或连接尚未绑定身份，调用方应直接关闭连接。
func (m *ConnectionManager) Register(client *Client) bool {
	userID := client.UserID()
	if userID == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return false
	}

	m.byID[client.ID()] = client
	userConns, ok := m.byUser[userID]
	if !ok {
		userConns = make(map[string]*Client)
		m.byUser[userID] = userConns
	}
	userConns[client.ID()] = client
	metrics.OnlineConnections.Set(float64(len(m.byID)))
	return true
}

// Unregister 注销一个连接。
// 只有当 map 中当前连接与入参完全一致时才删除。
func (m *ConnectionManager) Unregister(client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.byID[client.ID()]
	if !ok || current != client {
		return
	}

	delete(m.byID, client.ID())
	if userConns, ok := m.byUser[client.UserID()]; ok {
		delete(userConns, client.ID())
		if len(userConns) == 0 {
			delete(m.byUser, client.UserID())
		}
	}
	metrics.OnlineConnections.Set(float64(len(m.byID)))
}

// Count 返回当前在线连接数。
func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}

// UserConnections 返回某用户当前的连接数。
func (m *ConnectionManager) UserConnections(userID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byUser[userID])
}

// Closed 是否已进入停机阶段。
func (m *ConnectionManager) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.shutdown
}

// Shutdown 关闭全部连接并阻止后续注册。
// 用于进程优雅退出阶段，确保不再接收新连接并尽快释放资源。
func (m *ConnectionManager) Shutdown() {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return
	}
	m.shutdown = true

	clients := make([]*Client, 0, len(m.byID))
	for _, client := range m.byID {
		clients = append(clients, client)
	}
	m.byID = make(map[string]*Client)
	m.byUser = make(map[string]map[string]*Client)
	metrics.OnlineConnections.Set(0)
	m.mu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
