// Package metrics 定义 connect 服务暴露给 Prometheus 的指标。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 事件处理结果标签
const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultDropped = "dropped"
	ResultIgnored = "ignored"
	ResultLimited = "limited"
)

var (
	// OnlineConnections 当前在线 WebSocket 连接数
	OnlineConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "socialsync",
		Subsystem: "connect",
		Name:      "online_connections",
		Help:      "Number of authenticated WebSocket connections.",
	})

	// AuthRefusals 握手阶段被拒绝的连接数（按原因）
	AuthRefusals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialsync",
		Subsystem: "connect",
		Name:      "auth_refusals_total",
		Help:      "Connections refused by the credential gate.",
	}, []string{"reason"})

	// EventsTotal 上行事件处理次数（按事件名与结果）
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialsync",
		Subsystem: "connect",
		Name:      "events_total",
		Help:      "Inbound events by name and result.",
	}, []string{"event", "result"})

	// EventDuration 事件处理耗时
	EventDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "socialsync",
		Subsystem: "connect",
		Name:      "event_duration_seconds",
		Help:      "Handler latency per inbound event.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event"})

	// FriendEdgeRepairs 好友关系修复任务（按结果：enqueued/applied/failed/dropped）
	FriendEdgeRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "socialsync",
		Subsystem: "relationship",
		Name:      "friend_edge_repairs_total",
		Help:      "Friend edge repair tasks by outcome.",
	}, []string{"outcome"})
)

// Handler 返回 /metrics 处理器。
func Handler() http.Handler {
	return promhttp.Handler()
}
