package util

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
)

var (
	snowflakeNode *snowflake.Node
	snowflakeMu   sync.Mutex
	fallbackSeq   atomic.Int64
)

// InitSnowflake 初始化雪花算法节点（进程启动时调用一次）。
// nodeID 取值范围 0~1023，多实例部署时需保证唯一。
func InitSnowflake(nodeID int64) error {
	snowflakeMu.Lock()
	defer snowflakeMu.Unlock()

	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return err
	}
	snowflakeNode = node
	return nil
}

// NextID 生成一个新的连接/任务 ID。
// 未初始化时退化为进程内自增序号，只保证进程内唯一。
func NextID() string {
	snowflakeMu.Lock()
	node := snowflakeNode
	snowflakeMu.Unlock()

	if node == nil {
		return "local-" + strconv.FormatInt(fallbackSeq.Add(1), 10)
	}
	return node.Generate().String()
}
