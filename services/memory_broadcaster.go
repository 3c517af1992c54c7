package services

import (
	"sync"

	"match-detail-service/logger"
	"match-detail-service/models"
)

// MemoryBroadcaster 是 Broadcaster 接口的进程内实现，用于测试和
// 无消息中间件的单进程运行。Publish 直接回环到本地 sink。
type MemoryBroadcaster struct {
	sink LocalSink
	mu   sync.RWMutex
}

// NewMemoryBroadcaster 创建 MemoryBroadcaster 实例
func NewMemoryBroadcaster() *MemoryBroadcaster {
	return &MemoryBroadcaster{}
}

// Start 实现 Broadcaster 接口
func (b *MemoryBroadcaster) Start(sink LocalSink) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sink = sink
	logger.Println("[MemoryBroadcaster] Started (in-process loopback)")
	return nil
}

// Publish 实现 Broadcaster 接口，同步回环到本地 sink
func (b *MemoryBroadcaster) Publish(msg models.BroadcastMessage) error {
	b.mu.RLock()
	sink := b.sink
	b.mu.RUnlock()

	if sink != nil {
		sink.Broadcast(msg)
	}
	return nil
}

// Stop 实现 Broadcaster 接口
func (b *MemoryBroadcaster) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sink = nil
}
