package services

import (
	"match-detail-service/models"
)

// LocalSink 是本地广播入口，由 web 层的 Hub 实现
type LocalSink interface {
	Broadcast(msg models.BroadcastMessage)
}

// Broadcaster 定义了跨进程广播通道的抽象接口。
// 写入方调用 Publish 把消息发到共享通道；每个进程（包括发布者自己）
// 的订阅循环把收到的消息转发进本地 Hub，使多进程呈现一致的实时视图。
type Broadcaster interface {
	// Start 启动后台订阅循环，把通道消息转发给 sink
	Start(sink LocalSink) error
	// Publish 把消息序列化后发到共享通道
	Publish(msg models.BroadcastMessage) error
	// Stop 取消订阅循环并释放连接，可重复调用
	Stop()
}
