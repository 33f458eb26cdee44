package notify

import (
	"context"

	"go.uber.org/zap"
)

// Notification 一条站内推送
type Notification struct {
	AccountID string            // 接收方用户 ID
	Title     string
	Body      string
	Extra     map[string]string // 客户端跳转参数，如 order_id
}

// Notifier 同步发送通知
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Dispatcher 异步投递通知，不阻塞业务流程
type Dispatcher interface {
	Dispatch(n Notification)
}

// LogNotifier 未配置推送服务时只记录日志
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Notification) error {
	n.log.Info("notification",
		zap.String("account_id", msg.AccountID),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body),
	)
	return nil
}

// Discard 丢弃所有通知
type Discard struct{}

func (Discard) Dispatch(Notification) {}
