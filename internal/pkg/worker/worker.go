package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"symbiotic_city/internal/pkg/notify"
	"symbiotic_city/pkg/metrics"

	"go.uber.org/zap"
)

// NotifyTask 通知任务
type NotifyTask struct {
	Notification notify.Notification
	Retry        int // 重试次数
}

// NotifyPool 异步通知 worker 池，失败任务进入重试队列
type NotifyPool struct {
	TaskQueue    chan NotifyTask
	RetryQueue   chan NotifyTask
	Notifier     notify.Notifier
	WorkerNum    int
	MaxRetry     int
	RetryBackoff time.Duration // 第 n 次重试等待 n*RetryBackoff
	SendTimeout  time.Duration

	log     *zap.Logger
	metrics *metrics.Collector
	quit    chan struct{}
	stopped atomic.Bool
	once    sync.Once
	wg      sync.WaitGroup
}

var _ notify.Dispatcher = (*NotifyPool)(nil)

func NewNotifyPool(n notify.Notifier, log *zap.Logger, m *metrics.Collector, workerNum, bufferSize, maxRetry int) *NotifyPool {
	if workerNum <= 0 {
		workerNum = 1
	}
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &NotifyPool{
		TaskQueue:    make(chan NotifyTask, bufferSize),
		RetryQueue:   make(chan NotifyTask, bufferSize/2+1),
		Notifier:     n,
		WorkerNum:    workerNum,
		MaxRetry:     maxRetry,
		RetryBackoff: time.Second,
		SendTimeout:  5 * time.Second,
		log:          log,
		metrics:      m,
		quit:         make(chan struct{}),
	}
}

func (p *NotifyPool) Start() {
	for i := 0; i < p.WorkerNum; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	// 启动重试处理协程
	p.wg.Add(1)
	go p.retryWorker()
	p.log.Info("notify worker pool started", zap.Int("workers", p.WorkerNum))
}

// Stop 停止接收新任务，处理完队列中已有任务后返回
func (p *NotifyPool) Stop() {
	p.once.Do(func() {
		p.stopped.Store(true)
		close(p.quit)
	})
	p.wg.Wait()
}

// Dispatch 投递通知，队列满或已停止时丢弃并记录
func (p *NotifyPool) Dispatch(n notify.Notification) {
	if p.stopped.Load() {
		p.deadLetter(NotifyTask{Notification: n}, nil, "pool stopped")
		return
	}
	select {
	case p.TaskQueue <- NotifyTask{Notification: n}:
	default:
		p.deadLetter(NotifyTask{Notification: n}, nil, "queue full")
	}
}

func (p *NotifyPool) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.TaskQueue:
			p.handle(id, task)
		case <-p.quit:
			// 退出前清空队列
			for {
				select {
				case task := <-p.TaskQueue:
					p.handle(id, task)
				default:
					return
				}
			}
		}
	}
}

func (p *NotifyPool) handle(id int, task NotifyTask) {
	err := p.send(task)
	if err == nil {
		p.metrics.ObserveNotification("sent")
		return
	}

	p.log.Warn("notification failed",
		zap.Int("worker", id),
		zap.String("account_id", task.Notification.AccountID),
		zap.Int("retry", task.Retry),
		zap.Error(err))

	// 如果未达到最大重试次数，加入重试队列
	if task.Retry >= p.MaxRetry || p.stopped.Load() {
		p.deadLetter(task, err, "retries exhausted")
		return
	}
	task.Retry++
	select {
	case p.RetryQueue <- task:
	default:
		p.deadLetter(task, err, "retry queue full")
	}
}

func (p *NotifyPool) send(task NotifyTask) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.SendTimeout)
	defer cancel()
	return p.Notifier.Notify(ctx, task.Notification)
}

func (p *NotifyPool) retryWorker() {
	defer p.wg.Done()
	for {
		select {
		case task := <-p.RetryQueue:
			// 延迟重试，避免立即重试
			select {
			case <-time.After(time.Duration(task.Retry) * p.RetryBackoff):
			case <-p.quit:
				p.deadLetter(task, nil, "pool stopped")
				continue
			}
			select {
			case p.TaskQueue <- task:
			default:
				p.deadLetter(task, nil, "queue full")
			}
		case <-p.quit:
			return
		}
	}
}

func (p *NotifyPool) deadLetter(task NotifyTask, err error, reason string) {
	p.metrics.ObserveNotification("dropped")
	p.log.Error("notification dropped",
		zap.String("reason", reason),
		zap.String("account_id", task.Notification.AccountID),
		zap.String("title", task.Notification.Title),
		zap.Int("retry", task.Retry),
		zap.Error(err))
}
