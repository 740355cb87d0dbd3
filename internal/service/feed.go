package service

import (
	"context"
	"courseconnect_backend/internal/model"
	"courseconnect_backend/pkg/logger"
	"courseconnect_backend/pkg/monitoring"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const publishTimeout = 2 * time.Second

// EventPublisher 课堂事件推送，失败只记录日志
type EventPublisher interface {
	Publish(ctx context.Context, ev model.Event)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.Event) {}

// ChannelFor 课堂事件所在的 Redis 频道
func ChannelFor(classID string) string {
	return "class:" + classID + ":events"
}

// RedisFeed 基于 Redis pub/sub 的课堂变更流
type RedisFeed struct {
	rdb *redis.Client
}

func NewRedisFeed(rdb *redis.Client) *RedisFeed {
	return &RedisFeed{rdb: rdb}
}

func (f *RedisFeed) Publish(ctx context.Context, ev model.Event) {
	if ev.ClassID == "" {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Log.Error("Failed to encode feed event", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}

	// 事件在写入提交之后发送，不跟随请求取消
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := f.rdb.Publish(pctx, ChannelFor(ev.ClassID), payload).Err(); err != nil {
		monitoring.FeedEvents.WithLabelValues(string(ev.Type), "failed").Inc()
		logger.Log.Warn("Failed to publish feed event",
			zap.String("class_id", ev.ClassID),
			zap.String("type", string(ev.Type)),
			zap.Error(err))
		return
	}
	monitoring.FeedEvents.WithLabelValues(string(ev.Type), "published").Inc()
}

// Subscribe 订阅课堂事件；调用返回的 cancel 或 ctx 结束时关闭订阅与通道
func (f *RedisFeed) Subscribe(ctx context.Context, classID string) (<-chan model.Event, context.CancelFunc, error) {
	ps := f.rdb.Subscribe(ctx, ChannelFor(classID))
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan model.Event, 16)
	msgs := ps.Channel()

	go func() {
		defer close(out)
		defer ps.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev model.Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					logger.Log.Warn("Dropping malformed feed event", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, cancel, nil
}
