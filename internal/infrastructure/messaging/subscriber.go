package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ultra-prompt-ai-api/pkg/logger"
)

// MessageHandler 消息处理函数
type MessageHandler func(ctx context.Context, msg *Message) error

// Subscriber 广播式订阅：每个实例独立从流尾读取，不使用消费者组
// 事件只用于使本地状态失效，漏读不影响正确性
type Subscriber struct {
	client       redis.Cmdable
	stream       Stream
	blockTimeout time.Duration
	handlers     map[string]MessageHandler
}

// NewSubscriber 创建订阅者
func NewSubscriber(client redis.Cmdable, stream Stream, blockTimeout time.Duration) *Subscriber {
	if blockTimeout <= 0 {
		blockTimeout = 5 * time.Second
	}
	return &Subscriber{
		client:       client,
		stream:       stream,
		blockTimeout: blockTimeout,
		handlers:     make(map[string]MessageHandler),
	}
}

// Handle 注册消息处理器，须在 Run 之前调用
func (s *Subscriber) Handle(msgType string, h MessageHandler) {
	s.handlers[msgType] = h
}

// Run 阻塞读取直到 ctx 取消
func (s *Subscriber) Run(ctx context.Context) {
	logger.Info(ctx, "subscriber started", "stream", s.stream)
	defer logger.Info(ctx, "subscriber stopped", "stream", s.stream)

	lastID := "$"
	retry := backoff.NewExponentialBackOff()
	retry.MaxInterval = 30 * time.Second

	for ctx.Err() == nil {
		streams, err := s.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{string(s.stream), lastID},
			Count:   50,
			Block:   s.blockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			wait := retry.NextBackOff()
			logger.Error(ctx, "failed to read from stream", err, "stream", s.stream, "retry_in", wait)
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
			continue
		}
		retry.Reset()

		for _, st := range streams {
			for _, xmsg := range st.Messages {
				s.dispatch(ctx, xmsg)
				lastID = xmsg.ID
			}
		}
	}
}

func (s *Subscriber) dispatch(ctx context.Context, xmsg redis.XMessage) {
	ctx, span := tracer.Start(ctx, "subscriber.dispatch",
		trace.WithAttributes(
			attribute.String("stream", string(s.stream)),
			attribute.String("stream.message_id", xmsg.ID),
		))
	defer span.End()

	msg, err := Decode(xmsg)
	if err != nil {
		logger.Warn(ctx, "skipping malformed message", "message_id", xmsg.ID, "error", err.Error())
		return
	}
	h, ok := s.handlers[msg.Type]
	if !ok {
		return
	}
	if msg.ProjectID != "" {
		ctx = logger.WithContext(ctx, logger.ProjectIDKey, msg.ProjectID)
	}
	if err := h(ctx, msg); err != nil {
		span.RecordError(err)
		logger.Error(ctx, "message handler failed", err, "type", msg.Type)
	}
}

// Decode 从流条目还原消息
func Decode(xmsg redis.XMessage) (*Message, error) {
	data, ok := xmsg.Values["data"].(string)
	if !ok {
		return nil, errors.New("message has no data field")
	}
	var msg Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
