package shared

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStreamQueue is a MessageQueue backed by a Redis Stream with a consumer
// group. Messages are acked only when the handler returns nil, so a crashed
// consumer leaves them pending for redelivery.
type RedisStreamQueue struct {
	client *redis.Client
	stream string
	group  string
	name   string
	logger *log.Logger

	cancel context.CancelFunc
	ctx    context.Context
}

func NewRedisStreamQueue(addr, stream, group, name string, logger *log.Logger) (*RedisStreamQueue, error) {
	if logger == nil {
		logger = log.Default()
	}
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	ctx, cancel := context.WithCancel(context.Background())
	// Create consumer group if not exists
	if err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err(); err != nil && !isBusyGroup(err) {
		logger.Printf("Consumer group create for stream %s: %v", stream, err)
	}
	return &RedisStreamQueue{
		client: client,
		stream: stream,
		group:  group,
		name:   name,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

func (q *RedisStreamQueue) Publish(topic string, body []byte) error {
	return q.client.XAdd(q.ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]interface{}{
			"topic": topic,
			"body":  body,
		},
	}).Err()
}

// Subscribe blocks, delivering stream entries to the handler until Close is
// called. A handler error leaves the message unacked.
func (q *RedisStreamQueue) Subscribe(handler func(topic string, body []byte, id string) error) error {
	for {
		msgs, err := q.client.XReadGroup(q.ctx, &redis.XReadGroupArgs{
			Group:    q.group,
			Consumer: q.name,
			Streams:  []string{q.stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if errors.Is(err, context.Canceled) || q.ctx.Err() != nil {
			return nil
		}
		if err != nil && err != redis.Nil {
			q.logger.Printf("xreadgroup failed: %v", err)
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range msgs {
			for _, msg := range stream.Messages {
				topic, _ := msg.Values["topic"].(string)
				bodyStr, _ := msg.Values["body"].(string)
				if err := handler(topic, []byte(bodyStr), msg.ID); err == nil {
					q.client.XAck(q.ctx, q.stream, q.group, msg.ID)
				}
			}
		}
	}
}

func (q *RedisStreamQueue) Close() error {
	q.cancel()
	return q.client.Close()
}

// BUSYGROUP means the consumer group already exists, which is fine.
func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
