// Package notify 通过 Redis pub/sub 分发借用申请的变更
package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"lab_borrow_portal/lifecycle"
)

const DefaultChannel = "borrow_requests:changes"

type Redis struct {
	rdb     *redis.Client
	channel string
}

var _ lifecycle.Notifier = (*Redis)(nil)

func NewRedis(rdb *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{rdb: rdb, channel: channel}
}

func (n *Redis) Channel() string { return n.channel }

func (n *Redis) Publish(ctx context.Context, c lifecycle.Change) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return n.rdb.Publish(ctx, n.channel, b).Err()
}

// Subscribe 持续推送变更直到 ctx 结束，订阅停止时关闭返回的通道
// 解不开的消息直接丢弃
func (n *Redis) Subscribe(ctx context.Context) (<-chan lifecycle.Change, error) {
	sub := n.rdb.Subscribe(ctx, n.channel)
	// 等待订阅确认，连不上就直接报错
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan lifecycle.Change, 16)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var c lifecycle.Change
				if err := json.Unmarshal([]byte(m.Payload), &c); err != nil {
					log.Printf("notify: drop bad payload: %v", err)
					continue
				}
				select {
				case out <- c:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
