// Package pubsub streams episode progress over Redis pub/sub.
package pubsub

import (
	"context"
	"errors"
	"fmt"

	"github.com/beka-birhanu/ohrace/service/i"
	"github.com/beka-birhanu/ohrace/sim"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStepPublisher publishes every tick of an episode on its own channel
// and every finished episode on a shared one.
type RedisStepPublisher struct {
	client *redis.Client
	prefix string
	logger i.Logger
}

// NewRedisStepPublisher creates a publisher. logger may be nil.
func NewRedisStepPublisher(client *redis.Client, prefix string, logger i.Logger) (*RedisStepPublisher, error) {
	if client == nil {
		return nil, errors.New("step publisher needs a redis client")
	}
	return &RedisStepPublisher{client: client, prefix: prefix, logger: logger}, nil
}

// StepChannel is where the ticks of episode id are published.
func (p *RedisStepPublisher) StepChannel(id uuid.UUID) string {
	return p.prefix + ":steps:" + id.String()
}

// EpisodeChannel is where finished episodes are announced.
func (p *RedisStepPublisher) EpisodeChannel() string {
	return p.prefix + ":episodes"
}

func (p *RedisStepPublisher) RecordStep(ctx context.Context, s sim.StepRecord) error {
	payload, err := EncodeStep(s)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.StepChannel(s.EpisodeID), payload).Err()
}

func (p *RedisStepPublisher) RecordEpisode(ctx context.Context, e sim.EpisodeRecord) error {
	payload, err := EncodeEpisode(e)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, p.EpisodeChannel(), payload).Err()
}

// SubscribeSteps streams the ticks of one episode until ctx is done.
func (p *RedisStepPublisher) SubscribeSteps(ctx context.Context, id uuid.UUID) (<-chan sim.StepRecord, error) {
	return subscribe(ctx, p, p.StepChannel(id), DecodeStep)
}

// SubscribeEpisodes streams finished episodes until ctx is done.
func (p *RedisStepPublisher) SubscribeEpisodes(ctx context.Context) (<-chan sim.EpisodeRecord, error) {
	return subscribe(ctx, p, p.EpisodeChannel(), DecodeEpisode)
}

func subscribe[T any](ctx context.Context, p *RedisStepPublisher, channel string, decode func([]byte) (T, error)) (<-chan T, error) {
	sub := p.client.Subscribe(ctx, channel)

	// Wait for subscription confirmation
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %s: %w", channel, err)
	}

	out := make(chan T)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				v, err := decode([]byte(msg.Payload))
				if err != nil {
					if p.logger != nil {
						p.logger.Warning(fmt.Sprintf("dropping message on %s: %v", channel, err))
					}
					continue
				}
				select {
				case out <- v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
