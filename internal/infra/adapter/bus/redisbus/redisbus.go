// Package redisbus implements the job and result bus contracts from
// internal/repository/bus.go on top of Redis Streams, grounded on the
// asyncio redis client the Python services used: one XADD per publish, one
// consumer group per reading side, BUSYGROUP and NOGROUP handled inline
// rather than surfaced as errors.
package redisbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"manifeed/internal/repository"
)

const (
	StreamRequests = "rss_scrape_requests"
	StreamCheck    = "rss_check_results"
	StreamIngest   = "rss_ingest_results"
	StreamErrors   = "error_feeds_parsing"

	GroupWorker    = "worker_rss_scrapper_group"
	GroupPersister = "db_manager_group"

	payloadField = "payload"
)

// JobBus implements repository.JobPublisher and repository.JobConsumer.
type JobBus struct {
	client       *redis.Client
	consumerName string
}

func NewJobBus(client *redis.Client, consumerName string) *JobBus {
	return &JobBus{client: client, consumerName: consumerName}
}

func (b *JobBus) PublishJobBatch(ctx context.Context, batch []repository.FeedPayload, req repository.ScrapeJobRequest) error {
	req.Feeds = batch
	encoded, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("PublishJobBatch: marshal: %w", err)
	}
	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamRequests,
		Values: map[string]any{payloadField: encoded},
	}).Err(); err != nil {
		return fmt.Errorf("PublishJobBatch: xadd: %w", err)
	}
	return nil
}

func (b *JobBus) EnsureGroup(ctx context.Context) error {
	return ensureGroup(ctx, b.client, StreamRequests, GroupWorker)
}

func (b *JobBus) ReadJobs(ctx context.Context, count int, blockMillis int) ([]repository.ConsumedMessage, error) {
	streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    GroupWorker,
		Consumer: b.consumerName,
		Streams:  []string{StreamRequests, ">"},
		Count:    int64(count),
		Block:    time.Duration(blockMillis) * time.Millisecond,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if isNoGroup(err) {
			if ensureErr := b.EnsureGroup(ctx); ensureErr != nil {
				return nil, fmt.Errorf("ReadJobs: recreate group: %w", ensureErr)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("ReadJobs: %w", err)
	}
	return decodeStreams(streams), nil
}

func (b *JobBus) Ack(ctx context.Context, messageID string) error {
	if err := b.client.XAck(ctx, StreamRequests, GroupWorker, messageID).Err(); err != nil {
		return fmt.Errorf("Ack: %w", err)
	}
	return nil
}

// ResultBus implements repository.ResultPublisher and repository.ResultConsumer.
type ResultBus struct {
	client       *redis.Client
	consumerName string
}

func NewResultBus(client *redis.Client, consumerName string) *ResultBus {
	return &ResultBus{client: client, consumerName: consumerName}
}

func streamForQueueKind(queueKind string) (string, error) {
	switch queueKind {
	case "check":
		return StreamCheck, nil
	case "ingest":
		return StreamIngest, nil
	case "error":
		return StreamErrors, nil
	default:
		return "", fmt.Errorf("unknown queue kind %q", queueKind)
	}
}

func (b *ResultBus) PublishResult(ctx context.Context, queueKind string, result repository.WorkerResult) error {
	stream, err := streamForQueueKind(queueKind)
	if err != nil {
		return fmt.Errorf("PublishResult: %w", err)
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("PublishResult: marshal: %w", err)
	}
	if err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{payloadField: encoded},
	}).Err(); err != nil {
		return fmt.Errorf("PublishResult: xadd: %w", err)
	}
	return nil
}

func (b *ResultBus) EnsureGroups(ctx context.Context) error {
	for _, stream := range []string{StreamCheck, StreamIngest, StreamErrors} {
		if err := ensureGroup(ctx, b.client, stream, GroupPersister); err != nil {
			return err
		}
	}
	return nil
}

func (b *ResultBus) ReadResults(ctx context.Context, count int, blockMillis int) ([]repository.ConsumedMessage, error) {
	streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    GroupPersister,
		Consumer: b.consumerName,
		Streams:  []string{StreamCheck, StreamIngest, StreamErrors, ">", ">", ">"},
		Count:    int64(count),
		Block:    time.Duration(blockMillis) * time.Millisecond,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if isNoGroup(err) {
			if ensureErr := b.EnsureGroups(ctx); ensureErr != nil {
				return nil, fmt.Errorf("ReadResults: recreate groups: %w", ensureErr)
			}
			return nil, nil
		}
		return nil, fmt.Errorf("ReadResults: %w", err)
	}
	return decodeStreams(streams), nil
}

func (b *ResultBus) Ack(ctx context.Context, stream, messageID string) error {
	if err := b.client.XAck(ctx, stream, GroupPersister, messageID).Err(); err != nil {
		return fmt.Errorf("Ack: %w", err)
	}
	return nil
}

func ensureGroup(ctx context.Context, client *redis.Client, stream, group string) error {
	err := client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("ensureGroup(%s,%s): %w", stream, group, err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && containsToken(err.Error(), "BUSYGROUP")
}

func isNoGroup(err error) bool {
	return err != nil && containsToken(err.Error(), "NOGROUP")
}

func containsToken(s, token string) bool {
	for i := 0; i+len(token) <= len(s); i++ {
		if s[i:i+len(token)] == token {
			return true
		}
	}
	return false
}

func decodeStreams(streams []redis.XStream) []repository.ConsumedMessage {
	var out []repository.ConsumedMessage
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			raw, ok := msg.Values[payloadField]
			if !ok {
				continue
			}
			payload, ok := raw.(string)
			if !ok {
				continue
			}
			out = append(out, repository.ConsumedMessage{
				Stream:    stream.Stream,
				MessageID: msg.ID,
				Payload:   []byte(payload),
			})
		}
	}
	return out
}
