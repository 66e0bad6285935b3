package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"led-service/internal/fsm"
	"led-service/internal/logger"
)

type Callbacks struct {
	// PressCallback receives a remote press on input (0-based). It must not
	// block; presses go through the same debouncer as the buttons.
	PressCallback func(input int) error
}

// RedisClient publishes the controller state into a hash named after the
// key prefix and listens on "<prefix>:press" for injected presses.
type RedisClient struct {
	client    *redis.Client
	prefix    string
	callbacks Callbacks
	logger    *logger.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewRedisClient(addr, prefix string, l *logger.Logger, callbacks Callbacks) *RedisClient {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisClient{
		client: redis.NewClient(&redis.Options{
			Addr: addr,
			DB:   0,
		}),
		prefix:    prefix,
		callbacks: callbacks,
		logger:    l,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (r *RedisClient) SetCallbacks(callbacks Callbacks) {
	r.callbacks = callbacks
}

func (r *RedisClient) Connect() error {
	r.logger.Infof("Attempting to connect to Redis at %s", r.client.Options().Addr)

	if err := r.client.Ping(r.ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	r.logger.Infof("Successfully connected to Redis")
	return nil
}

func (r *RedisClient) pressKey() string { return r.prefix + ":press" }

func (r *RedisClient) faultStream() string { return "events:" + r.prefix }

// StartListening starts the remote press listener. Stale presses queued
// while the service was down are discarded first.
func (r *RedisClient) StartListening() error {
	if err := r.client.Del(r.ctx, r.pressKey()).Err(); err != nil {
		r.logger.Warnf("Failed to clear stale presses: %v", err)
	}

	r.wg.Add(1)
	go r.listCommandListener(r.pressKey(), r.handlePressCommand)
	return nil
}

func (r *RedisClient) listCommandListener(key string, handler func(string) error) {
	defer r.wg.Done()
	r.logger.Infof("Starting list command listener for %s", key)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Infof("Context cancelled, exiting %s listener", key)
			return
		default:
		}

		// short timeout so cancellation is noticed between pops
		result, err := r.client.BRPop(r.ctx, 5*time.Second, key).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) {
				r.logger.Infof("Context cancelled, exiting %s listener", key)
				return
			}
			r.logger.Warnf("Error reading from %s list: %v", key, err)
			select {
			case <-r.ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		if len(result) >= 2 { // BRPOP returns [key, value]
			value := result[1]
			r.logger.Debugf("Received command from %s: %s", key, value)
			if err := handler(value); err != nil {
				r.logger.Warnf("Error handling %s command: %v", key, err)
			}
		}
	}
}

// ParsePress accepts "1".."3" or the event names "press-1".."press-3" and
// returns the 0-based input.
func ParsePress(value string) (int, error) {
	v := strings.TrimPrefix(strings.TrimSpace(value), "press-")
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > fsm.NumInputs {
		return 0, fmt.Errorf("invalid press command: %q", value)
	}
	return n - 1, nil
}

func (r *RedisClient) handlePressCommand(value string) error {
	if r.callbacks.PressCallback == nil {
		return nil
	}
	input, err := ParsePress(value)
	if err != nil {
		return err
	}
	return r.callbacks.PressCallback(input)
}

// PublishState sets state, the triggering event and a timestamp in one
// pipeline and notifies subscribers of the prefix channel.
func (r *RedisClient) PublishState(state, event string) error {
	r.logger.Debugf("Publishing state: %s (%s)", state, event)
	timestamp := time.Now().Format(time.RFC3339)

	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, r.prefix, "state", state)
	pipe.HSet(r.ctx, r.prefix, "state:event", event)
	pipe.HSet(r.ctx, r.prefix, "state:timestamp", timestamp)
	pipe.Publish(r.ctx, r.prefix, "state")
	if _, err := pipe.Exec(r.ctx); err != nil {
		return fmt.Errorf("failed to publish state: %w", err)
	}
	return nil
}

// PublishProfile records the active profile and its state names once at
// startup.
func (r *RedisClient) PublishProfile(profile string, states []string) error {
	pipe := r.client.Pipeline()
	pipe.HSet(r.ctx, r.prefix, "profile", profile)
	pipe.HSet(r.ctx, r.prefix, "states", strings.Join(states, ","))
	pipe.Publish(r.ctx, r.prefix, "profile")
	if _, err := pipe.Exec(r.ctx); err != nil {
		return fmt.Errorf("failed to publish profile: %w", err)
	}
	return nil
}

// ReportHookFailure appends a failed hook to the service's event stream.
func (r *RedisClient) ReportHookFailure(state, hook, reason string) error {
	pipe := r.client.Pipeline()
	pipe.XAdd(r.ctx, &redis.XAddArgs{
		Stream: r.faultStream(),
		MaxLen: 1000,
		Approx: true,
		Values: map[string]interface{}{
			"state": state,
			"hook":  hook,
			"error": reason,
			"ts":    time.Now().Unix(),
		},
	})
	pipe.Publish(r.ctx, r.prefix, "fault")
	if _, err := pipe.Exec(r.ctx); err != nil {
		return fmt.Errorf("failed to report hook failure: %w", err)
	}
	return nil
}

// SendPress queues a remote press, as a client of another instance would.
func (r *RedisClient) SendPress(input int) error {
	return r.client.LPush(r.ctx, r.pressKey(), strconv.Itoa(input+1)).Err()
}

func (r *RedisClient) Close() error {
	r.logger.Infof("Closing Redis client")
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Infof("All Redis goroutines finished")
	case <-time.After(5 * time.Second):
		r.logger.Warnf("Timeout waiting for Redis goroutines to finish")
	}

	return r.client.Close()
}
