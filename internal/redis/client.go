// Package redis wraps the process-wide shared Redis connection. Every remote
// cache store reuses the one Client created at startup, so command timeouts,
// the circuit breaker, and the reconnect policy apply uniformly.
package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"codeatlas/internal/circuitbreaker"
	"codeatlas/internal/common/errors"
	"codeatlas/internal/common/logging"
	"codeatlas/internal/common/utils"
)

const commandTimeout = 5 * time.Second

type Config struct {
	// URL takes precedence over Address when set, e.g. "redis://localhost:6379/0".
	URL      string `json:"url"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`

	PoolSize     int `json:"pool_size"`
	MinIdleConns int `json:"min_idle_conns"`

	// PingInterval is the watchdog cadence; the watchdog drives the
	// connection state machine and triggers reconnects.
	PingInterval time.Duration `json:"ping_interval"`

	// RetryAttempts and RetryDelay shape one reconnect cycle.
	RetryAttempts int           `json:"retry_attempts"`
	RetryDelay    time.Duration `json:"retry_delay"`

	Breaker circuitbreaker.Config `json:"-"`
}

type Client struct {
	rdb     *redis.Client
	config  *Config
	logger  logging.Logger
	breaker *circuitbreaker.GoBreakerAdapter

	mu        sync.RWMutex
	state     ConnectionState
	observers []StateObserver

	watchOnce   sync.Once
	watchCancel context.CancelFunc
	watchDone   chan struct{}

	closeOnce sync.Once
	closeErr  error
}

// NewClient builds the client without dialing. Call Connect to establish the
// connection; until then every command fails fast in StateDisconnected.
func NewClient(config *Config, logger logging.Logger) (*Client, error) {
	if config == nil {
		return nil, errors.ConfigError("redis config is required")
	}
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	if config.Address == "" {
		config.Address = "localhost:6379"
	}
	if config.PoolSize == 0 {
		config.PoolSize = 10
	}
	if config.PingInterval == 0 {
		config.PingInterval = 15 * time.Second
	}
	if config.RetryAttempts == 0 {
		config.RetryAttempts = 3
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 1 * time.Second
	}
	if config.Breaker.MaxFailures == 0 {
		config.Breaker = circuitbreaker.DefaultConfig()
	}

	var opts *redis.Options
	if config.URL != "" {
		parsed, err := redis.ParseURL(config.URL)
		if err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("invalid redis url %q: %v", config.URL, err))
		}
		opts = parsed
		if config.Password != "" {
			opts.Password = config.Password
		}
	} else {
		opts = &redis.Options{
			Addr:     config.Address,
			Password: config.Password,
			DB:       config.DB,
		}
	}
	opts.PoolSize = config.PoolSize
	opts.MinIdleConns = config.MinIdleConns

	c := &Client{
		rdb:    redis.NewClient(opts),
		config: config,
		logger: logger,
		state:  StateDisconnected,
	}

	// An open breaker means the backend is gone; park the state machine in
	// StateError so callers fail fast. Recovery is owned by the watchdog.
	breakerCfg := config.Breaker
	breakerCfg.OnStateChange = func(name string, from, to circuitbreaker.State) {
		if to == circuitbreaker.StateOpen {
			c.setState(StateError)
		}
	}
	c.breaker = circuitbreaker.NewGoBreaker("redis", breakerCfg, logger)

	return c, nil
}

// Connect establishes the connection and starts the watchdog. On failure the
// client is left in StateError and the caller decides whether to degrade.
func (c *Client) Connect(ctx context.Context) error {
	if c.State() == StateClosed {
		return errors.ConnectionError("redis client is closed", nil)
	}

	c.setState(StateConnecting)
	if err := c.ping(ctx); err != nil {
		c.setState(StateError)
		return errors.ConnectionError("failed to connect to Redis", err)
	}

	c.setState(StateConnected)
	c.startWatchdog()
	return nil
}

// OnStateChange registers an observer for connection state transitions.
// Observers are invoked synchronously in registration order.
func (c *Client) OnStateChange(fn StateObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) setState(newState ConnectionState) {
	c.mu.Lock()
	old := c.state
	if old == newState || old == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = newState
	observers := make([]StateObserver, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	c.logger.Info("Redis connection state changed",
		logging.Field{Key: "from", Value: old.String()},
		logging.Field{Key: "to", Value: newState.String()},
	)
	for _, fn := range observers {
		fn(old, newState)
	}
}

// ready rejects commands unless the connection is in StateConnected, so a
// degraded connection fails fast instead of hanging on a dead backend.
func (c *Client) ready() error {
	switch st := c.State(); st {
	case StateConnected:
		return nil
	case StateClosed:
		return errors.ConnectionError("redis client is closed", nil)
	default:
		return errors.ConnectionError(fmt.Sprintf("redis connection is %s", st), nil)
	}
}

func (c *Client) ping(ctx context.Context) error {
	return c.breaker.Execute(ctx, func() error {
		pingCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		return c.rdb.Ping(pingCtx).Err()
	})
}

func (c *Client) startWatchdog() {
	c.watchOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		c.watchCancel = cancel
		c.watchDone = make(chan struct{})

		go func() {
			defer close(c.watchDone)
			ticker := time.NewTicker(c.config.PingInterval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					c.checkConnection(ctx)
				}
			}
		}()
	})
}

func (c *Client) checkConnection(ctx context.Context) {
	if c.State() == StateClosed {
		return
	}

	if err := c.ping(ctx); err == nil {
		c.setState(StateConnected)
		return
	}

	c.setState(StateError)
	c.reconnect(ctx)
}

func (c *Client) reconnect(ctx context.Context) {
	retryCfg := utils.DefaultRetryConfig()
	retryCfg.MaxAttempts = c.config.RetryAttempts
	retryCfg.InitialDelay = c.config.RetryDelay
	retryCfg.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		c.logger.Warn("Redis reconnect attempt failed",
			logging.Field{Key: "attempt", Value: attempt},
			logging.Field{Key: "next_delay", Value: nextDelay.String()},
			logging.Field{Key: "error", Value: err.Error()},
		)
	}

	c.setState(StateConnecting)
	err := utils.RetryWithBackoff(ctx, retryCfg, func() error {
		return c.ping(ctx)
	})
	if err != nil {
		c.setState(StateError)
		return
	}

	c.logger.Info("Redis connection restored")
	c.setState(StateConnected)
}

// Health pings the backend through the circuit breaker.
func (c *Client) Health() error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.ping(context.Background())
}

// BreakerStats exposes circuit breaker statistics for diagnostics.
func (c *Client) BreakerStats() circuitbreaker.Stats {
	return c.breaker.Stats()
}

// Get returns the value for key, with found=false for a missing key.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	if err := c.ready(); err != nil {
		return "", false, err
	}

	var val string
	var found bool
	err := c.breaker.Execute(ctx, func() error {
		v, err := c.rdb.Get(ctx, key).Result()
		if err == redis.Nil {
			return nil // a miss is not a backend failure
		}
		if err != nil {
			return err
		}
		val, found = v, true
		return nil
	})
	if err != nil {
		return "", false, wrapCommandError("get", err)
	}
	return val, found, nil
}

// Set writes value under key. A zero or negative ttl writes without expiry.
func (c *Client) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := c.ready(); err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}

	err := c.breaker.Execute(ctx, func() error {
		return c.rdb.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		return wrapCommandError("set", err)
	}
	return nil
}

// Del removes the given keys and returns how many existed.
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	if err := c.ready(); err != nil {
		return 0, err
	}

	var removed int64
	err := c.breaker.Execute(ctx, func() error {
		n, err := c.rdb.Del(ctx, keys...).Result()
		if err != nil {
			return err
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, wrapCommandError("del", err)
	}
	return removed, nil
}

// Exists reports whether key is present.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if err := c.ready(); err != nil {
		return false, err
	}

	var present bool
	err := c.breaker.Execute(ctx, func() error {
		n, err := c.rdb.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		present = n > 0
		return nil
	})
	if err != nil {
		return false, wrapCommandError("exists", err)
	}
	return present, nil
}

// Keys lists all keys matching pattern in one bulk call.
func (c *Client) Keys(ctx context.Context, pattern string) ([]string, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	var keys []string
	err := c.breaker.Execute(ctx, func() error {
		k, err := c.rdb.Keys(ctx, pattern).Result()
		if err != nil {
			return err
		}
		keys = k
		return nil
	})
	if err != nil {
		return nil, wrapCommandError("keys", err)
	}
	return keys, nil
}

// Scan advances one cursor step of an incremental key scan.
func (c *Client) Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	if err := c.ready(); err != nil {
		return nil, 0, err
	}

	var keys []string
	var next uint64
	err := c.breaker.Execute(ctx, func() error {
		k, n, err := c.rdb.Scan(ctx, cursor, pattern, count).Result()
		if err != nil {
			return err
		}
		keys, next = k, n
		return nil
	})
	if err != nil {
		return nil, 0, wrapCommandError("scan", err)
	}
	return keys, next, nil
}

// PipelinedGet fetches many keys in a single round trip. Missing or
// undecodable elements are simply absent from the result; only a
// transport-level failure errors the whole batch.
func (c *Client) PipelinedGet(ctx context.Context, keys []string) (map[string]string, error) {
	if len(keys) == 0 {
		return map[string]string{}, nil
	}
	if err := c.ready(); err != nil {
		return nil, err
	}

	cmds := make([]*redis.StringCmd, len(keys))
	err := c.breaker.Execute(ctx, func() error {
		pipe := c.rdb.Pipeline()
		for i, key := range keys {
			cmds[i] = pipe.Get(ctx, key)
		}
		_, execErr := pipe.Exec(ctx)
		if execErr == nil || execErr == redis.Nil {
			return nil
		}
		// Exec surfaces the first command error. Fail the batch only when
		// no command produced a result, which means the pipeline itself
		// never reached the backend.
		for _, cmd := range cmds {
			if cmd.Err() == nil || cmd.Err() == redis.Nil {
				return nil
			}
		}
		return execErr
	})
	if err != nil {
		return nil, wrapCommandError("pipelined get", err)
	}

	values := make(map[string]string, len(keys))
	for i, cmd := range cmds {
		v, err := cmd.Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			c.logger.Debug("Pipelined get element failed",
				logging.Field{Key: "key", Value: keys[i]},
				logging.Field{Key: "error", Value: err.Error()},
			)
			continue
		}
		values[keys[i]] = v
	}
	return values, nil
}

// Info returns the raw INFO text from the server.
func (c *Client) Info(ctx context.Context) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	var info string
	err := c.breaker.Execute(ctx, func() error {
		s, err := c.rdb.Info(ctx).Result()
		if err != nil {
			return err
		}
		info = s
		return nil
	})
	if err != nil {
		return "", wrapCommandError("info", err)
	}
	return info, nil
}

// DBSize returns the total number of keys in the current database.
func (c *Client) DBSize(ctx context.Context) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}

	var size int64
	err := c.breaker.Execute(ctx, func() error {
		n, err := c.rdb.DBSize(ctx).Result()
		if err != nil {
			return err
		}
		size = n
		return nil
	})
	if err != nil {
		return 0, wrapCommandError("dbsize", err)
	}
	return size, nil
}

// Close stops the watchdog and releases the connection pool. Safe to call
// more than once.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		if c.watchCancel != nil {
			c.watchCancel()
			<-c.watchDone
		}
		c.closeErr = c.rdb.Close()
	})
	return c.closeErr
}

func wrapCommandError(op string, err error) error {
	if errors.IsType(err, errors.ErrTypeConnection) {
		return err
	}
	return errors.ConnectionError(fmt.Sprintf("redis %s failed", op), err)
}
