package redisholder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trunov/imageconv/internal/config"
)

// Build connects to the configured nodes, preferring a cluster client and
// falling back to the first reachable single node. A health loop keeps the
// held client alive until ctx is canceled.
func Build(ctx context.Context, cfg *config.RedisConfig) (*Holder, error) {
	var cl redis.UniversalClient
	cl, err := newClusterClient(ctx, cfg)
	if err != nil {
		clusterErr := err
		cl, err = newClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create redis client: %w", err)
		}
		log.Printf("redis: cluster client failed (%v); using single-node client", clusterErr)
	}

	h := NewHolder(cl)

	if cfg.HealthCheckInterval > 0 {
		go healthLoop(ctx, h, cfg)
	}

	return h, nil
}

func healthLoop(ctx context.Context, h *Holder, cfg *config.RedisConfig) {
	interval := cfg.HealthCheckInterval * time.Second
	log.Printf("redis: health loop started (interval=%v)", interval)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("redis: health loop stopped (%v)", ctx.Err())
			return
		case <-t.C:
			checkAndReconnect(ctx, h, cfg)
		}
	}
}

func checkAndReconnect(ctx context.Context, h *Holder, cfg *config.RedisConfig) {
	err := h.Ping(ctx)
	if err == nil {
		return
	}
	log.Printf("redis: ping failed (%v); attempting reconnect", err)

	// Rebuild client (cluster first, then fallback)
	newCl, err := newClusterClient(ctx, cfg)
	if err != nil {
		newCl, err = newClient(ctx, cfg)
	}
	if err != nil {
		log.Printf("redis: reconnect failed: %v", err)
		return
	}

	if old := h.swap(newCl); old != nil {
		_ = old.Close()
	}
	log.Printf("redis: reconnected successfully")
}

func newClusterClient(ctx context.Context, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	if len(cfg.Nodes) < 2 {
		return nil, errors.New("cluster mode needs at least two nodes")
	}

	nodeAddrs := make([]string, 0, len(cfg.Nodes))
	for _, node := range cfg.Nodes {
		nodeAddrs = append(nodeAddrs, node.Addr())
	}

	cl := redis.NewClusterClient(&redis.ClusterOptions{
		RouteByLatency: true,
		Password:       cfg.Password,
		Addrs:          nodeAddrs,
		DialTimeout:    cfg.DialTimeout * time.Second,
		ReadTimeout:    cfg.ReadTimeout * time.Second,
		WriteTimeout:   cfg.WriteTimeout * time.Second,
		PoolSize:       cfg.PoolSize,
		PoolTimeout:    30 * time.Second,
	})

	if err := ping(ctx, cl); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("error pinging redis cluster: %w", err)
	}

	return cl, nil
}

func newClient(ctx context.Context, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	var stickyErr = errors.New("no nodes defined")

	for _, node := range cfg.Nodes {
		cl := redis.NewClient(&redis.Options{
			Addr:         node.Addr(),
			Password:     cfg.Password,
			DB:           cfg.DatabaseID,
			DialTimeout:  cfg.DialTimeout * time.Second,
			ReadTimeout:  cfg.ReadTimeout * time.Second,
			WriteTimeout: cfg.WriteTimeout * time.Second,
			PoolSize:     cfg.PoolSize,
		})

		if err := ping(ctx, cl); err != nil {
			_ = cl.Close()
			stickyErr = fmt.Errorf("error pinging redis server %s: %w", node.Addr(), err)
			continue
		}

		return cl, nil
	}

	return nil, stickyErr
}

func ping(ctx context.Context, cl redis.UniversalClient) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return cl.Ping(pingCtx).Err()
}
