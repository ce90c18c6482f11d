package redisholder

import (
	"context"
	"net"
	"strconv"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/trunov/imageconv/internal/config"
)

func redisConfig(t *testing.T, addr string) *config.RedisConfig {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(portStr)
	cfg := config.NewConfig().Redis
	cfg.HealthCheckInterval = 0
	cfg.Nodes = []config.RedisNode{{Host: host, Port: port}}
	return &cfg
}

func TestBuildSingleNode(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	defer srv.Close()

	h, err := Build(context.Background(), redisConfig(t, srv.Addr()))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	defer h.Close()

	if err := h.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestBuildNoNodes(t *testing.T) {
	cfg := config.NewConfig().Redis
	if _, err := Build(context.Background(), &cfg); err == nil {
		t.Fatal("expected error without nodes")
	}
}

func TestCheckAndReconnectSwapsDeadClient(t *testing.T) {
	srv, err := miniredis.Run()
	if err != nil {
		t.Skipf("miniredis unavailable: %v", err)
	}
	defer srv.Close()

	dead := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	h := NewHolder(dead)
	defer h.Close()

	ctx := context.Background()
	if err := h.Ping(ctx); err == nil {
		t.Fatal("expected dead client to fail ping")
	}

	checkAndReconnect(ctx, h, redisConfig(t, srv.Addr()))

	if h.Get() == redis.UniversalClient(dead) {
		t.Fatal("client was not swapped")
	}
	if err := h.Ping(ctx); err != nil {
		t.Fatalf("ping after reconnect: %v", err)
	}
}
