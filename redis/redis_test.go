package redis

import (
	"testing"

	"github.com/CharlesToronto/brotherstudio/config"

	"github.com/alicebob/miniredis/v2"
)

func TestNewClient_Disabled(t *testing.T) {
	client, err := NewClient(config.RedisConfig{Enabled: false})
	if err != nil || client != nil {
		t.Errorf("NewClient() = %v, %v; want nil, nil", client, err)
	}
}

func TestNewClient_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(config.RedisConfig{
		Enabled:          true,
		Address:          mr.Addr(),
		PoolSize:         2,
		OperationTimeout: 2,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	if client.Options().Addr != mr.Addr() {
		t.Errorf("Client address = %s, want %s", client.Options().Addr, mr.Addr())
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := NewClient(config.RedisConfig{
		Enabled:          true,
		Address:          addr,
		OperationTimeout: 1,
	})
	if err == nil {
		client.Close()
		t.Fatal("Expected an error for an unreachable server")
	}
}
