package sshpool

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/opsloom/sentinel/pkg/fleet"
)

type fakeSession struct{}

func (fakeSession) CombinedOutput(cmd string) ([]byte, error) { return []byte("ok"), nil }
func (fakeSession) Close() error                              { return nil }

type fakeClient struct {
	closed bool
}

func (c *fakeClient) NewSession() (Session, error) { return fakeSession{}, nil }
func (c *fakeClient) Close() error                 { c.closed = true; return nil }

type fakeDialer struct {
	dials int
	fail  bool
}

func (d *fakeDialer) Dial(ctx context.Context, params fleet.SSHParams, timeout time.Duration) (Client, error) {
	d.dials++
	if d.fail {
		return nil, fmt.Errorf("dial refused")
	}
	return &fakeClient{}, nil
}

func testHost(id string) fleet.Host {
	return fleet.Host{Identity: id, SSH: fleet.SSHParams{Address: id, Port: 22, User: "ops"}}
}

func TestAcquireReusesEntry(t *testing.T) {
	d := &fakeDialer{}
	p := New(Config{MaxConnections: 2, IdleTimeout: time.Minute, ConnectTimeout: time.Second, SweepInterval: time.Hour}, d, nil)
	defer p.CloseAll()

	h := testHost("Web-1")
	ctx := context.Background()

	c1, err := p.Acquire(ctx, h)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.Release(h)

	c2, err := p.Acquire(ctx, h)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if c1 != c2 {
		t.Errorf("expected reused client, got distinct instances")
	}
	if d.dials != 1 {
		t.Errorf("expected 1 dial, got %d", d.dials)
	}
}

func TestAcquireRespectsLowercaseKeying(t *testing.T) {
	d := &fakeDialer{}
	p := New(DefaultConfig(), d, nil)
	defer p.CloseAll()

	ctx := context.Background()
	if _, err := p.Acquire(ctx, testHost("Web-1")); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.Release(testHost("Web-1"))

	if _, err := p.Acquire(ctx, testHost("web-1")); err != nil {
		t.Fatalf("acquire lowercase alias: %v", err)
	}
	if d.dials != 1 {
		t.Errorf("expected keying to be case-insensitive, dialed %d times", d.dials)
	}
}

func TestAcquireExhaustion(t *testing.T) {
	d := &fakeDialer{}
	p := New(Config{MaxConnections: 1, IdleTimeout: time.Minute, ConnectTimeout: time.Second, SweepInterval: time.Hour}, d, nil)
	defer p.CloseAll()

	ctx := context.Background()
	if _, err := p.Acquire(ctx, testHost("a")); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := p.Acquire(ctx, testHost("b")); err != ErrPoolExhausted {
		t.Errorf("expected ErrPoolExhausted, got %v", err)
	}
}

func TestIdleSweepEvicts(t *testing.T) {
	d := &fakeDialer{}
	p := New(Config{MaxConnections: 2, IdleTimeout: 10 * time.Millisecond, ConnectTimeout: time.Second, SweepInterval: 20 * time.Millisecond}, d, nil)
	defer p.CloseAll()

	ctx := context.Background()
	h := testHost("a")
	if _, err := p.Acquire(ctx, h); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.Release(h)

	time.Sleep(100 * time.Millisecond)

	if s := p.Status(); s.Size != 0 {
		t.Errorf("expected sweep to evict idle entry, pool size = %d", s.Size)
	}
}

func TestCloseAllStopsSweepAndClears(t *testing.T) {
	d := &fakeDialer{}
	p := New(DefaultConfig(), d, nil)
	ctx := context.Background()
	if _, err := p.Acquire(ctx, testHost("a")); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	p.CloseAll()
	if s := p.Status(); s.Size != 0 {
		t.Errorf("expected size 0 after CloseAll, got %d", s.Size)
	}
}
