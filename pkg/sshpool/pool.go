// Package sshpool implements a keyed pool of reusable SSH client connections
// with idle eviction and a concurrency cap.
package sshpool

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/atomic"
	"golang.org/x/crypto/ssh"

	"github.com/opsloom/sentinel/pkg/fleet"
)

// ErrPoolExhausted is returned by Acquire when the pool is at capacity and
// no entry is available for reuse.
var ErrPoolExhausted = fmt.Errorf("pool exhausted")

// EventKind names a lifecycle event emitted by the pool. Events are
// advisory only; correctness never depends on a subscriber observing them.
type EventKind string

const (
	EventConnected EventKind = "connected"
	EventClosed    EventKind = "closed"
	EventError     EventKind = "error"
)

// Event is one lifecycle notification.
type Event struct {
	Kind  EventKind
	Host  string
	Error error
}

// Dialer abstracts the actual SSH dial so tests can substitute a fake.
type Dialer interface {
	Dial(ctx context.Context, params fleet.SSHParams, timeout time.Duration) (Client, error)
}

// Client is the minimal surface the pool needs from a connected session.
type Client interface {
	NewSession() (Session, error)
	Close() error
}

// Session is the minimal surface needed to run one remote command.
type Session interface {
	CombinedOutput(cmd string) ([]byte, error)
	Close() error
}

// Config controls pool defaults.
type Config struct {
	MaxConnections int
	IdleTimeout    time.Duration
	ConnectTimeout time.Duration
	SweepInterval  time.Duration
}

// DefaultConfig returns sensible pool defaults.
func DefaultConfig() Config {
	return Config{
		MaxConnections: 50,
		IdleTimeout:    300 * time.Second,
		ConnectTimeout: 10 * time.Second,
		SweepInterval:  60 * time.Second,
	}
}

type entry struct {
	client    Client
	host      fleet.Host
	createdAt time.Time
	lastUsed  time.Time
	inUse     bool
}

// Pool is the exclusive owner of ConnectionEntries keyed by lowercased
// host identity.
type Pool struct {
	cfg    Config
	dialer Dialer
	log    *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	size    atomic.Int64

	events chan Event

	sweepCancel context.CancelFunc
	sweepDone   chan struct{}
}

// New constructs a Pool and starts its idle-eviction sweep.
func New(cfg Config, dialer Dialer, log *slog.Logger) *Pool {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultConfig().MaxConnections
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultConfig().IdleTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConfig().ConnectTimeout
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Pool{
		cfg:     cfg,
		dialer:  dialer,
		log:     log,
		entries: make(map[string]*entry),
		events:  make(chan Event, 256),
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.sweepCancel = cancel
	p.sweepDone = make(chan struct{})
	go p.sweepLoop(ctx)
	return p
}

// Events exposes the advisory lifecycle event stream.
func (p *Pool) Events() <-chan Event {
	return p.events
}

func (p *Pool) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
		p.log.Warn("sshpool: event buffer full, dropping event", "kind", ev.Kind, "host", ev.Host)
	}
}

// Acquire returns a reusable Client for host, dialing a new one if needed
// and capacity allows. The caller MUST call Release when done with it.
func (p *Pool) Acquire(ctx context.Context, host fleet.Host) (Client, error) {
	key := host.Key()

	p.mu.Lock()
	if e, ok := p.entries[key]; ok && !e.inUse {
		e.inUse = true
		e.lastUsed = time.Now()
		p.mu.Unlock()
		return e.client, nil
	}
	if len(p.entries) >= p.cfg.MaxConnections {
		p.mu.Unlock()
		return nil, ErrPoolExhausted
	}
	p.mu.Unlock()

	client, err := p.dialWithRetry(ctx, host)
	if err != nil {
		p.emit(Event{Kind: EventError, Host: key, Error: err})
		return nil, fmt.Errorf("dialing %s: %w", key, err)
	}

	now := time.Now()
	p.mu.Lock()
	if len(p.entries) >= p.cfg.MaxConnections {
		p.mu.Unlock()
		_ = client.Close()
		return nil, ErrPoolExhausted
	}
	p.entries[key] = &entry{
		client:    client,
		host:      host,
		createdAt: now,
		lastUsed:  now,
		inUse:     true,
	}
	p.size.Store(int64(len(p.entries)))
	p.mu.Unlock()

	p.emit(Event{Kind: EventConnected, Host: key})
	return client, nil
}

func (p *Pool) dialWithRetry(ctx context.Context, host fleet.Host) (Client, error) {
	op := func() (Client, error) {
		return p.dialer.Dial(ctx, host.SSH, p.cfg.ConnectTimeout)
	}
	return backoff.Retry(ctx, op, backoff.WithMaxTries(3))
}

// Release marks host's entry free for reuse.
func (p *Pool) Release(host fleet.Host) {
	key := host.Key()
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[key]; ok {
		e.inUse = false
		e.lastUsed = time.Now()
	}
}

// Close tears down host's entry, if present, regardless of in-use state.
func (p *Pool) Close(host fleet.Host) error {
	key := host.Key()
	p.mu.Lock()
	e, ok := p.entries[key]
	if ok {
		delete(p.entries, key)
		p.size.Store(int64(len(p.entries)))
	}
	p.mu.Unlock()
	if !ok {
		return nil
	}
	err := e.client.Close()
	p.emit(Event{Kind: EventClosed, Host: key, Error: err})
	return err
}

// CloseAll stops the idle sweep and tears down every entry synchronously.
func (p *Pool) CloseAll() {
	p.sweepCancel()
	<-p.sweepDone

	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[string]*entry)
	p.size.Store(0)
	p.mu.Unlock()

	for key, e := range entries {
		err := e.client.Close()
		p.emit(Event{Kind: EventClosed, Host: key, Error: err})
	}
}

// Status reports the current pool size and per-host in-use state.
type Status struct {
	Size      int
	MaxSize   int
	InUse     int
	HostsIdle []string
}

// Status returns a snapshot of the pool's current occupancy.
func (p *Pool) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Status{Size: len(p.entries), MaxSize: p.cfg.MaxConnections}
	for key, e := range p.entries {
		if e.inUse {
			s.InUse++
		} else {
			s.HostsIdle = append(s.HostsIdle, key)
		}
	}
	return s
}

func (p *Pool) sweepLoop(ctx context.Context) {
	defer close(p.sweepDone)
	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.sweepIdle()
		}
	}
}

func (p *Pool) sweepIdle() {
	now := time.Now()
	var evicted []struct {
		key string
		e   *entry
	}
	p.mu.Lock()
	for key, e := range p.entries {
		if !e.inUse && now.Sub(e.lastUsed) > p.cfg.IdleTimeout {
			evicted = append(evicted, struct {
				key string
				e   *entry
			}{key, e})
			delete(p.entries, key)
		}
	}
	p.size.Store(int64(len(p.entries)))
	p.mu.Unlock()

	for _, v := range evicted {
		err := v.e.client.Close()
		p.emit(Event{Kind: EventClosed, Host: v.key, Error: err})
	}
}

// sshDialer is the production Dialer backed by golang.org/x/crypto/ssh.
type sshDialer struct{}

// NewSSHDialer returns the production golang.org/x/crypto/ssh-backed Dialer.
func NewSSHDialer() Dialer {
	return sshDialer{}
}

func (sshDialer) Dial(ctx context.Context, params fleet.SSHParams, timeout time.Duration) (Client, error) {
	var authMethod ssh.AuthMethod
	switch {
	case len(params.PrivateKeyPEM) > 0:
		signer, err := ssh.ParsePrivateKey(params.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("parsing private key: %w", err)
		}
		authMethod = ssh.PublicKeys(signer)
	default:
		return nil, fmt.Errorf("no private key material configured for %s", params.Address)
	}

	cfg := &ssh.ClientConfig{
		User:            params.User,
		Auth:            []ssh.AuthMethod{authMethod},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         timeout,
	}

	addr := net.JoinHostPort(params.Address, fmt.Sprintf("%d", params.Port))
	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var conn net.Conn
	var err error
	dialDone := make(chan struct{})
	go func() {
		var d net.Dialer
		conn, err = d.DialContext(dialCtx, "tcp", addr)
		close(dialDone)
	}()
	select {
	case <-dialDone:
	case <-dialCtx.Done():
		return nil, dialCtx.Err()
	}
	if err != nil {
		return nil, err
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	return &sshClient{client: ssh.NewClient(c, chans, reqs)}, nil
}

type sshClient struct {
	client *ssh.Client
}

func (c *sshClient) NewSession() (Session, error) {
	s, err := c.client.NewSession()
	if err != nil {
		return nil, err
	}
	return &sshSession{session: s}, nil
}

func (c *sshClient) Close() error {
	return c.client.Close()
}

type sshSession struct {
	session *ssh.Session
}

func (s *sshSession) CombinedOutput(cmd string) ([]byte, error) {
	return s.session.CombinedOutput(cmd)
}

func (s *sshSession) Close() error {
	return s.session.Close()
}
