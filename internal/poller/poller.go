// internal/poller/poller.go
package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"k8s.io/klog/v2"

	"github.com/tamzrod/parmair-bridge/internal/catalog"
	"github.com/tamzrod/parmair-bridge/internal/codec"
	"github.com/tamzrod/parmair-bridge/internal/device"
	"github.com/tamzrod/parmair-bridge/internal/status"
)

// Transport abstracts the Modbus operations the coordinator needs.
// Implementations must allow Connect after a failure dropped the link.
type Transport interface {
	Connect(ctx context.Context) error
	Connected() bool
	ReadRegisters(ctx context.Context, addr, count uint16, unit uint8) ([]uint16, error)
	WriteRegister(ctx context.Context, addr, value uint16, unit uint8) error
	ReadCoils(ctx context.Context, addr, count uint16, unit uint8) ([]bool, error)
	WriteCoil(ctx context.Context, addr uint16, on bool, unit uint8) error
	Close() error
}

// Config is the minimal runtime config the coordinator needs.
type Config struct {
	Name             string
	Profile          device.Profile
	Interval         time.Duration
	FailureThreshold int
	MaxBlock         uint16
	MaxGap           uint16
}

// Coordinator is the steady-state engine: one logical actor that polls,
// writes and publishes snapshots. Every transport operation runs under
// opMu, so writes and forced refreshes queue behind an in-flight poll.
type Coordinator struct {
	cfg    Config
	cat    *catalog.Catalog
	family device.FirmwareFamily
	defs   []catalog.Definition
	blocks []ReadBlock

	tr      Transport
	tracker *status.Tracker

	opMu      sync.Mutex
	lastState status.ConnectionState // guarded by opMu

	snap atomic.Value // *Snapshot
	seq  atomic.Uint64

	subMu  sync.Mutex
	subs   map[uint64]chan *Snapshot
	nextID uint64

	refresh   chan struct{}
	observers []Observer
	now       func() time.Time
}

type Option func(*Coordinator)

func WithObserver(o Observer) Option {
	return func(c *Coordinator) { c.observers = append(c.observers, o) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// New creates a coordinator with immutable config. An unknown firmware
// family is treated as v1, the same default the probe falls back to.
func New(cfg Config, cat *catalog.Catalog, tr Transport, opts ...Option) (*Coordinator, error) {
	if cat == nil {
		return nil, errors.New("poller: catalog required")
	}
	if tr == nil {
		return nil, errors.New("poller: transport required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.Profile.SlaveID == 0 {
		return nil, errors.New("poller: slave id required")
	}

	family := cfg.Profile.Family
	if family == device.FamilyUnknown {
		klog.Warningf("Firmware family unknown, polling the %s register set", device.FamilyV1)
		family = device.FamilyV1
		cfg.Profile.Family = family
	}

	defs := cat.ForFamily(family)
	if len(defs) == 0 {
		return nil, fmt.Errorf("poller: no registers for firmware %s", family)
	}

	c := &Coordinator{
		cfg:     cfg,
		cat:     cat,
		family:  family,
		defs:    defs,
		blocks:  PlanBlocks(defs, cfg.MaxBlock, cfg.MaxGap),
		tr:      tr,
		tracker: status.NewTracker(cfg.FailureThreshold),
		subs:    make(map[uint64]chan *Snapshot),
		refresh: make(chan struct{}, 1),
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	c.snap.Store(emptySnapshot(family))
	return c, nil
}

// ---- entity boundary (read side) ----

// Snapshot returns the latest published snapshot. Before the first
// successful cycle it is empty with OK=false.
func (c *Coordinator) Snapshot() *Snapshot {
	return c.snap.Load().(*Snapshot)
}

// Health returns the connection state and failure counter.
func (c *Coordinator) Health() status.Snapshot {
	return c.tracker.Snapshot()
}

func (c *Coordinator) State() status.ConnectionState {
	return c.tracker.State()
}

// Trusted reports whether the device profile has been confirmed by at
// least one successful connection.
func (c *Coordinator) Trusted() bool {
	return c.tracker.Snapshot().EverConnected
}

func (c *Coordinator) Profile() device.Profile { return c.cfg.Profile }

func (c *Coordinator) SoftwareVersion() device.FirmwareFamily { return c.cfg.Profile.Family }

func (c *Coordinator) HeaterType() device.HeaterType { return c.cfg.Profile.Heater }

// DeviceInfo is the static identity metadata.
func (c *Coordinator) DeviceInfo() device.Info {
	return device.NewInfo(c.cfg.Name, c.cfg.Profile)
}

// Definitions is the active register set.
func (c *Coordinator) Definitions() []catalog.Definition {
	out := make([]catalog.Definition, len(c.defs))
	copy(out, c.defs)
	return out
}

// Definition looks up an active register.
func (c *Coordinator) Definition(key string) (catalog.Definition, bool) {
	return c.cat.Lookup(key, c.family)
}

func (c *Coordinator) Interval() time.Duration { return c.cfg.Interval }

// ---- poll cycle ----

// PollOnce performs exactly one poll cycle and publishes its snapshot.
// All-or-nothing: any read failure aborts the cycle and the previously
// published snapshot stays in place.
func (c *Coordinator) PollOnce(ctx context.Context) (*Snapshot, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.pollLocked(ctx)
}

// Refresh is a forced, synchronous poll.
func (c *Coordinator) Refresh(ctx context.Context) (*Snapshot, error) {
	return c.PollOnce(ctx)
}

// RequestRefresh asks the runner for an early cycle. It never blocks;
// requests made while one is pending are merged.
func (c *Coordinator) RequestRefresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

func (c *Coordinator) pollLocked(ctx context.Context) (*Snapshot, error) {
	start := c.now()
	unit := c.cfg.Profile.SlaveID

	if !c.tr.Connected() {
		c.setState(c.tracker.Connecting())
		if err := c.tr.Connect(ctx); err != nil {
			return nil, c.failCycle(start, err)
		}
	}

	values := make(map[string]float64, len(c.defs))
	raws := make(map[string]int64, len(c.defs))

	for _, b := range c.blocks {
		if b.Coil {
			bits, err := c.tr.ReadCoils(ctx, b.Address, b.Quantity, unit)
			if err != nil {
				return nil, c.failCycle(start, err)
			}
			for _, d := range b.Defs {
				var v int64
				if bits[d.Address-b.Address] {
					v = 1
				}
				values[d.Key] = float64(v)
				raws[d.Key] = v
			}
			continue
		}

		regs, err := c.tr.ReadRegisters(ctx, b.Address, b.Quantity, unit)
		if err != nil {
			return nil, c.failCycle(start, err)
		}
		for _, d := range b.Defs {
			off := d.Address - b.Address
			words := regs[off : off+d.Count()]

			v, err := codec.Decode(words, d)
			if err != nil {
				// withheld, never published as a default
				klog.V(1).InfoS("Register decode failed", "key", d.Key, "err", err)
				continue
			}
			values[d.Key] = v
			raws[d.Key] = codec.Raw(words, d.Type)
		}
	}

	// Commit only if all reads succeeded
	at := c.now()
	snap := &Snapshot{
		Seq:    c.seq.Inc(),
		At:     at,
		OK:     true,
		Family: c.family,
		values: values,
		raw:    raws,
	}
	c.snap.Store(snap)
	c.setState(c.tracker.Success(at))
	c.publish(snap)

	res := CycleResult{At: at, Duration: at.Sub(start), Snapshot: snap, Health: c.tracker.Snapshot()}
	for _, o := range c.observers {
		o.CycleDone(res)
	}
	klog.V(3).InfoS("Poll cycle done", "seq", snap.Seq, "registers", len(values), "duration", res.Duration)
	return snap, nil
}

func (c *Coordinator) failCycle(start time.Time, err error) error {
	at := c.now()
	c.setState(c.tracker.Failure(err, at))

	h := c.tracker.Snapshot()
	klog.V(1).InfoS("Poll cycle failed", "failures", h.ConsecutiveFailures, "state", h.State, "err", err)

	res := CycleResult{At: at, Duration: at.Sub(start), Err: err, Health: h}
	for _, o := range c.observers {
		o.CycleDone(res)
	}
	return fmt.Errorf("poller: cycle failed: %w", err)
}

// setState must be called with opMu held.
func (c *Coordinator) setState(to status.ConnectionState) {
	from := c.lastState
	if from == to {
		return
	}
	c.lastState = to

	if to == status.Degraded {
		klog.InfoS("Device degraded, values are stale", "device", c.cfg.Profile.UniqueID(), "failures", c.tracker.Snapshot().ConsecutiveFailures)
	} else {
		klog.V(2).InfoS("Connection state changed", "device", c.cfg.Profile.UniqueID(), "from", from, "to", to)
	}
	for _, o := range c.observers {
		o.StateChanged(from, to)
	}
}

// ---- fan-out ----

// Subscribe returns a channel that always holds the latest snapshot.
// Slow readers skip intermediate snapshots; they never block polling.
// cancel closes the channel.
func (c *Coordinator) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)

	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, id)
			c.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (c *Coordinator) publish(s *Snapshot) {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, ch := range c.subs {
		// drop a stale pending snapshot, then deliver the new one
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// Close drops the connection. The runner does this on exit.
func (c *Coordinator) Close() error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.tr.Close()
}
