// internal/probe/probe.go
//
// Package probe runs the one-shot setup sequence: connect, detect the
// firmware family and heater hardware, verify, disconnect.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/tamzrod/parmair-bridge/internal/catalog"
	"github.com/tamzrod/parmair-bridge/internal/codec"
	"github.com/tamzrod/parmair-bridge/internal/device"
)

var (
	ErrCannotConnect = errors.New("probe: cannot connect")

	// ErrDetectionInconclusive is logged, never returned: detection falls
	// back to defaults instead of failing setup.
	ErrDetectionInconclusive = errors.New("probe: detection inconclusive")
)

// Transport is what the probe needs from the connection. The probe owns
// it for the duration of Run and always closes it.
type Transport interface {
	Connect(ctx context.Context) error
	ReadRegisters(ctx context.Context, addr, count uint16, unit uint8) ([]uint16, error)
	Close() error
}

// Timing of the detection retries.
type Timing struct {
	Attempts        int
	SettleDelay     time.Duration // before the first firmware read
	FirmwareBackoff time.Duration // multiplied by the retry number
	HeaterBackoff   time.Duration
}

// DefaultTiming gives the controller time to settle after connect.
var DefaultTiming = Timing{
	Attempts:        3,
	SettleDelay:     150 * time.Millisecond,
	FirmwareBackoff: 200 * time.Millisecond,
	HeaterBackoff:   100 * time.Millisecond,
}

// SleepFunc waits d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Probe is stateless between runs; each Run is independent.
type Probe struct {
	cat    *catalog.Catalog
	timing Timing
	sleep  SleepFunc
}

type Option func(*Probe)

func WithTiming(t Timing) Option { return func(p *Probe) { p.timing = t } }

func WithSleep(fn SleepFunc) Option { return func(p *Probe) { p.sleep = fn } }

func New(cat *catalog.Catalog, opts ...Option) *Probe {
	p := &Probe{cat: cat, timing: DefaultTiming, sleep: sleepCtx}
	for _, o := range opts {
		o(p)
	}
	if p.timing.Attempts <= 0 {
		p.timing.Attempts = 1
	}
	return p
}

// State is a step of the probe sequence.
type State string

const (
	StateStart             State = "start"
	StateConnecting        State = "connecting"
	StateDetectingFirmware State = "detecting_firmware"
	StateDetectingHeater   State = "detecting_heater"
	StateVerifying         State = "verifying"
	StateSuccess           State = "success"
	StateFailed            State = "cannot_connect"
)

// Target is the device to probe.
type Target struct {
	Host    string
	Port    int
	SlaveID uint8
}

// Result is a detected profile plus how it was obtained.
type Result struct {
	Profile device.Profile

	FirmwareVersion  float64 // 0 when not read
	FirmwareDetected bool    // false means the v1 fallback was used
	HeaterDetected   bool    // false means the none fallback was used; a read of an undefined value is unknown
	FirmwareAttempts int
	HeaterAttempts   int
	FinalState       State
}

type run struct {
	id    string
	state State
	t     Transport
	tgt   Target
}

func (r *run) enter(s State) {
	klog.V(2).InfoS("Probe state", "run", r.id, "from", r.state, "to", s)
	r.state = s
}

// Run executes the probe sequence against t. Detection problems fall back
// to defaults; connect and verification failures return ErrCannotConnect.
func (p *Probe) Run(ctx context.Context, t Transport, tgt Target) (Result, error) {
	swDef, ok := p.cat.Any(catalog.KeySoftwareVersion)
	if !ok {
		return Result{}, fmt.Errorf("probe: catalog has no %s register", catalog.KeySoftwareVersion)
	}
	heaterDef, ok := p.cat.Any(catalog.KeyHeaterType)
	if !ok {
		return Result{}, fmt.Errorf("probe: catalog has no %s register", catalog.KeyHeaterType)
	}
	powerDef, ok := p.cat.Any(catalog.KeyPower)
	if !ok {
		return Result{}, fmt.Errorf("probe: catalog has no %s register", catalog.KeyPower)
	}

	r := &run{id: uuid.NewString(), state: StateStart, t: t, tgt: tgt}
	defer func() {
		if err := t.Close(); err != nil {
			klog.V(2).InfoS("Probe close failed", "run", r.id, "err", err)
		}
	}()

	res := Result{
		Profile: device.Profile{Host: tgt.Host, Port: tgt.Port, SlaveID: tgt.SlaveID},
	}

	r.enter(StateConnecting)
	if err := t.Connect(ctx); err != nil {
		r.enter(StateFailed)
		res.FinalState = r.state
		return res, fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}

	r.enter(StateDetectingFirmware)
	fam, version, attempts, err := p.detectFirmware(ctx, r, swDef)
	if err != nil {
		return res, err
	}
	res.FirmwareAttempts = attempts
	res.FirmwareVersion = version
	if fam == device.FamilyUnknown {
		klog.Warningf("Firmware detection failed after %d attempts (%v), defaulting to %s", attempts, ErrDetectionInconclusive, device.FamilyV1)
		fam = device.FamilyV1
	} else {
		res.FirmwareDetected = true
	}
	res.Profile.Family = fam

	r.enter(StateDetectingHeater)
	heater, attempts, detected, err := p.detectHeater(ctx, r, heaterDef)
	if err != nil {
		return res, err
	}
	res.HeaterAttempts = attempts
	if !detected {
		klog.Warningf("Heater type detection failed after %d attempts (%v), defaulting to %s", attempts, ErrDetectionInconclusive, device.HeaterNone)
		heater = device.HeaterNone
	} else {
		res.HeaterDetected = true
	}
	res.Profile.Heater = heater

	r.enter(StateVerifying)
	if err := p.verify(ctx, r, powerDef); err != nil {
		r.enter(StateFailed)
		res.FinalState = r.state
		return res, fmt.Errorf("%w: verify: %v", ErrCannotConnect, err)
	}

	r.enter(StateSuccess)
	res.FinalState = r.state
	klog.InfoS("Device probed", "run", r.id, "endpoint", res.Profile.Endpoint(), "slave", tgt.SlaveID,
		"family", res.Profile.Family, "heater", res.Profile.Heater)
	return res, nil
}

// read reconnects if a previous failure dropped the connection.
func (r *run) read(ctx context.Context, def catalog.Definition) ([]uint16, error) {
	if err := r.t.Connect(ctx); err != nil {
		return nil, err
	}
	return r.t.ReadRegisters(ctx, def.Address, def.Count(), r.tgt.SlaveID)
}

// detectFirmware stops on the first attempt that classifies to a known
// family. An unknown classification counts as a failed attempt.
func (p *Probe) detectFirmware(ctx context.Context, r *run, def catalog.Definition) (device.FirmwareFamily, float64, int, error) {
	var version float64

	for attempt := 1; attempt <= p.timing.Attempts; attempt++ {
		delay := p.timing.SettleDelay
		if attempt > 1 {
			delay = p.timing.FirmwareBackoff * time.Duration(attempt-1)
			klog.V(1).InfoS("Retrying firmware detection", "run", r.id, "attempt", attempt, "delay", delay)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return device.FamilyUnknown, 0, attempt - 1, err
		}

		words, err := r.read(ctx, def)
		if err != nil {
			klog.V(1).InfoS("Firmware read failed", "run", r.id, "attempt", attempt, "err", err)
			continue
		}
		v, err := codec.Decode(words, def)
		if err != nil {
			klog.V(1).InfoS("Firmware decode failed", "run", r.id, "attempt", attempt, "err", err)
			continue
		}
		version = v

		if fam := device.ClassifyVersion(v); fam != device.FamilyUnknown {
			klog.InfoS("Detected firmware", "run", r.id, "version", v, "family", fam, "attempt", attempt)
			return fam, v, attempt, nil
		}
		klog.V(1).InfoS("Firmware version not recognised", "run", r.id, "version", v, "attempt", attempt)
	}
	return device.FamilyUnknown, version, p.timing.Attempts, nil
}

// detectHeater stops on the first successful read, whatever it returns.
// ok is false only when every attempt failed.
func (p *Probe) detectHeater(ctx context.Context, r *run, def catalog.Definition) (h device.HeaterType, attempts int, ok bool, err error) {
	for attempt := 1; attempt <= p.timing.Attempts; attempt++ {
		if attempt > 1 {
			if err := p.sleep(ctx, p.timing.HeaterBackoff*time.Duration(attempt-1)); err != nil {
				return device.HeaterUnknown, attempt - 1, false, err
			}
		}

		words, err := r.read(ctx, def)
		if err != nil {
			klog.V(1).InfoS("Heater type read failed", "run", r.id, "attempt", attempt, "err", err)
			continue
		}

		raw := codec.Raw(words, def.Type)
		h = device.HeaterFromRaw(int(raw))
		klog.InfoS("Detected heater type", "run", r.id, "raw", raw, "heater", h, "attempt", attempt)
		return h, attempt, true, nil
	}
	return device.HeaterUnknown, p.timing.Attempts, false, nil
}

func (p *Probe) verify(ctx context.Context, r *run, def catalog.Definition) error {
	_, err := r.read(ctx, def)
	return err
}
