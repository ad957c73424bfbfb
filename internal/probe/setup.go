// internal/probe/setup.go
package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"

	"github.com/tamzrod/parmair-bridge/internal/device"
)

const (
	DefaultName         = "Parmair MAC"
	DefaultPort         = 502
	DefaultSlaveID      = 1
	DefaultScanInterval = 30

	MinScanInterval = 5
	MaxScanInterval = 300
)

// ErrUnknown is any setup failure other than ErrCannotConnect.
var ErrUnknown = errors.New("probe: unknown error")

// InputError rejects setup input before anything touches the network.
// It matches ErrUnknown.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return "probe: invalid input: " + e.Err.Error() }

func (e *InputError) Unwrap() error { return e.Err }

func (e *InputError) Is(target error) bool { return target == ErrUnknown }

// Input is what the configuration layer collects.
type Input struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	SlaveID      int    `json:"slaveId"`
	ScanInterval int    `json:"scanInterval"` // seconds
	Name         string `json:"name"`
}

// Normalize fills defaults for zero fields.
func (in *Input) Normalize() {
	if in.Port == 0 {
		in.Port = DefaultPort
	}
	if in.SlaveID == 0 {
		in.SlaveID = DefaultSlaveID
	}
	if in.ScanInterval == 0 {
		in.ScanInterval = DefaultScanInterval
	}
	if strings.TrimSpace(in.Name) == "" {
		in.Name = DefaultName
	}
}

// Validate reports every out-of-range field.
func (in Input) Validate() error {
	var errs []error
	if strings.TrimSpace(in.Host) == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if in.Port < 1 || in.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be 1..65535, got %d", in.Port))
	}
	if in.SlaveID < 1 || in.SlaveID > 247 {
		errs = append(errs, fmt.Errorf("slave id must be 1..247, got %d", in.SlaveID))
	}
	if in.ScanInterval < MinScanInterval || in.ScanInterval > MaxScanInterval {
		errs = append(errs, fmt.Errorf("scan interval must be %d..%d seconds, got %d", MinScanInterval, MaxScanInterval, in.ScanInterval))
	}
	return utilerrors.NewAggregate(errs)
}

// UniqueID is host_slaveId; one entry per device on a link.
func (in Input) UniqueID() string {
	return fmt.Sprintf("%s_%d", in.Host, in.SlaveID)
}

// Output is handed back to the configuration layer on success.
type Output struct {
	Title          string                `json:"title"`
	UniqueID       string                `json:"uniqueId"`
	FirmwareFamily device.FirmwareFamily `json:"firmwareFamily"`
	HeaterType     device.HeaterType     `json:"heaterType"`
	Profile        device.Profile        `json:"profile"`
}

// OpenFunc builds a fresh transport for one setup attempt.
type OpenFunc func(in Input) (Transport, error)

// Setup validates in, probes the device and returns the detected profile.
// Every failure is ErrCannotConnect or ErrUnknown; input problems are an
// *InputError, returned before anything touches the network.
func (p *Probe) Setup(ctx context.Context, in Input, open OpenFunc) (Output, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return Output{}, &InputError{Err: err}
	}

	t, err := open(in)
	if err != nil {
		return Output{}, fmt.Errorf("%w: %v", ErrUnknown, err)
	}

	res, err := p.Run(ctx, t, Target{Host: in.Host, Port: in.Port, SlaveID: uint8(in.SlaveID)})
	switch {
	case err == nil:
	case errors.Is(err, ErrCannotConnect):
		return Output{}, err
	default:
		klog.ErrorS(err, "Unexpected setup failure", "host", in.Host, "slave", in.SlaveID)
		return Output{}, fmt.Errorf("%w: %v", ErrUnknown, err)
	}

	return Output{
		Title:          in.Name,
		UniqueID:       in.UniqueID(),
		FirmwareFamily: res.Profile.Family,
		HeaterType:     res.Profile.Heater,
		Profile:        res.Profile,
	}, nil
}
