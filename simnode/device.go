package simnode

import (
	"fmt"
	"path"
)

// DefaultVTABinary is the device simulator launched for every VTA instance.
const DefaultVTABinary = "./vta_src/simbricks/vta_simbricks"

// Default timing of device simulators, in nanoseconds.
const (
	DefaultSyncPeriod = 500
	DefaultPCILatency = 500
)

// Env resolves the runner-owned paths of a device simulator.
type Env interface {
	DevPCIPath(dev string) string
	DevShmPath(dev string) string
}

// ExpEnv is the path layout the runner uses for an experiment run.
type ExpEnv struct {
	WorkDir string
	ShmBase string
}

// DefaultEnv returns the layout used when the runner's work directory is not
// known.
func DefaultEnv() ExpEnv {
	return ExpEnv{WorkDir: "./out", ShmBase: "./out/shm"}
}

func (e ExpEnv) DevPCIPath(dev string) string {
	return path.Join(e.WorkDir, "dev.pci."+dev)
}

func (e ExpEnv) DevShmPath(dev string) string {
	return path.Join(e.ShmBase, "dev.shm."+dev)
}

// PCIDevice holds the fields every PCI device simulator exposes to the runner.
type PCIDevice struct {
	StartTick  uint64
	SyncPeriod uint64
	PCILatency uint64
	// SyncMode is 1 when the device runs in lock-step with its host.
	SyncMode int
}

// VTADevice is a simulated VTA accelerator attached to one server.
type VTADevice struct {
	PCIDevice
	Name  string
	BusID string
	// ClockFreq is the accelerator clock in MHz.
	ClockFreq int
	Binary    string
}

// NewVTADevice creates a device with default timing.
func NewVTADevice(name string, clockFreq int) *VTADevice {
	return &VTADevice{
		PCIDevice: PCIDevice{
			SyncPeriod: DefaultSyncPeriod,
			PCILatency: DefaultPCILatency,
		},
		Name:      name,
		ClockFreq: clockFreq,
		Binary:    DefaultVTABinary,
	}
}

// PCIBusID returns the PCI address of the given slot on bus 0.
func PCIBusID(slot int) string {
	return fmt.Sprintf("0000:00:%02d.0", slot)
}

// RunCmd returns the command line that launches the device simulator.
func (d *VTADevice) RunCmd(env Env) string {
	bin := d.Binary
	if bin == "" {
		bin = DefaultVTABinary
	}
	return fmt.Sprintf("%s %s %s %d %d %d %d",
		bin, env.DevPCIPath(d.Name), env.DevShmPath(d.Name),
		d.StartTick, d.SyncPeriod, d.PCILatency, d.ClockFreq)
}
