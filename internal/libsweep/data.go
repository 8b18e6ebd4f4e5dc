package libsweep

import (
	"sort"

	"github.com/vtacosim/detectsweep/simnode"
)

// Role is the function of a host in the detection service.
type Role string

const (
	RoleTracker Role = "tracker"
	RoleServer  Role = "server"
	RoleClient  Role = "client"
)

// HostKind is the host simulator implementation.
type HostKind string

const (
	HostQemu       HostKind = "qemu"
	HostQemuIcount HostKind = "qemu_icount"
)

// Default timing of hosts and networks, in nanoseconds.
const (
	defaultSyncPeriod  = 500
	defaultPCILatency  = 500
	defaultEthLatency  = 500
	defaultNICKind     = "i40e"
	defaultNetworkKind = "switch"
)

// Network is the simulated switch all hosts of an experiment attach to.
type Network struct {
	Name       string
	Kind       string
	Sync       bool
	SyncPeriod uint64
	EthLatency uint64
}

func newNetwork(name string) *Network {
	return &Network{
		Name:       name,
		Kind:       defaultNetworkKind,
		SyncPeriod: defaultSyncPeriod,
		EthLatency: defaultEthLatency,
	}
}

// NIC connects a host to a network.
type NIC struct {
	Kind    string
	Network string
}

// Host is a simulated machine.
type Host struct {
	Name  string
	Index int
	Role  Role
	Kind  HostKind
	NIC   NIC
	Node  *simnode.NodeConfig
	Sync  bool
	// Wait marks hosts whose completion ends the experiment.
	Wait       bool
	SyncPeriod uint64
	PCILatency uint64
	PCIDevs    []*simnode.VTADevice
	// Files holds the guest config files, read at build time.
	Files map[string][]byte
}

// AddPCIDev attaches a device to the host.
func (h *Host) AddPCIDev(dev *simnode.VTADevice) {
	h.PCIDevs = append(h.PCIDevs, dev)
}

// FileNames returns the names of the host's config files in sorted order.
func (h *Host) FileNames() []string {
	names := make([]string, 0, len(h.Files))
	for name := range h.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Experiment is one fully wired testbed.
type Experiment struct {
	Name       string
	Tuple      Tuple
	Checkpoint bool
	Network    *Network
	Hosts      []*Host
	PCIDevs    []*simnode.VTADevice
}

func newExperiment(t Tuple) *Experiment {
	return &Experiment{Name: t.ExperimentName(), Tuple: t}
}

func (e *Experiment) addNetwork(n *Network) { e.Network = n }
func (e *Experiment) addHost(h *Host)       { e.Hosts = append(e.Hosts, h) }

func (e *Experiment) addPCIDev(dev *simnode.VTADevice) {
	e.PCIDevs = append(e.PCIDevs, dev)
}

// Tracker returns the tracker host.
func (e *Experiment) Tracker() *Host {
	if hosts := e.hostsWithRole(RoleTracker); len(hosts) > 0 {
		return hosts[0]
	}
	return nil
}

// Servers returns the server hosts in creation order.
func (e *Experiment) Servers() []*Host { return e.hostsWithRole(RoleServer) }

// Clients returns the client hosts in creation order.
func (e *Experiment) Clients() []*Host { return e.hostsWithRole(RoleClient) }

func (e *Experiment) hostsWithRole(r Role) []*Host {
	var hosts []*Host
	for _, h := range e.Hosts {
		if h.Role == r {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// Host returns the host with the given name.
func (e *Experiment) Host(name string) (*Host, bool) {
	for _, h := range e.Hosts {
		if h.Name == name {
			return h, true
		}
	}
	return nil, false
}

// PCIDev returns the device with the given name.
func (e *Experiment) PCIDev(name string) (*simnode.VTADevice, bool) {
	for _, d := range e.PCIDevs {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// DeviceHost returns the host a device is attached to.
func (e *Experiment) DeviceHost(dev *simnode.VTADevice) *Host {
	for _, h := range e.Hosts {
		for _, d := range h.PCIDevs {
			if d == dev {
				return h
			}
		}
	}
	return nil
}

// Collection is the ordered list of experiments handed to the runner.
type Collection []*Experiment

// Names returns the experiment names in order.
func (c Collection) Names() []string {
	names := make([]string, len(c))
	for i, e := range c {
		names[i] = e.Name
	}
	return names
}

// Lookup returns the experiment with the given name.
func (c Collection) Lookup(name string) (*Experiment, bool) {
	for _, e := range c {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}
