package libsweep

import (
	"fmt"
	"io"
	"io/fs"

	"github.com/pkg/errors"
	"github.com/vtacosim/detectsweep/simnode"
	"gopkg.in/inconshreveable/log15.v2"
)

const (
	networkName      = "switch0"
	trackerIndex     = 1
	serverStartIndex = 2

	// VTA devices occupy consecutive slots on PCI bus 0 starting at
	// firstVTASlot. Bus ids print the slot in decimal and guests read it as
	// hex, where the last device is 0x1f, so slot 19 is the last usable one.
	firstVTASlot = 3
	maxPCISlot   = 19
	// Hosts share one /24 network.
	maxHostIndex = 254
)

// Builder constructs the experiments of a sweep.
type Builder struct {
	assets      fs.FS
	imageDir    string
	vtaBinary   string
	trackerPort int
	log         log15.Logger
}

// NewBuilder creates a builder with default settings. Without assets, building
// fails for any experiment that has clients.
func NewBuilder() Builder {
	return Builder{
		imageDir:    simnode.DefaultImageDir,
		vtaBinary:   simnode.DefaultVTABinary,
		trackerPort: simnode.DefaultTrackerPort,
		log:         log15.Root(),
	}
}

// WithAssets sets the filesystem guest config files are read from.
func (b Builder) WithAssets(fsys fs.FS) Builder {
	b.assets = fsys
	return b
}

// WithImageDir sets the directory containing the guest disk image.
func (b Builder) WithImageDir(dir string) Builder {
	b.imageDir = dir
	return b
}

// WithVTABinary sets the device simulator binary.
func (b Builder) WithVTABinary(path string) Builder {
	b.vtaBinary = path
	return b
}

// WithTrackerPort sets the port of the RPC tracker.
func (b Builder) WithTrackerPort(port int) Builder {
	b.trackerPort = port
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(l log15.Logger) Builder {
	b.log = l
	return b
}

// Build creates one experiment per point of the sweep, in product order. It
// returns no experiments if any of them fails to build.
func (b Builder) Build(s Sweep) (Collection, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if b.trackerPort <= 0 || b.trackerPort > 65535 {
		return nil, &ConfigError{Field: "tracker_port", Value: b.trackerPort, Reason: "out of range"}
	}

	tuples := s.Tuples()
	b.log.Info("building sweep", "experiments", len(tuples))
	coll := make(Collection, 0, len(tuples))
	for i, t := range tuples {
		e, err := b.buildExperiment(t, s)
		if err != nil {
			b.log.Error("experiment build failed", "index", i, "name", t.ExperimentName(), "error", err)
			return nil, errors.Wrapf(err, "experiment %d (%s)", i, t.ExperimentName())
		}
		b.log.Debug("experiment built", "name", e.Name, "hosts", len(e.Hosts), "devices", len(e.PCIDevs))
		coll = append(coll, e)
	}
	return coll, nil
}

func (b Builder) buildExperiment(t Tuple, s Sweep) (*Experiment, error) {
	var (
		e    = newExperiment(t)
		sync = t.HostVariant.Sync()
		kind = t.HostVariant.HostKind()
	)
	e.Checkpoint = s.Checkpoint

	net := newNetwork(networkName)
	e.addNetwork(net)

	tracker := createBasicHosts(e, net, hostGroup{
		prefix:  "tvm_tracker",
		role:    RoleTracker,
		n:       1,
		start:   trackerIndex,
		kind:    kind,
		newNode: b.nodeConfig(simnode.TVMNode),
	})[0]
	trackerApp := simnode.NewTracker()
	trackerApp.Host = tracker.Node.IP
	trackerApp.Port = b.trackerPort
	tracker.Node.App = trackerApp

	servers := createBasicHosts(e, net, hostGroup{
		prefix:  "vta_server",
		role:    RoleServer,
		n:       t.Servers,
		start:   serverStartIndex,
		kind:    kind,
		newNode: b.nodeConfig(simnode.VTANode),
	})
	for i, srv := range servers {
		busID := simnode.PCIBusID(firstVTASlot + i)

		app := simnode.NewVTARPCServer()
		app.TrackerHost = tracker.Node.IP
		app.TrackerPort = b.trackerPort
		app.PCIDeviceID = busID
		srv.Node.App = app

		vta := simnode.NewVTADevice(fmt.Sprintf("vta%d", i), t.ClockFreq)
		vta.BusID = busID
		vta.Binary = b.vtaBinary
		srv.AddPCIDev(vta)
		e.addPCIDev(vta)
	}

	clients := createBasicHosts(e, net, hostGroup{
		prefix:  "tvm_client",
		role:    RoleClient,
		n:       t.Clients,
		start:   serverStartIndex + t.Servers,
		kind:    kind,
		newNode: b.nodeConfig(simnode.TVMNode),
	})
	for _, c := range clients {
		app := simnode.NewDetectClient()
		app.TrackerHost = tracker.Node.IP
		app.TrackerPort = b.trackerPort
		app.Device = t.Device
		app.TestImage = s.Client.TestImage
		app.Repetitions = s.Client.Repetitions
		app.Debug = s.Client.Debug
		c.Node.App = app
		c.Wait = true
	}

	// Synchronization is all or nothing within an experiment.
	for _, dev := range e.PCIDevs {
		dev.SyncMode = syncMode(sync)
	}
	for _, h := range e.Hosts {
		h.Node.NoCheckpoint = !e.Checkpoint
		h.Sync = sync
	}
	net.Sync = sync

	if err := checkTopology(e); err != nil {
		return nil, err
	}
	if err := b.loadFiles(e); err != nil {
		return nil, err
	}
	return e, nil
}

func (b Builder) nodeConfig(v simnode.NodeVariant) func() *simnode.NodeConfig {
	return func() *simnode.NodeConfig {
		return simnode.NewNodeConfig(v, b.imageDir)
	}
}

func syncMode(sync bool) int {
	if sync {
		return 1
	}
	return 0
}

// checkTopology verifies the uniqueness of host names, addresses and device
// bus addresses within e.
func checkTopology(e *Experiment) error {
	names := make(map[string]bool)
	ips := make(map[string]bool)
	for _, h := range e.Hosts {
		if names[h.Name] {
			return fmt.Errorf("duplicate host name %s", h.Name)
		}
		if ips[h.Node.IP] {
			return fmt.Errorf("duplicate host address %s (%s)", h.Node.IP, h.Name)
		}
		names[h.Name], ips[h.Node.IP] = true, true
	}
	buses := make(map[string]string)
	for _, d := range e.PCIDevs {
		if other, ok := buses[d.BusID]; ok {
			return fmt.Errorf("devices %s and %s share bus address %s", other, d.Name, d.BusID)
		}
		buses[d.BusID] = d.Name
	}
	return nil
}

// loadFiles reads the config file payloads of all hosts.
func (b Builder) loadFiles(e *Experiment) error {
	for _, h := range e.Hosts {
		if h.Node.App == nil {
			continue
		}
		for name, src := range h.Node.App.ConfigFiles(b.assets) {
			data, err := readSource(src)
			if err != nil {
				return &AssetError{Experiment: e.Name, Host: h.Name, File: name, Err: err}
			}
			h.Files[name] = data
		}
	}
	return nil
}

func readSource(src simnode.FileSource) ([]byte, error) {
	rc, err := src()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
