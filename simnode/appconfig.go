package simnode

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
)

// DefaultTrackerPort is the port the TVM RPC tracker listens on.
const DefaultTrackerPort = 9190

// Debug dump markers. The runner extracts the base64 payload between them from
// the collected client output.
const (
	resultImage   = "deploy_detection-infer-result.png"
	DumpStartLine = "dump " + resultImage + " START"
	DumpEndLine   = "dump " + resultImage + " END"
)

const (
	// DetectScript is the guest file name of the detection workload.
	DetectScript = "deploy_detection-infer.py"
	// DetectScriptAsset is the asset the workload is read from at build time.
	DetectScriptAsset = "tvm_deploy_detection-infer.py"

	guestDir       = "/tmp/guest"
	darknetWeights = "/root/darknet"
)

var errNoAssets = errors.New("no asset filesystem configured")

// DeviceKind selects where the detection client runs inference.
type DeviceKind string

const (
	DeviceCPU DeviceKind = "cpu"
	DeviceVTA DeviceKind = "vta"
)

// ParseDeviceKind parses the textual device name used in sweep files.
func ParseDeviceKind(s string) (DeviceKind, error) {
	switch DeviceKind(s) {
	case DeviceCPU, DeviceVTA:
		return DeviceKind(s), nil
	}
	return "", fmt.Errorf("unknown inference device %q", s)
}

// FileSource opens the content of a guest config file.
type FileSource func() (io.ReadCloser, error)

// AppConfig produces the behavior of a node at boot.
type AppConfig interface {
	// RunCmds returns the shell commands run on the node after it is set up.
	RunCmds(node *NodeConfig) []string
	// ConfigFiles returns the files placed in the guest directory, keyed by
	// file name. Sources are resolved against the given asset filesystem.
	ConfigFiles(assets fs.FS) map[string]FileSource
}

func assetSource(assets fs.FS, name string) FileSource {
	return func() (io.ReadCloser, error) {
		if assets == nil {
			return nil, errNoAssets
		}
		return assets.Open(name)
	}
}

// Tracker runs the TVM RPC tracker that servers register with and clients
// query for free accelerators.
type Tracker struct {
	Host string
	Port int
}

// NewTracker creates a tracker listening on all interfaces.
func NewTracker() *Tracker {
	return &Tracker{Host: "0.0.0.0", Port: DefaultTrackerPort}
}

func (t *Tracker) RunCmds(node *NodeConfig) []string {
	return []string{
		// a small backlog drops requests as suspected SYN floods
		"sysctl -w net.ipv4.tcp_max_syn_backlog=4096",
		fmt.Sprintf("python3 -m tvm.exec.rpc_tracker --host=%s --port=%d &", t.Host, t.Port),
		"sleep infinity",
	}
}

func (t *Tracker) ConfigFiles(assets fs.FS) map[string]FileSource { return nil }

// VTARPCServer serves inference requests on the VTA device at PCIDeviceID and
// registers itself with the tracker.
type VTARPCServer struct {
	PCIDeviceID string
	TrackerHost string
	TrackerPort int
}

func NewVTARPCServer() *VTARPCServer {
	return &VTARPCServer{
		PCIDeviceID: "0000:00:00.0",
		TrackerHost: "10.0.0.1",
		TrackerPort: DefaultTrackerPort,
	}
}

func (s *VTARPCServer) RunCmds(node *NodeConfig) []string {
	return []string{
		// wait for tracker
		"sleep 3",
		fmt.Sprintf(
			"VTA_DEVICE=%s python3 -m vta.exec.rpc_server --key=simbricks-pci --tracker=%s:%d &",
			s.PCIDeviceID, s.TrackerHost, s.TrackerPort,
		),
		"sleep infinity",
	}
}

func (s *VTARPCServer) ConfigFiles(assets fs.FS) map[string]FileSource { return nil }

// DetectClient runs the object detection workload against the servers
// registered with the tracker.
type DetectClient struct {
	TrackerHost string
	TrackerPort int
	Device      DeviceKind
	TestImage   string
	Repetitions int
	// Debug makes the client dump the annotated result image.
	Debug bool
}

func NewDetectClient() *DetectClient {
	return &DetectClient{
		TrackerHost: "10.0.0.1",
		TrackerPort: DefaultTrackerPort,
		Device:      DeviceCPU,
		TestImage:   "dog.jpg",
		Repetitions: 5,
	}
}

func (c *DetectClient) RunCmds(node *NodeConfig) []string {
	debug := 0
	if c.Debug {
		debug = 1
	}
	cmds := []string{
		// wait for tracker and RPC servers
		"sleep 6",
		fmt.Sprintf("export TVM_TRACKER_HOST=%s", c.TrackerHost),
		fmt.Sprintf("export TVM_TRACKER_PORT=%d", c.TrackerPort),
		fmt.Sprintf(
			"python3 %s/%s %s %s %s %d %d",
			guestDir, DetectScript, darknetWeights, c.Device, c.TestImage, c.Repetitions, debug,
		),
	}
	if c.Debug {
		cmds = append(cmds,
			"echo "+DumpStartLine,
			"base64 "+resultImage,
			"echo "+DumpEndLine,
		)
	}
	return cmds
}

func (c *DetectClient) ConfigFiles(assets fs.FS) map[string]FileSource {
	return map[string]FileSource{
		DetectScript: assetSource(assets, DetectScriptAsset),
	}
}
