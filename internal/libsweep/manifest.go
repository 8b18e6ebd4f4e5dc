package libsweep

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/vtacosim/detectsweep/simnode"
	"gopkg.in/yaml.v3"
)

// ExperimentManifest is the serialized form of an experiment handed to the
// runner.
type ExperimentManifest struct {
	Name        string `json:"name" yaml:"name"`
	HostVariant string `json:"hostVariant" yaml:"hostVariant"`
	Clients     int    `json:"clients" yaml:"clients"`
	Servers     int    `json:"servers" yaml:"servers"`
	Device      string `json:"device" yaml:"device"`
	ClockFreq   int    `json:"clockFreq" yaml:"clockFreq"`
	Checkpoint  bool   `json:"checkpoint" yaml:"checkpoint"`

	Network NetworkManifest  `json:"network" yaml:"network"`
	Hosts   []HostManifest   `json:"hosts" yaml:"hosts"`
	Devices []DeviceManifest `json:"devices" yaml:"devices"`
}

type NetworkManifest struct {
	Name       string `json:"name" yaml:"name"`
	Kind       string `json:"kind" yaml:"kind"`
	Sync       bool   `json:"sync" yaml:"sync"`
	SyncPeriod uint64 `json:"syncPeriod" yaml:"syncPeriod"`
	EthLatency uint64 `json:"ethLatency" yaml:"ethLatency"`
}

type HostManifest struct {
	Name       string `json:"name" yaml:"name"`
	Index      int    `json:"index" yaml:"index"`
	Role       Role   `json:"role" yaml:"role"`
	Kind       string `json:"kind" yaml:"kind"`
	NIC        string `json:"nic" yaml:"nic"`
	Network    string `json:"network" yaml:"network"`
	Sync       bool   `json:"sync" yaml:"sync"`
	Wait       bool   `json:"wait" yaml:"wait"`
	SyncPeriod uint64 `json:"syncPeriod" yaml:"syncPeriod"`
	PCILatency uint64 `json:"pciLatency" yaml:"pciLatency"`

	Node NodeManifest `json:"node" yaml:"node"`

	App     string   `json:"app" yaml:"app"`
	RunCmds []string `json:"runCmds" yaml:"runCmds"`
	Files   []string `json:"files,omitempty" yaml:"files,omitempty"`
	PCIDevs []string `json:"pciDevs,omitempty" yaml:"pciDevs,omitempty"`
}

type NodeManifest struct {
	Variant         string   `json:"variant" yaml:"variant"`
	DiskImage       string   `json:"diskImage" yaml:"diskImage"`
	Memory          int      `json:"memory" yaml:"memory"`
	KernelCmdAppend string   `json:"kernelCmdAppend,omitempty" yaml:"kernelCmdAppend,omitempty"`
	IP              string   `json:"ip" yaml:"ip"`
	Prefix          int      `json:"prefix" yaml:"prefix"`
	NoCheckpoint    bool     `json:"noCheckpoint" yaml:"noCheckpoint"`
	PreCheckpoint   []string `json:"preCheckpoint" yaml:"preCheckpoint"`
	PostCheckpoint  []string `json:"postCheckpoint" yaml:"postCheckpoint"`
}

type DeviceManifest struct {
	Name       string `json:"name" yaml:"name"`
	Host       string `json:"host" yaml:"host"`
	BusID      string `json:"busId" yaml:"busId"`
	ClockFreq  int    `json:"clockFreq" yaml:"clockFreq"`
	StartTick  uint64 `json:"startTick" yaml:"startTick"`
	SyncPeriod uint64 `json:"syncPeriod" yaml:"syncPeriod"`
	PCILatency uint64 `json:"pciLatency" yaml:"pciLatency"`
	SyncMode   int    `json:"syncMode" yaml:"syncMode"`
	Cmd        string `json:"cmd" yaml:"cmd"`
}

// NewManifest creates the manifest of e. Device commands are resolved in env.
func NewManifest(e *Experiment, env simnode.Env) *ExperimentManifest {
	m := &ExperimentManifest{
		Name:        e.Name,
		HostVariant: string(e.Tuple.HostVariant),
		Clients:     e.Tuple.Clients,
		Servers:     e.Tuple.Servers,
		Device:      string(e.Tuple.Device),
		ClockFreq:   e.Tuple.ClockFreq,
		Checkpoint:  e.Checkpoint,
		Network: NetworkManifest{
			Name:       e.Network.Name,
			Kind:       e.Network.Kind,
			Sync:       e.Network.Sync,
			SyncPeriod: e.Network.SyncPeriod,
			EthLatency: e.Network.EthLatency,
		},
	}
	for _, h := range e.Hosts {
		hm := HostManifest{
			Name:       h.Name,
			Index:      h.Index,
			Role:       h.Role,
			Kind:       string(h.Kind),
			NIC:        h.NIC.Kind,
			Network:    h.NIC.Network,
			Sync:       h.Sync,
			Wait:       h.Wait,
			SyncPeriod: h.SyncPeriod,
			PCILatency: h.PCILatency,
			Node: NodeManifest{
				Variant:         h.Node.Variant.String(),
				DiskImage:       h.Node.DiskImage,
				Memory:          h.Node.Memory,
				KernelCmdAppend: h.Node.KernelCmdAppend,
				IP:              h.Node.IP,
				Prefix:          h.Node.Prefix,
				NoCheckpoint:    h.Node.NoCheckpoint,
				PreCheckpoint:   h.Node.PrepPreCheckpoint(),
				PostCheckpoint:  h.Node.PrepPostCheckpoint(),
			},
			App:     appName(h.Node.App),
			RunCmds: h.Node.RunCmds(),
			Files:   h.FileNames(),
		}
		for _, d := range h.PCIDevs {
			hm.PCIDevs = append(hm.PCIDevs, d.Name)
		}
		m.Hosts = append(m.Hosts, hm)
	}
	for _, d := range e.PCIDevs {
		dm := DeviceManifest{
			Name:       d.Name,
			BusID:      d.BusID,
			ClockFreq:  d.ClockFreq,
			StartTick:  d.StartTick,
			SyncPeriod: d.SyncPeriod,
			PCILatency: d.PCILatency,
			SyncMode:   d.SyncMode,
			Cmd:        d.RunCmd(env),
		}
		if h := e.DeviceHost(d); h != nil {
			dm.Host = h.Name
		}
		m.Devices = append(m.Devices, dm)
	}
	return m
}

func appName(app simnode.AppConfig) string {
	switch app.(type) {
	case *simnode.Tracker:
		return "tracker"
	case *simnode.VTARPCServer:
		return "vta_rpc_server"
	case *simnode.DetectClient:
		return "detect_client"
	case nil:
		return ""
	}
	return fmt.Sprintf("%T", app)
}

// encodeByExt serializes v as JSON or YAML, selected by the extension of name.
func encodeByExt(name string, v interface{}) ([]byte, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case ".yaml", ".yml":
		return yaml.Marshal(v)
	}
	return nil, fmt.Errorf("unsupported manifest format %q", name)
}
