package simnode

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// DefaultMemory is the guest memory of every node, in MiB.
	DefaultMemory = 3 * 1024
	// DefaultImageDir is where the TVM disk image is looked up.
	DefaultImageDir = "./output-tvm"

	vtaKernelAppend = " memmap=512M!1G"
	defaultPrefix   = 24
	ifaceName       = "eth0"
)

// NodeVariant selects the guest setup of a node.
type NodeVariant int

const (
	// TVMNode runs the TVM python stack. Trackers and clients use it.
	TVMNode NodeVariant = iota
	// VTANode is a TVMNode that also binds a VTA device to vfio-pci.
	VTANode
)

func (v NodeVariant) String() string {
	switch v {
	case TVMNode:
		return "tvm"
	case VTANode:
		return "vta"
	}
	return fmt.Sprintf("NodeVariant(%d)", int(v))
}

// NodeConfig describes the guest machine of a simulated host.
type NodeConfig struct {
	Variant         NodeVariant
	DiskImage       string
	Memory          int
	KernelCmdAppend string
	IP              string
	Prefix          int
	Drivers         []string
	// NoCheckpoint asks the runner to boot without taking a checkpoint.
	NoCheckpoint bool
	App          AppConfig
}

// NewNodeConfig creates the node config of the given variant. The disk image
// is resolved in imageDir.
func NewNodeConfig(variant NodeVariant, imageDir string) *NodeConfig {
	if imageDir == "" {
		imageDir = DefaultImageDir
	}
	n := &NodeConfig{
		Variant:   variant,
		DiskImage: filepath.Join(imageDir, "tvm"),
		Memory:    DefaultMemory,
		Prefix:    defaultPrefix,
		Drivers:   []string{"i40e"},
	}
	if variant == VTANode {
		n.KernelCmdAppend = vtaKernelAppend
	}
	return n
}

// PrepPreCheckpoint returns the commands run once before the checkpoint is
// taken. Each variant extends the commands of the one it builds on.
func (n *NodeConfig) PrepPreCheckpoint() []string {
	cmds := []string{
		"set -x",
		"export HOME=/root",
		"export LANG=en_US",
		`export PATH="/root/bin:$PATH"`,
	}
	cmds = append(cmds,
		"mount -t proc proc /proc",
		"mount -t sysfs sysfs /sys",
		"cd /root/tvm/",
		"export PYTHONPATH=/root/tvm/python:${PYTHONPATH}",
		"export PYTHONPATH=/root/tvm/vta/python:${PYTHONPATH}",
	)
	if n.Variant == VTANode {
		cmds = append(cmds,
			"echo 1 >/sys/module/vfio/parameters/enable_unsafe_noiommu_mode",
			`echo "dead beef" >/sys/bus/pci/drivers/vfio-pci/new_id`,
		)
	}
	return cmds
}

// PrepPostCheckpoint returns the commands that load the NIC driver and
// configure the node's address.
func (n *NodeConfig) PrepPostCheckpoint() []string {
	var cmds []string
	for _, d := range n.Drivers {
		if strings.HasPrefix(d, "/") {
			cmds = append(cmds, "insmod "+d)
		} else {
			cmds = append(cmds, "modprobe "+d)
		}
	}
	cmds = append(cmds, fmt.Sprintf("ip link set dev %s up", ifaceName))
	if n.IP != "" {
		cmds = append(cmds, fmt.Sprintf("ip addr add %s/%d dev %s", n.IP, n.Prefix, ifaceName))
	}
	return cmds
}

// RunCmds returns the boot commands of the attached application.
func (n *NodeConfig) RunCmds() []string {
	if n.App == nil {
		return nil
	}
	return n.App.RunCmds(n)
}

func (n *NodeConfig) CleanupCmds() []string {
	return []string{"poweroff -f"}
}

// RunScript renders the complete guest boot script.
func (n *NodeConfig) RunScript() string {
	var sb strings.Builder
	sb.WriteString("#!/bin/sh\n")
	for _, part := range [][]string{n.PrepPreCheckpoint(), n.PrepPostCheckpoint(), n.RunCmds(), n.CleanupCmds()} {
		for _, cmd := range part {
			sb.WriteString(cmd)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
