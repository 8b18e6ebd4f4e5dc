package simnode

import (
	"reflect"
	"strings"
	"testing"
)

func TestNodeConfigDefaults(t *testing.T) {
	tvm := NewNodeConfig(TVMNode, "/images")
	if tvm.DiskImage != "/images/tvm" || tvm.Memory != 3072 || tvm.KernelCmdAppend != "" {
		t.Fatalf("wrong tvm node config: %+v", tvm)
	}
	vta := NewNodeConfig(VTANode, "")
	if vta.DiskImage != "output-tvm/tvm" || vta.KernelCmdAppend != " memmap=512M!1G" {
		t.Fatalf("wrong vta node config: %+v", vta)
	}
}

func TestPrepPreCheckpointExtends(t *testing.T) {
	tvm := NewNodeConfig(TVMNode, "").PrepPreCheckpoint()
	vta := NewNodeConfig(VTANode, "").PrepPreCheckpoint()

	if !reflect.DeepEqual(vta[:len(tvm)], tvm) {
		t.Fatalf("vta commands don't extend tvm commands:\n tvm %q\n vta %q", tvm, vta)
	}
	wantTail := []string{
		"echo 1 >/sys/module/vfio/parameters/enable_unsafe_noiommu_mode",
		`echo "dead beef" >/sys/bus/pci/drivers/vfio-pci/new_id`,
	}
	if !reflect.DeepEqual(vta[len(tvm):], wantTail) {
		t.Fatalf("wrong vta tail %q", vta[len(tvm):])
	}
	for _, want := range []string{
		"export PYTHONPATH=/root/tvm/python:${PYTHONPATH}",
		"export PYTHONPATH=/root/tvm/vta/python:${PYTHONPATH}",
	} {
		if !contains(tvm, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestPrepPostCheckpoint(t *testing.T) {
	n := NewNodeConfig(TVMNode, "")
	n.IP = "10.0.0.3"
	want := []string{
		"modprobe i40e",
		"ip link set dev eth0 up",
		"ip addr add 10.0.0.3/24 dev eth0",
	}
	if got := n.PrepPostCheckpoint(); !reflect.DeepEqual(got, want) {
		t.Fatalf("wrong post-checkpoint commands %q", got)
	}
}

func TestPrepPostCheckpointDriverPaths(t *testing.T) {
	n := NewNodeConfig(VTANode, "")
	n.Drivers = []string{"vfio-pci", "/root/modules/i40e.ko"}
	want := []string{
		"modprobe vfio-pci",
		"insmod /root/modules/i40e.ko",
		"ip link set dev eth0 up",
	}
	if got := n.PrepPostCheckpoint(); !reflect.DeepEqual(got, want) {
		t.Fatalf("wrong post-checkpoint commands %q", got)
	}
}

func TestRunScript(t *testing.T) {
	n := NewNodeConfig(TVMNode, "")
	n.IP = "10.0.0.1"
	tr := NewTracker()
	tr.Host = n.IP
	n.App = tr

	script := n.RunScript()
	lines := strings.Split(strings.TrimSuffix(script, "\n"), "\n")
	if lines[0] != "#!/bin/sh" {
		t.Fatal("missing shebang:", lines[0])
	}
	if lines[len(lines)-1] != "poweroff -f" {
		t.Fatal("script doesn't end with cleanup:", lines[len(lines)-1])
	}
	if !strings.Contains(script, "sleep infinity\npoweroff -f\n") {
		t.Fatalf("run commands not placed before cleanup:\n%s", script)
	}
	if strings.Index(script, "ip addr add") > strings.Index(script, "rpc_tracker") {
		t.Fatal("address configured after the application started")
	}
}

func TestRunCmdsWithoutApp(t *testing.T) {
	if cmds := NewNodeConfig(TVMNode, "").RunCmds(); cmds != nil {
		t.Fatal("expected no commands without app:", cmds)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
