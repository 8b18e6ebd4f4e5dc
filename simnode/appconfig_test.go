package simnode

import (
	"io"
	"reflect"
	"testing"
	"testing/fstest"
)

func TestTrackerRunCmds(t *testing.T) {
	tr := NewTracker()
	tr.Host = "10.0.0.1"
	want := []string{
		"sysctl -w net.ipv4.tcp_max_syn_backlog=4096",
		"python3 -m tvm.exec.rpc_tracker --host=10.0.0.1 --port=9190 &",
		"sleep infinity",
	}
	if got := tr.RunCmds(nil); !reflect.DeepEqual(got, want) {
		t.Fatalf("wrong tracker commands:\n got %q\nwant %q", got, want)
	}
	if files := tr.ConfigFiles(nil); len(files) != 0 {
		t.Fatal("tracker should not have config files:", files)
	}
}

func TestVTARPCServerRunCmds(t *testing.T) {
	s := NewVTARPCServer()
	s.PCIDeviceID = PCIBusID(4)
	s.TrackerHost = "10.0.0.1"
	want := []string{
		"sleep 3",
		"VTA_DEVICE=0000:00:04.0 python3 -m vta.exec.rpc_server --key=simbricks-pci --tracker=10.0.0.1:9190 &",
		"sleep infinity",
	}
	if got := s.RunCmds(nil); !reflect.DeepEqual(got, want) {
		t.Fatalf("wrong server commands:\n got %q\nwant %q", got, want)
	}
}

func TestDetectClientRunCmds(t *testing.T) {
	tests := []struct {
		name   string
		device DeviceKind
		debug  bool
		want   []string
	}{
		{
			name:   "cpu",
			device: DeviceCPU,
			want: []string{
				"sleep 6",
				"export TVM_TRACKER_HOST=10.0.0.1",
				"export TVM_TRACKER_PORT=9190",
				"python3 /tmp/guest/deploy_detection-infer.py /root/darknet cpu dog.jpg 5 0",
			},
		},
		{
			name:   "vta-debug",
			device: DeviceVTA,
			debug:  true,
			want: []string{
				"sleep 6",
				"export TVM_TRACKER_HOST=10.0.0.1",
				"export TVM_TRACKER_PORT=9190",
				"python3 /tmp/guest/deploy_detection-infer.py /root/darknet vta dog.jpg 5 1",
				"echo dump deploy_detection-infer-result.png START",
				"base64 deploy_detection-infer-result.png",
				"echo dump deploy_detection-infer-result.png END",
			},
		},
	}
	for _, test := range tests {
		c := NewDetectClient()
		c.Device = test.device
		c.Debug = test.debug
		if got := c.RunCmds(nil); !reflect.DeepEqual(got, test.want) {
			t.Errorf("%s: wrong client commands:\n got %q\nwant %q", test.name, got, test.want)
		}
	}
}

func TestDetectClientDebugMarkersLast(t *testing.T) {
	c := NewDetectClient()
	c.Debug = true
	cmds := c.RunCmds(nil)
	tail := cmds[len(cmds)-3:]
	want := []string{"echo " + DumpStartLine, "base64 deploy_detection-infer-result.png", "echo " + DumpEndLine}
	if !reflect.DeepEqual(tail, want) {
		t.Fatalf("wrong debug tail %q", tail)
	}
}

func TestDetectClientConfigFiles(t *testing.T) {
	assets := fstest.MapFS{
		DetectScriptAsset: &fstest.MapFile{Data: []byte("print('detect')\n")},
	}
	files := NewDetectClient().ConfigFiles(assets)
	src, ok := files[DetectScript]
	if !ok || len(files) != 1 {
		t.Fatalf("wrong config files: %v", files)
	}
	rc, err := src()
	if err != nil {
		t.Fatal("can't open config file:", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "print('detect')\n" {
		t.Fatalf("wrong content %q", data)
	}
}

func TestDetectClientMissingAsset(t *testing.T) {
	if _, err := NewDetectClient().ConfigFiles(nil)[DetectScript](); err != errNoAssets {
		t.Errorf("wrong error without assets: %v", err)
	}
	if _, err := NewDetectClient().ConfigFiles(fstest.MapFS{})[DetectScript](); err == nil {
		t.Error("expected error opening missing asset")
	}
}

func TestParseDeviceKind(t *testing.T) {
	for _, s := range []string{"cpu", "vta"} {
		if k, err := ParseDeviceKind(s); err != nil || string(k) != s {
			t.Errorf("ParseDeviceKind(%q) -> %q, %v", s, k, err)
		}
	}
	if _, err := ParseDeviceKind("gpu"); err == nil {
		t.Error("expected error for unknown device")
	}
}
