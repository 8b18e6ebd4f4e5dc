package simnode

import "testing"

func TestVTADeviceRunCmd(t *testing.T) {
	d := NewVTADevice("vta1", 400)
	d.SyncMode = 1
	env := ExpEnv{WorkDir: "/work", ShmBase: "/dev/shm"}
	want := "./vta_src/simbricks/vta_simbricks /work/dev.pci.vta1 /dev/shm/dev.shm.vta1 0 500 500 400"
	if got := d.RunCmd(env); got != want {
		t.Fatalf("wrong run command\n got %q\nwant %q", got, want)
	}
}

func TestPCIBusID(t *testing.T) {
	tests := map[int]string{3: "0000:00:03.0", 4: "0000:00:04.0", 12: "0000:00:12.0"}
	for slot, want := range tests {
		if got := PCIBusID(slot); got != want {
			t.Errorf("PCIBusID(%d) = %q, want %q", slot, got, want)
		}
	}
}
