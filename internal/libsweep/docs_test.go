package libsweep

import (
	"strings"
	"testing"

	"github.com/vtacosim/detectsweep/internal/fakes"
	"github.com/vtacosim/detectsweep/simnode"
)

func TestToMarkdownLink(t *testing.T) {
	tests := []struct{ in, want string }{
		{"detect_service-vta-qemu_i-2s-1c-100", "detect_service-vta-qemu_i-2s-1c-100"},
		{"Device commands: vta.0", "device-commands-vta0"},
	}
	for _, test := range tests {
		if got := toMarkdownLink(test.in); got != test.want {
			t.Errorf("toMarkdownLink(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestWriteMarkdown(t *testing.T) {
	s := DefaultSweep()
	s.HostVariants = []HostVariant{QemuIcount}
	s.NumClients = []int{1}
	s.NumServers = []int{1, 2}
	s.InferenceDevices = []simnode.DeviceKind{simnode.DeviceVTA}
	s.VTAClockFreqs = []int{100}
	coll, err := NewBuilder().WithAssets(fakes.NewAssets(nil)).Build(s)
	if err != nil {
		t.Fatal(err)
	}

	var sb strings.Builder
	if err := WriteMarkdown(&sb, coll, fakes.NewEnv(nil)); err != nil {
		t.Fatal(err)
	}
	doc := sb.String()

	wantLines := []string{
		"# Detection service experiments",
		"- [detect_service-vta-qemu_i-1s-1c-100](#detect_service-vta-qemu_i-1s-1c-100)",
		"- [detect_service-vta-qemu_i-2s-1c-100](#detect_service-vta-qemu_i-2s-1c-100)",
		"### detect_service-vta-qemu_i-2s-1c-100",
		"| vta_server.3 | server | 10.0.0.3 | vta1@0000:00:04.0 |",
		"| tvm_client.4 | client | 10.0.0.4 |  |",
		simnode.DefaultVTABinary + " /work/dev.pci.vta1 /shm/dev.shm.vta1 0 500 500 100",
	}
	for _, line := range wantLines {
		if !strings.Contains(doc, line+"\n") {
			t.Errorf("missing line %q in:\n%s", line, doc)
		}
	}
	if !strings.Contains(doc, "`qemu_i`") {
		t.Error("preamble quotes not converted")
	}
}
