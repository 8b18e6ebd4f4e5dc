package libsweep

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/vtacosim/detectsweep/simnode"
)

func TestParseSweepYAML(t *testing.T) {
	input := `
host_variants: [qemu_i]
num_clients: [1]
num_servers: [2]
inference_devices: [vta]
vta_clock_freqs: [100]
client:
  test_image: cat.jpg
  repetitions: 2
  debug: true
`
	s, err := ParseSweepYAML(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	want := Sweep{
		HostVariants:     []HostVariant{QemuIcount},
		NumClients:       []int{1},
		NumServers:       []int{2},
		InferenceDevices: []simnode.DeviceKind{simnode.DeviceVTA},
		VTAClockFreqs:    []int{100},
		Client:           ClientOptions{TestImage: "cat.jpg", Repetitions: 2, Debug: true},
	}
	if !reflect.DeepEqual(s, want) {
		t.Fatalf("wrong sweep:\n got %+v\nwant %+v", s, want)
	}
}

func TestParseSweepYAMLDefaults(t *testing.T) {
	s, err := ParseSweepYAML(strings.NewReader("num_servers: [4]\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultSweep()
	want.NumServers = []int{4}
	if !reflect.DeepEqual(s, want) {
		t.Fatalf("wrong sweep:\n got %+v\nwant %+v", s, want)
	}
}

func TestParseSweepYAMLUnknownField(t *testing.T) {
	if _, err := ParseSweepYAML(strings.NewReader("num_severs: [4]\n")); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseSweepHCL(t *testing.T) {
	input := `
host_variants     = ["qemu_k"]
num_servers       = [1, 6]
inference_devices = ["cpu"]
checkpoint        = true

client {
  repetitions = 3
}
`
	s, err := ParseSweepHCL([]byte(input), "sweep.hcl")
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultSweep()
	want.HostVariants = []HostVariant{QemuKVM}
	want.NumServers = []int{1, 6}
	want.InferenceDevices = []simnode.DeviceKind{simnode.DeviceCPU}
	want.Checkpoint = true
	want.Client.Repetitions = 3
	if !reflect.DeepEqual(s, want) {
		t.Fatalf("wrong sweep:\n got %+v\nwant %+v", s, want)
	}
}

func TestParseSweepHCLErrors(t *testing.T) {
	for _, input := range []string{
		`num_servers = [1`,
		`unknown = 1`,
	} {
		if _, err := ParseSweepHCL([]byte(input), "bad.hcl"); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}

func TestLoadSweepFile(t *testing.T) {
	dir := t.TempDir()
	yamlFile := filepath.Join(dir, "sweep.yaml")
	hclFile := filepath.Join(dir, "sweep.hcl")
	os.WriteFile(yamlFile, []byte("vta_clock_freqs: [250]\n"), 0644)
	os.WriteFile(hclFile, []byte("vta_clock_freqs = [250]\n"), 0644)

	for _, file := range []string{yamlFile, hclFile} {
		s, err := LoadSweepFile(file)
		if err != nil {
			t.Fatalf("%s: %v", file, err)
		}
		if !reflect.DeepEqual(s.VTAClockFreqs, []int{250}) {
			t.Errorf("%s: wrong clock freqs %v", file, s.VTAClockFreqs)
		}
	}
	if _, err := LoadSweepFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSweepsDirectory(t *testing.T) {
	s, err := LoadSweepFile(filepath.Join("..", "..", "sweeps", "detect_service.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(s, DefaultSweep()) {
		t.Errorf("detect_service.yaml differs from the built-in sweep:\n got %+v\nwant %+v", s, DefaultSweep())
	}

	s, err = LoadSweepFile(filepath.Join("..", "..", "sweeps", "vta_scaling.hcl"))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Validate(); err != nil {
		t.Fatal(err)
	}
	if s.Size() != 15 {
		t.Errorf("vta_scaling.hcl: got %d experiments, want 15", s.Size())
	}
}

func TestParseSweepNullLists(t *testing.T) {
	yamlInputs := map[string]string{
		"num_clients:\n":       "num_clients",
		"host_variants: ~\n":   "host_variants",
		"vta_clock_freqs: []\n": "vta_clock_freqs",
	}
	for input, field := range yamlInputs {
		s, err := ParseSweepYAML(strings.NewReader(input))
		if err != nil {
			t.Fatalf("%q: %v", input, err)
		}
		checkConfigErrorField(t, input, s.Validate(), field)
	}

	s, err := ParseSweepHCL([]byte("num_servers = null\n"), "null.hcl")
	if err != nil {
		t.Fatal(err)
	}
	checkConfigErrorField(t, "num_servers = null", s.Validate(), "num_servers")
}

func checkConfigErrorField(t *testing.T, input string, err error, field string) {
	t.Helper()
	cerr, ok := err.(*ConfigError)
	if !ok {
		t.Errorf("%q: expected ConfigError, got %v", input, err)
		return
	}
	if cerr.Field != field {
		t.Errorf("%q: wrong field %q, want %q", input, cerr.Field, field)
	}
}
