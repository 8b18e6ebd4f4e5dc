package libsweep

import (
	"fmt"

	"github.com/vtacosim/detectsweep/simnode"
)

// HostVariant selects the host simulator of an experiment.
type HostVariant string

const (
	// QemuKVM runs QEMU freely, without synchronizing with other simulators.
	QemuKVM HostVariant = "qemu_k"
	// QemuIcount runs QEMU in instruction-counting mode. All simulators of the
	// experiment then run in lock-step.
	QemuIcount HostVariant = "qemu_i"
)

// ParseHostVariant parses the variant name used in sweep files.
func ParseHostVariant(s string) (HostVariant, error) {
	switch HostVariant(s) {
	case QemuKVM, QemuIcount:
		return HostVariant(s), nil
	}
	return "", fmt.Errorf("unknown host variant %q", s)
}

// Sync reports whether experiments on this variant run synchronized.
func (v HostVariant) Sync() bool { return v == QemuIcount }

// HostKind returns the host simulator used for the variant.
func (v HostVariant) HostKind() HostKind {
	if v == QemuIcount {
		return HostQemuIcount
	}
	return HostQemu
}

// Tuple is one point of the parameter sweep.
type Tuple struct {
	HostVariant HostVariant
	Clients     int
	Servers     int
	Device      simnode.DeviceKind
	ClockFreq   int
}

// ExperimentName returns the name of the experiment built from t.
func (t Tuple) ExperimentName() string {
	return fmt.Sprintf("detect_service-%s-%s-%ds-%dc-%d", t.Device, t.HostVariant, t.Servers, t.Clients, t.ClockFreq)
}

// ClientOptions configures the detection workload of every client.
type ClientOptions struct {
	TestImage   string `yaml:"test_image" json:"test_image"`
	Repetitions int    `yaml:"repetitions" json:"repetitions"`
	Debug       bool   `yaml:"debug" json:"debug"`
}

// Sweep holds the dimensions of the parameter sweep. Experiments are built for
// every element of the cartesian product of the five lists.
type Sweep struct {
	HostVariants     []HostVariant        `yaml:"host_variants" json:"host_variants"`
	NumClients       []int                `yaml:"num_clients" json:"num_clients"`
	NumServers       []int                `yaml:"num_servers" json:"num_servers"`
	InferenceDevices []simnode.DeviceKind `yaml:"inference_devices" json:"inference_devices"`
	VTAClockFreqs    []int                `yaml:"vta_clock_freqs" json:"vta_clock_freqs"`

	Client     ClientOptions `yaml:"client" json:"client"`
	Checkpoint bool          `yaml:"checkpoint" json:"checkpoint"`
}

// DefaultSweep returns the full detection-service sweep.
func DefaultSweep() Sweep {
	return Sweep{
		HostVariants:     []HostVariant{QemuKVM, QemuIcount},
		NumClients:       []int{1, 4, 12},
		NumServers:       []int{1, 2, 4, 6},
		InferenceDevices: []simnode.DeviceKind{simnode.DeviceCPU, simnode.DeviceVTA},
		VTAClockFreqs:    []int{100, 400},
		Client:           defaultClientOptions(),
	}
}

func defaultClientOptions() ClientOptions {
	c := simnode.NewDetectClient()
	return ClientOptions{TestImage: c.TestImage, Repetitions: c.Repetitions}
}

// Size returns the number of experiments in the sweep.
func (s Sweep) Size() int {
	return len(s.HostVariants) * len(s.NumClients) * len(s.NumServers) * len(s.InferenceDevices) * len(s.VTAClockFreqs)
}

// Tuples returns the cartesian product of the sweep dimensions. The last
// dimension varies fastest.
func (s Sweep) Tuples() []Tuple {
	tuples := make([]Tuple, 0, s.Size())
	for _, v := range s.HostVariants {
		for _, c := range s.NumClients {
			for _, n := range s.NumServers {
				for _, d := range s.InferenceDevices {
					for _, f := range s.VTAClockFreqs {
						tuples = append(tuples, Tuple{
							HostVariant: v,
							Clients:     c,
							Servers:     n,
							Device:      d,
							ClockFreq:   f,
						})
					}
				}
			}
		}
	}
	return tuples
}

// Validate checks all sweep parameters.
func (s Sweep) Validate() error {
	if len(s.HostVariants) == 0 {
		return &ConfigError{Field: "host_variants", Reason: "empty"}
	}
	seenVariant := make(map[HostVariant]bool)
	for _, v := range s.HostVariants {
		if _, err := ParseHostVariant(string(v)); err != nil {
			return &ConfigError{Field: "host_variants", Value: v, Reason: "unknown host variant"}
		}
		if seenVariant[v] {
			return &ConfigError{Field: "host_variants", Value: v, Reason: "duplicate"}
		}
		seenVariant[v] = true
	}
	if err := checkPositive("num_clients", s.NumClients); err != nil {
		return err
	}
	if err := checkPositive("num_servers", s.NumServers); err != nil {
		return err
	}
	if len(s.InferenceDevices) == 0 {
		return &ConfigError{Field: "inference_devices", Reason: "empty"}
	}
	seenDevice := make(map[simnode.DeviceKind]bool)
	for _, d := range s.InferenceDevices {
		if _, err := simnode.ParseDeviceKind(string(d)); err != nil {
			return &ConfigError{Field: "inference_devices", Value: d, Reason: "unknown inference device"}
		}
		if seenDevice[d] {
			return &ConfigError{Field: "inference_devices", Value: d, Reason: "duplicate"}
		}
		seenDevice[d] = true
	}
	if err := checkPositive("vta_clock_freqs", s.VTAClockFreqs); err != nil {
		return err
	}
	if s.Client.Repetitions <= 0 {
		return &ConfigError{Field: "client.repetitions", Value: s.Client.Repetitions, Reason: "must be positive"}
	}
	if s.Client.TestImage == "" {
		return &ConfigError{Field: "client.test_image", Reason: "empty"}
	}

	maxServers, maxClients := maxOf(s.NumServers), maxOf(s.NumClients)
	if lastSlot := firstVTASlot + maxServers - 1; lastSlot > maxPCISlot {
		return &ConfigError{
			Field:  "num_servers",
			Value:  maxServers,
			Reason: fmt.Sprintf("VTA slot %d exceeds PCI slot range (max %d)", lastSlot, maxPCISlot),
		}
	}
	if last := serverStartIndex + maxServers + maxClients - 1; last > maxHostIndex {
		return &ConfigError{
			Field:  "num_clients",
			Value:  maxClients,
			Reason: fmt.Sprintf("host index %d exceeds address range (max %d)", last, maxHostIndex),
		}
	}
	return nil
}

func checkPositive(field string, values []int) error {
	if len(values) == 0 {
		return &ConfigError{Field: field, Reason: "empty"}
	}
	seen := make(map[int]bool)
	for _, v := range values {
		if v <= 0 {
			return &ConfigError{Field: field, Value: v, Reason: "must be positive"}
		}
		if seen[v] {
			return &ConfigError{Field: field, Value: v, Reason: "duplicate"}
		}
		seen[v] = true
	}
	return nil
}

func maxOf(values []int) int {
	m := 0
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	return m
}
