package libsweep

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pkg/errors"
	"github.com/vtacosim/detectsweep/simnode"
)

// sweepFile is the on-disk form of a sweep. Absent entries keep their
// DefaultSweep value. A list given without a value is empty and fails
// validation.
type sweepFile struct {
	HostVariants     []string    `yaml:"host_variants" hcl:"host_variants,optional"`
	NumClients       []int       `yaml:"num_clients" hcl:"num_clients,optional"`
	NumServers       []int       `yaml:"num_servers" hcl:"num_servers,optional"`
	InferenceDevices []string    `yaml:"inference_devices" hcl:"inference_devices,optional"`
	VTAClockFreqs    []int       `yaml:"vta_clock_freqs" hcl:"vta_clock_freqs,optional"`
	Checkpoint       *bool       `yaml:"checkpoint" hcl:"checkpoint,optional"`
	Client           *clientFile `yaml:"client" hcl:"client,block"`
}

type clientFile struct {
	TestImage   *string `yaml:"test_image" hcl:"test_image,optional"`
	Repetitions *int    `yaml:"repetitions" hcl:"repetitions,optional"`
	Debug       *bool   `yaml:"debug" hcl:"debug,optional"`
}

// LoadSweepFile reads a sweep definition. Files ending in .hcl are parsed as
// HCL, everything else as YAML (which includes JSON).
func LoadSweepFile(file string) (Sweep, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return Sweep{}, errors.Wrap(err, "can't read sweep file")
	}
	if strings.EqualFold(filepath.Ext(file), ".hcl") {
		return ParseSweepHCL(data, file)
	}
	return ParseSweepYAML(bytes.NewReader(data))
}

// ParseSweepYAML decodes a YAML sweep definition. Unknown keys are rejected.
func ParseSweepYAML(r io.Reader) (Sweep, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Sweep{}, err
	}
	var f sweepFile
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.DisallowUnknownField()); err != nil {
		return Sweep{}, errors.Wrap(err, "invalid sweep file")
	}
	var keys map[string]interface{}
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return Sweep{}, errors.Wrap(err, "invalid sweep file")
	}
	f.emptyNullLists(func(key string) bool {
		v, ok := keys[key]
		return ok && v == nil
	})
	return f.sweep(), nil
}

// ParseSweepHCL decodes an HCL sweep definition.
func ParseSweepHCL(data []byte, filename string) (Sweep, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return Sweep{}, errors.Wrapf(diags, "failed to parse HCL file %s", filename)
	}
	var f sweepFile
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &f); diags.HasErrors() {
		return Sweep{}, errors.Wrapf(diags, "failed to decode HCL file %s", filename)
	}
	if body, ok := hclFile.Body.(*hclsyntax.Body); ok {
		f.emptyNullLists(func(key string) bool {
			attr, ok := body.Attributes[key]
			if !ok {
				return false
			}
			v, diags := attr.Expr.Value(nil)
			return !diags.HasErrors() && v.IsNull()
		})
	}
	return f.sweep(), nil
}

// emptyNullLists replaces the lists for which isNull reports true with empty
// lists.
func (f *sweepFile) emptyNullLists(isNull func(key string) bool) {
	if isNull("host_variants") {
		f.HostVariants = []string{}
	}
	if isNull("num_clients") {
		f.NumClients = []int{}
	}
	if isNull("num_servers") {
		f.NumServers = []int{}
	}
	if isNull("inference_devices") {
		f.InferenceDevices = []string{}
	}
	if isNull("vta_clock_freqs") {
		f.VTAClockFreqs = []int{}
	}
}

// sweep overlays the file onto DefaultSweep.
func (f *sweepFile) sweep() Sweep {
	s := DefaultSweep()
	if f.HostVariants != nil {
		s.HostVariants = make([]HostVariant, len(f.HostVariants))
		for i, v := range f.HostVariants {
			s.HostVariants[i] = HostVariant(v)
		}
	}
	if f.NumClients != nil {
		s.NumClients = f.NumClients
	}
	if f.NumServers != nil {
		s.NumServers = f.NumServers
	}
	if f.InferenceDevices != nil {
		s.InferenceDevices = make([]simnode.DeviceKind, len(f.InferenceDevices))
		for i, d := range f.InferenceDevices {
			s.InferenceDevices[i] = simnode.DeviceKind(d)
		}
	}
	if f.VTAClockFreqs != nil {
		s.VTAClockFreqs = f.VTAClockFreqs
	}
	if f.Checkpoint != nil {
		s.Checkpoint = *f.Checkpoint
	}
	if c := f.Client; c != nil {
		if c.TestImage != nil {
			s.Client.TestImage = *c.TestImage
		}
		if c.Repetitions != nil {
			s.Client.Repetitions = *c.Repetitions
		}
		if c.Debug != nil {
			s.Client.Debug = *c.Debug
		}
	}
	return s
}
