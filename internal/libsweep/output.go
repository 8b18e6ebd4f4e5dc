package libsweep

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
	"github.com/vtacosim/detectsweep/simnode"
	"golang.org/x/sync/errgroup"
	"gopkg.in/inconshreveable/log15.v2"
)

const (
	DefaultManifestName = "experiment.yaml"
	collectionIndexName = "collection.yaml"
	docsName            = "EXPERIMENTS.md"
	runScriptName       = "run.sh"
)

// OutputOptions configures WriteCollection.
type OutputOptions struct {
	// ManifestName is the per-experiment manifest file. Its extension selects
	// the format (.yaml, .yml or .json).
	ManifestName string
	Env          simnode.Env
	Log          log15.Logger
}

type collectionIndex struct {
	Experiments []string `yaml:"experiments"`
}

// WriteCollection writes the experiments of c below dir:
//
//	<dir>/collection.yaml
//	<dir>/EXPERIMENTS.md
//	<dir>/<experiment>/experiment.yaml
//	<dir>/<experiment>/hosts/<host>/run.sh
//	<dir>/<experiment>/hosts/<host>/files/<file>
//	<dir>/<experiment>/devices/<device>.cmd
//
// Experiments are written concurrently. The output is deterministic.
func WriteCollection(ctx context.Context, dir string, c Collection, opts OutputOptions) error {
	if opts.ManifestName == "" {
		opts.ManifestName = DefaultManifestName
	}
	if opts.Env == nil {
		opts.Env = simnode.DefaultEnv()
	}
	if opts.Log == nil {
		opts.Log = log15.Root()
	}
	if _, err := encodeByExt(opts.ManifestName, struct{}{}); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for _, e := range c {
		e := e
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := writeExperiment(filepath.Join(dir, e.Name), e, opts); err != nil {
				return errors.Wrapf(err, "can't write experiment %s", e.Name)
			}
			opts.Log.Debug("experiment written", "name", e.Name)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	index, err := encodeByExt(collectionIndexName, collectionIndex{Experiments: c.Names()})
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, collectionIndexName), index, 0644); err != nil {
		return err
	}
	docs, err := os.Create(filepath.Join(dir, docsName))
	if err != nil {
		return err
	}
	defer docs.Close()
	if err := WriteMarkdown(docs, c, opts.Env); err != nil {
		return err
	}
	opts.Log.Info("collection written", "dir", dir, "experiments", len(c))
	return docs.Close()
}

func writeExperiment(dir string, e *Experiment, opts OutputOptions) error {
	manifest, err := encodeByExt(opts.ManifestName, NewManifest(e, opts.Env))
	if err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, opts.ManifestName), manifest, 0644); err != nil {
		return err
	}
	for _, h := range e.Hosts {
		hostDir := filepath.Join(dir, "hosts", h.Name)
		if err := writeFile(filepath.Join(hostDir, runScriptName), []byte(h.Node.RunScript()), 0755); err != nil {
			return err
		}
		for _, name := range h.FileNames() {
			if err := writeFile(filepath.Join(hostDir, "files", name), h.Files[name], 0644); err != nil {
				return err
			}
		}
	}
	for _, d := range e.PCIDevs {
		cmd := d.RunCmd(opts.Env) + "\n"
		if err := writeFile(filepath.Join(dir, "devices", d.Name+".cmd"), []byte(cmd), 0644); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(file string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(file), 0755); err != nil {
		return err
	}
	return os.WriteFile(file, data, perm)
}
