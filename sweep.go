package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"

	"github.com/vtacosim/detectsweep/internal/libsweep"
	"github.com/vtacosim/detectsweep/simnode"
	"gopkg.in/inconshreveable/log15.v2"
)

var (
	sweepFile   = flag.String("sweep", "", "Sweep definition file (.yaml, .json or .hcl); the built-in sweep is used when empty")
	assetsDir   = flag.String("assets", ".", "Directory holding the guest scripts copied into experiments")
	imagesDir   = flag.String("images", simnode.DefaultImageDir, "Directory holding the guest disk images")
	vtaBinary   = flag.String("vta-binary", simnode.DefaultVTABinary, "VTA device simulator executable")
	outDir      = flag.String("out", "experiments", "Target folder for the generated experiments")
	manifest    = flag.String("manifest", libsweep.DefaultManifestName, "Per-experiment manifest file name (.yaml, .yml or .json)")
	filterFlag  = flag.String("filter", "", "Regexp selecting the experiments to write")
	serveAddr   = flag.String("serve", "", "Serve the experiment API on this address after writing")
	workDir     = flag.String("workdir", simnode.DefaultEnv().WorkDir, "Runner work directory used in device commands")
	shmDir      = flag.String("shm", simnode.DefaultEnv().ShmBase, "Runner shared memory directory used in device commands")
	checkpoint  = flag.Bool("checkpoint", false, "Boot hosts from a checkpoint (overrides the sweep file)")
	trackerPort = flag.Int("tracker-port", simnode.DefaultTrackerPort, "Port of the RPC tracker")

	loglevelFlag = flag.Int("loglevel", 3, "Log level to use for displaying system events")
)

func main() {
	flag.Parse()
	log15.Root().SetHandler(log15.LvlFilterHandler(log15.Lvl(*loglevelFlag), log15.StreamHandler(os.Stderr, log15.TerminalFormat())))

	if err := run(); err != nil {
		log15.Crit("sweep failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	sweep := libsweep.DefaultSweep()
	if *sweepFile != "" {
		s, err := libsweep.LoadSweepFile(*sweepFile)
		if err != nil {
			return err
		}
		sweep = s
		log15.Info("loaded sweep file", "file", *sweepFile)
	}
	if flagIsSet("checkpoint") {
		sweep.Checkpoint = *checkpoint
	}
	filter, err := libsweep.ParseFilter(*filterFlag)
	if err != nil {
		return err
	}

	builder := libsweep.NewBuilder().
		WithAssets(os.DirFS(*assetsDir)).
		WithImageDir(*imagesDir).
		WithVTABinary(*vtaBinary).
		WithTrackerPort(*trackerPort)
	coll, err := builder.Build(sweep)
	if err != nil {
		return err
	}
	coll = coll.Filter(filter)
	if len(coll) == 0 {
		log15.Warn("no experiments selected", "filter", *filterFlag)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	env := simnode.ExpEnv{WorkDir: *workDir, ShmBase: *shmDir}
	opts := libsweep.OutputOptions{ManifestName: *manifest, Env: env}
	if err := libsweep.WriteCollection(ctx, *outDir, coll, opts); err != nil {
		return err
	}

	if *serveAddr == "" {
		return nil
	}
	srv := &http.Server{Addr: *serveAddr, Handler: libsweep.NewAPI(coll, env)}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	log15.Info("serving experiment API", "addr", *serveAddr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// flagIsSet reports whether the named flag was given on the command line.
func flagIsSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
