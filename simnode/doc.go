/*
Package simnode holds the configuration surface that the external co-simulation
runner reads for every simulated entity of a detection-service experiment.

There are three kinds of descriptors:

  - application configs, which produce the boot commands of a node and the
    static files it needs in its guest directory
  - node configs, which describe the guest machine (disk image, memory, kernel
    command line) and the commands run before and after a checkpoint
  - device descriptors, which describe a simulated VTA accelerator attached to
    a server over PCI and how its simulator process is launched

Application configs form a closed set of variants:

	tracker := simnode.NewTracker()
	server := simnode.NewVTARPCServer()
	client := simnode.NewDetectClient()

Each of them implements AppConfig and is attached to a NodeConfig through its
App field. The NodeConfig renders the complete guest boot script with
RunScript.

Nothing in this package simulates anything. The runner owns scheduling,
synchronization and the device models; this package only supplies their
parameters.
*/
package simnode
