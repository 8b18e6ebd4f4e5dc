package libsweep

import (
	"fmt"

	"github.com/vtacosim/detectsweep/simnode"
)

// hostGroup describes n homogeneous hosts. Host indices start at start and
// determine both the host name and its address.
type hostGroup struct {
	prefix  string
	role    Role
	n       int
	start   int
	kind    HostKind
	newNode func() *simnode.NodeConfig
}

// createBasicHosts creates the hosts of g, attaches each of them to net and
// registers them with e.
func createBasicHosts(e *Experiment, net *Network, g hostGroup) []*Host {
	hosts := make([]*Host, 0, g.n)
	for i := 0; i < g.n; i++ {
		idx := g.start + i
		node := g.newNode()
		node.IP = hostIP(idx)
		h := &Host{
			Name:       fmt.Sprintf("%s.%d", g.prefix, idx),
			Index:      idx,
			Role:       g.role,
			Kind:       g.kind,
			NIC:        NIC{Kind: defaultNICKind, Network: net.Name},
			Node:       node,
			SyncPeriod: defaultSyncPeriod,
			PCILatency: defaultPCILatency,
			Files:      make(map[string][]byte),
		}
		e.addHost(h)
		hosts = append(hosts, h)
	}
	return hosts
}

// hostIP derives the address of the host with the given index.
func hostIP(idx int) string {
	return fmt.Sprintf("10.0.%d.%d", idx/256, idx%256)
}
