package libsweep

import (
	"fmt"
	"io"
	"strings"

	"github.com/lithammer/dedent"
	"github.com/vtacosim/detectsweep/simnode"
)

var docsPreamble = dedent.Dedent(`
	# Detection service experiments

	Each experiment runs one RPC tracker, a set of VTA-backed inference servers
	and a set of detection clients on a single switch. Clients are started after
	a fixed delay and the experiment ends when all of them have exited.

	Experiments on the 'qemu_i' host variant run all simulators in lock-step.
`)

func toMarkdownLink(title string) string {
	removeChars := []string{":", "#", "'", "\"", "`", "*", "+", ",", ";", "."}
	title = strings.ReplaceAll(strings.ToLower(title), " ", "-")
	for _, invalidChar := range removeChars {
		title = strings.ReplaceAll(title, invalidChar, "")
	}
	return title
}

// WriteMarkdown writes a markdown overview of the collection to w.
func WriteMarkdown(w io.Writer, c Collection, env simnode.Env) error {
	if env == nil {
		env = simnode.DefaultEnv()
	}
	sb := strings.Builder{}
	sb.WriteString(strings.TrimLeft(strings.ReplaceAll(docsPreamble, "'", "`"), "\n"))
	sb.WriteString("\n")

	// Index
	sb.WriteString("## Experiments\n\n")
	for _, e := range c {
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", e.Name, toMarkdownLink(e.Name)))
	}
	sb.WriteString("\n")

	for _, e := range c {
		writeExperimentMarkdown(&sb, e, env)
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeExperimentMarkdown(sb *strings.Builder, e *Experiment, env simnode.Env) {
	sync := "free-running"
	if e.Network.Sync {
		sync = "synchronized"
	}
	sb.WriteString(fmt.Sprintf("### %s\n\n", e.Name))
	sb.WriteString(fmt.Sprintf("Host variant `%s` (%s), %d server(s), %d client(s), inference on `%s`, VTA clock %d MHz.\n\n",
		e.Tuple.HostVariant, sync, e.Tuple.Servers, e.Tuple.Clients, e.Tuple.Device, e.Tuple.ClockFreq))

	sb.WriteString("| host | role | address | devices |\n")
	sb.WriteString("|------|------|---------|---------|\n")
	for _, h := range e.Hosts {
		var devs []string
		for _, d := range h.PCIDevs {
			devs = append(devs, fmt.Sprintf("%s@%s", d.Name, d.BusID))
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", h.Name, h.Role, h.Node.IP, strings.Join(devs, ", ")))
	}
	sb.WriteString("\n")

	if len(e.PCIDevs) > 0 {
		sb.WriteString("<details>\n<summary>Device commands</summary>\n\n```\n")
		for _, d := range e.PCIDevs {
			sb.WriteString(d.RunCmd(env))
			sb.WriteString("\n")
		}
		sb.WriteString("```\n</details>\n\n")
	}
}
