package devices

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/audioengine/internal/audioengine/platform"
	"github.com/tphakala/audioengine/internal/conf"
	"github.com/tphakala/audioengine/internal/runner"
)

// Command creates the endpoint listing command.
func Command(settings *conf.Settings) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture and render endpoints",
		Long:  "List audio endpoints for both directions. Index 0 is always the system default.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := runner.New(settings)
			if err != nil {
				return err
			}
			capture, render, err := r.Devices()
			if err != nil {
				return err
			}
			return Write(cmd.OutOrStdout(), format, capture, render)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table, yaml, json")
	return cmd
}

// endpoint is the serialized form of one endpoint.
type endpoint struct {
	Index    int    `yaml:"index" json:"index"`
	Name     string `yaml:"name" json:"name"`
	ID       string `yaml:"id" json:"id"`
	Default  bool   `yaml:"default" json:"default"`
	MicArray bool   `yaml:"micArray,omitempty" json:"micArray,omitempty"`
}

type listing struct {
	Capture []endpoint `yaml:"capture" json:"capture"`
	Render  []endpoint `yaml:"render" json:"render"`
}

func toEndpoints(eps []platform.EndpointDescriptor) []endpoint {
	out := make([]endpoint, len(eps))
	for i, ep := range eps {
		out[i] = endpoint{Index: i, Name: ep.Name, ID: ep.ID, Default: ep.IsDefault, MicArray: ep.IsMicArray}
	}
	return out
}

// Write prints the endpoint listing in the requested format.
func Write(w io.Writer, format string, capture, render []platform.EndpointDescriptor) error {
	l := listing{Capture: toEndpoints(capture), Render: toEndpoints(render)}

	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(l); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(l)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "DIRECTION\tINDEX\tNAME\tID\tDEFAULT")
		for _, group := range []struct {
			dir string
			eps []endpoint
		}{{"capture", l.Capture}, {"render", l.Render}} {
			for _, ep := range group.eps {
				def := ""
				if ep.Default {
					def = "*"
				}
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", group.dir, strconv.Itoa(ep.Index), ep.Name, ep.ID, def)
			}
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
