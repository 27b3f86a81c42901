package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

// NetworksRenderer renders network lists
type NetworksRenderer struct {
	out   io.Writer
	color bool
}

// NewNetworksRenderer creates a new networks renderer
func NewNetworksRenderer(out io.Writer, color bool) *NetworksRenderer {
	return &NetworksRenderer{out: out, color: color}
}

// RenderNetworksList renders one row per network: name, chain id, whether the
// role table grants on it, and its resolution status
func (r *NetworksRenderer) RenderNetworksList(result *usecase.ListNetworksResult) error {
	if len(result.Networks) == 0 {
		fmt.Fprintln(r.out, "No networks configured in foundry.toml [rpc_endpoints]")
		return nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.AppendHeader(table.Row{"Network", "Chain ID", "Role table", "Status"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})

	for _, n := range result.Networks {
		chainID, status := "-", r.paint(appliedStyle, "ok")
		if n.Error != nil {
			status = r.paint(failedStyle, n.Error.Error())
		} else {
			chainID = fmt.Sprintf("%d", n.ChainID)
		}
		used := r.paint(faintStyle, "-")
		if n.Referenced {
			used = r.paint(grantStyle, "used")
		}
		t.AppendRow(table.Row{n.Name, chainID, used, status})
	}

	_, err := fmt.Fprintln(r.out, t.Render())
	return err
}

func (r *NetworksRenderer) paint(c *color.Color, s string) string {
	if !r.color {
		return s
	}
	return c.Sprint(s)
}
