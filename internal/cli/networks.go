package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-roles/internal/cli/render"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

// NewNetworksCmd creates the networks command
func NewNetworksCmd() *cobra.Command {
	var referenced bool

	cmd := &cobra.Command{
		Use:   "networks",
		Short: "List networks and the chains the role table grants on",
		Long: `List the networks in the [rpc_endpoints] section of foundry.toml with their
chain IDs, marking the ones the role table uses. Networks the role table names
but foundry.toml lacks are listed as errors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			params := usecase.ListNetworksParams{OnlyReferenced: referenced}
			if app.Config.RoleTable != nil {
				params.Referenced = app.Config.RoleTable.Networks()
			}
			result, err := app.ListNetworks.Run(cmd.Context(), params)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				type entry struct {
					Name       string `json:"name"`
					ChainID    uint64 `json:"chainId,omitempty"`
					Referenced bool   `json:"referenced"`
					Error      string `json:"error,omitempty"`
				}
				out := make([]entry, 0, len(result.Networks))
				for _, n := range result.Networks {
					e := entry{Name: n.Name, ChainID: n.ChainID, Referenced: n.Referenced}
					if n.Error != nil {
						e.Error = n.Error.Error()
					}
					out = append(out, e)
				}
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			renderer := render.NewNetworksRenderer(cmd.OutOrStdout(), true)
			return renderer.RenderNetworksList(result)
		},
	}

	cmd.Flags().BoolVar(&referenced, "referenced", false, "Only list networks used by the role table")
	return cmd
}
