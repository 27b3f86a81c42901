package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-roles/internal/app"
	"github.com/trebuchet-org/treb-roles/internal/cli/render"
	"github.com/trebuchet-org/treb-roles/internal/domain"
	"github.com/trebuchet-org/treb-roles/internal/domain/models"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

// scopeFlags holds the filter flags shared by check and apply
type scopeFlags struct {
	chains    []string
	siblings  []string
	contracts []string
	roles     []string
	users     []string
	revoke    bool
}

func (f *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.chains, "chain", nil, "Only reconcile these chains (network name or chain id)")
	cmd.Flags().StringSliceVar(&f.siblings, "sibling", nil, "Only reconcile sibling-scoped roles for these remote chain ids")
	cmd.Flags().StringSliceVar(&f.contracts, "contract", nil, "Only reconcile these contract types")
	cmd.Flags().StringSliceVar(&f.roles, "role", nil, "Only reconcile these roles (e.g. GOVERNANCE_ROLE or governance)")
	cmd.Flags().StringSliceVar(&f.users, "user", nil, "Only reconcile these accounts")
	cmd.Flags().BoolVar(&f.revoke, "revoke", false, "Revoke the listed roles instead of granting them")
}

// NewRolesCmd creates the roles command group
func NewRolesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "Check and reconcile on-chain roles",
		Long: `Compare the role table with the roles granted on chain.

"roles check" never sends transactions. "roles apply" sends grantRole and
revokeRole transactions when the role table sets send_transaction = true.`,
	}

	cmd.AddCommand(newRolesCheckCmd())
	cmd.AddCommand(newRolesApplyCmd())

	return cmd
}

func newRolesCheckCmd() *cobra.Command {
	var flags scopeFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show the role changes needed without sending transactions",
		Example: `  treb-roles roles check
  treb-roles roles check --chain sepolia --contract FastSwitchboard
  treb-roles roles check --user 0xabc... --revoke --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			params, err := buildReconcileParams(cmd.Context(), app, &flags)
			if err != nil {
				return err
			}
			params.ForceDryRun = true

			report, err := app.ReconcileRoles.Run(cmd.Context(), params)
			if err != nil {
				return err
			}
			return renderReport(cmd, app, report)
		},
	}

	flags.register(cmd)
	return cmd
}

func newRolesApplyCmd() *cobra.Command {
	var (
		flags scopeFlags
		yes   bool
	)

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Grant and revoke roles until the chain matches the role table",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			params, err := buildReconcileParams(ctx, app, &flags)
			if err != nil {
				return err
			}

			plan, err := app.ReconcileRoles.Plan(ctx, params)
			if err != nil {
				return err
			}
			// stop the spinner before printing the plan
			app.Progress.OnProgress(ctx, usecase.ProgressEvent{})

			if !plan.DryRun && len(plan.Mutations) > 0 && !yes {
				renderer := render.NewRolesRenderer(cmd.OutOrStdout(), !app.Config.JSON)
				if err := renderer.RenderPlan(plan); err != nil {
					return err
				}

				ok, err := app.Confirmer.Confirm(ctx, fmt.Sprintf("Send %d role transactions", len(plan.Mutations)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted, no transactions sent")
					return nil
				}
			}
			if plan.DryRun {
				app.Progress.Info("send_transaction is not set, running as dry run")
			}

			report, err := app.ReconcileRoles.Apply(ctx, plan)
			if err != nil {
				return err
			}
			return renderReport(cmd, app, report)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func renderReport(cmd *cobra.Command, app *app.App, report *models.RoleReport) error {
	renderer := render.NewRolesRenderer(cmd.OutOrStdout(), !app.Config.JSON)

	var err error
	if app.Config.JSON {
		err = renderer.RenderJSON(report)
	} else {
		err = renderer.RenderReport(report)
	}
	if err != nil {
		return err
	}

	if report.HasFailures() {
		return ErrRunFailed
	}
	return nil
}

// buildReconcileParams turns the filter flags into use case params
func buildReconcileParams(ctx context.Context, app *app.App, flags *scopeFlags) (usecase.ReconcileRolesParams, error) {
	params := usecase.ReconcileRolesParams{Table: app.Config.RoleTable}
	if flags.revoke {
		status := false
		params.NewRoleStatus = &status
	}

	scope, err := parseScope(flags, func(name string) (uint64, error) {
		network, err := app.Networks.ResolveNetwork(ctx, name)
		if err != nil {
			return 0, err
		}
		return network.ChainID, nil
	})
	if err != nil {
		return params, err
	}
	params.Scope = scope
	return params, nil
}

// parseScope validates the filter flags. Chain values that are not numeric are
// resolved as network names with resolveChain.
func parseScope(flags *scopeFlags, resolveChain func(name string) (uint64, error)) (domain.RoleScope, error) {
	var scope domain.RoleScope

	for _, raw := range flags.chains {
		id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			id, err = resolveChain(strings.TrimSpace(raw))
			if err != nil {
				if errors.Is(err, domain.ErrNetworkNotConfigured) {
					return scope, &domain.ConfigError{Field: "--chain", Err: err}
				}
				return scope, err
			}
		}
		scope.Chains = append(scope.Chains, id)
	}

	for _, raw := range flags.siblings {
		id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
		if err != nil || id == 0 {
			return scope, &domain.ConfigError{Field: "--sibling", Reason: fmt.Sprintf("%q is not a chain id", raw), Err: domain.ErrInvalidChainID}
		}
		scope.Siblings = append(scope.Siblings, id)
	}

	for _, raw := range flags.contracts {
		ct, ok := domain.LookupContractType(raw)
		if !ok {
			return scope, &domain.ConfigError{
				Field:  "--contract",
				Reason: fmt.Sprintf("unknown contract %q (known: %s)", raw, strings.Join(domain.ContractTypeNames(), ", ")),
			}
		}
		scope.Contracts = append(scope.Contracts, ct)
	}

	for _, raw := range flags.roles {
		role, err := domain.ParseRole(raw)
		if err != nil {
			return scope, &domain.ConfigError{Field: "--role", Err: err}
		}
		scope.Roles = append(scope.Roles, role)
	}

	for _, raw := range flags.users {
		raw = strings.TrimSpace(raw)
		if !common.IsHexAddress(raw) {
			return scope, &domain.ConfigError{Field: "--user", Reason: fmt.Sprintf("%q", raw), Err: domain.ErrInvalidAddress}
		}
		scope.Accounts = append(scope.Accounts, common.HexToAddress(raw))
	}

	return scope, nil
}
