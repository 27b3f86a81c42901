package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/treb-roles/internal/app"
	"github.com/trebuchet-org/treb-roles/internal/config"
	"github.com/trebuchet-org/treb-roles/internal/domain"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// ErrRunFailed is returned when a run finished but some reads or mutations failed
var ErrRunFailed = errors.New("some role assignments could not be reconciled")

// Exit codes
const (
	exitOK          = 0
	exitError       = 1
	exitConfigError = 2
	exitRunFailed   = 3
)

// ExitCode maps a command error to the process exit code
func ExitCode(err error) int {
	var cfgErr *domain.ConfigError
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, ErrRunFailed):
		return exitRunFailed
	case errors.As(err, &cfgErr), errors.Is(err, domain.ErrNotFound):
		return exitConfigError
	default:
		return exitError
	}
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "treb-roles",
		Short: "Reconcile access-control roles across chains",
		Long: `treb-roles reads a declarative role table, compares it with the roles
granted on each chain, and grants or revokes roles until they match.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			// Find project root
			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			// Set up viper; flags are bound by name
			v := config.SetupViper(projectRoot, cmd)

			// Initialize app with DI
			appInstance, err := app.InitApp(v)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			// Store app in context
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)

			// Add timeout if configured
			if appInstance.Config.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
				// Store cancel func to be called on command completion
				cmd.PostRun = func(cmd *cobra.Command, args []string) {
					cancel()
				}
			}

			cmd.SetContext(ctx)

			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().String("roles-file", "", "Path to the role table (default: roles.toml or roles.yaml in the project root)")
	rootCmd.PersistentFlags().String("address-book", "", "Path to the JSON address book")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands",
	})

	rolesCmd := NewRolesCmd()
	rolesCmd.GroupID = "main"
	rootCmd.AddCommand(rolesCmd)

	networksCmd := NewNetworksCmd()
	networksCmd.GroupID = "management"
	rootCmd.AddCommand(networksCmd)

	// Version command
	versionCmd := NewVersionCmd()
	rootCmd.AddCommand(versionCmd)

	return rootCmd
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}
