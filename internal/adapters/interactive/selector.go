package interactive

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/trebuchet-org/treb-roles/internal/domain/config"
)

// ErrNonInteractive is returned when a prompt is needed but stdin is not a
// terminal or --non-interactive is set
var ErrNonInteractive = errors.New("confirmation required: rerun with --yes")

// ConfirmAdapter asks the operator before transactions are sent
type ConfirmAdapter struct {
	config *config.RuntimeConfig
	run    func(label string) error
}

// NewConfirmAdapter creates a new confirm adapter
func NewConfirmAdapter(cfg *config.RuntimeConfig) *ConfirmAdapter {
	return &ConfirmAdapter{config: cfg, run: runPrompt}
}

// Confirm asks a yes/no question. Declining is not an error.
func (c *ConfirmAdapter) Confirm(ctx context.Context, label string) (bool, error) {
	if c.config.NonInteractive || c.config.JSON {
		return false, ErrNonInteractive
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	err := c.run(label)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrAbort), errors.Is(err, promptui.ErrInterrupt), errors.Is(err, promptui.ErrEOF):
		return false, nil
	default:
		return false, fmt.Errorf("prompt failed: %w", err)
	}
}

func runPrompt(label string) error {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
	}
	_, err := prompt.Run()
	return err
}
