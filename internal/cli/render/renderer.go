package render

import (
	"github.com/trebuchet-org/treb-roles/internal/domain/models"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

type Renderer[T any] interface {
	Render(result T) error
}

// Render implements Renderer
func (r *RolesRenderer) Render(report *models.RoleReport) error {
	return r.RenderReport(report)
}

// Render implements Renderer
func (r *NetworksRenderer) Render(result *usecase.ListNetworksResult) error {
	return r.RenderNetworksList(result)
}

var (
	_ Renderer[*models.RoleReport]          = (*RolesRenderer)(nil)
	_ Renderer[*usecase.ListNetworksResult] = (*NetworksRenderer)(nil)
)
