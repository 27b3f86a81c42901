package render

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trebuchet-org/treb-roles/internal/usecase"
)

func TestRenderNetworksList(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewNetworksRenderer(&buf, false).RenderNetworksList(&usecase.ListNetworksResult{})
		assert.NoError(t, err)
		assert.Contains(t, buf.String(), "No networks configured")
	})

	t.Run("rows", func(t *testing.T) {
		var buf bytes.Buffer
		err := NewNetworksRenderer(&buf, false).RenderNetworksList(&usecase.ListNetworksResult{
			Networks: []usecase.NetworkStatus{
				{Name: "optimism", ChainID: 10, Referenced: true},
				{Name: "sepolia", ChainID: 11155111},
				{Name: "arbitrum", Referenced: true, Error: errors.New("connection refused")},
			},
		})
		assert.NoError(t, err)

		lines := strings.Split(buf.String(), "\n")
		row := func(name string) string {
			for _, l := range lines {
				if strings.Contains(l, name) {
					return l
				}
			}
			return ""
		}
		assert.Contains(t, row("optimism"), "10")
		assert.Contains(t, row("optimism"), "used")
		assert.Contains(t, row("sepolia"), "11155111")
		assert.NotContains(t, row("sepolia"), "used")
		assert.Contains(t, row("arbitrum"), "connection refused")
	})
}
