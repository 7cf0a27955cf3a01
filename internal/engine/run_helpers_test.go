package engine_test

import (
	"sync/atomic"

	"github.com/alexisbeaulieu97/synapse/internal/bridge"
	"github.com/alexisbeaulieu97/synapse/internal/node"
	"github.com/alexisbeaulieu97/synapse/internal/nodes"
)

// browserPage stands in for an opaque automation handle; it lives only in the
// object side table.
type browserPage struct {
	URL string
}

// testBrowserProvider installs a super-function for "Test Click" so the
// native Click handler never runs while the provider's scope is active.
func testBrowserProvider(id, name string, rt *node.Runtime) *node.Node {
	handleKey := "_Database_" + id

	return nodes.NewProvider(id, name, "Test Browser Provider", rt, nodes.ProviderHooks{
		ProviderType: "Browser Provider",
		Setup: func(act *node.Activation, scopeID string) error {
			rt.Bridge.SetObject(handleKey, &browserPage{URL: "about:blank"})
			return nil
		},
		Teardown: func(n *node.Node) {
			rt.Bridge.DeleteObject(handleKey)
		},
		SuperFunctions: map[string]bridge.HijackFunc{
			"Test Click": func(args map[string]interface{}) (interface{}, error) {
				atomic.AddInt64(&hijackClicks, 1)
				if page, ok := rt.Bridge.GetObject(handleKey).(*browserPage); ok && page != nil {
					atomic.AddInt64(&hijackHandles, 1)
				}
				return true, nil
			},
		},
	})
}
