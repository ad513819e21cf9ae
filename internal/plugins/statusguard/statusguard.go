// Package statusguard is a builtin plugin that vetoes or rewrites manual
// status changes. It doubles as the reference for writing plugins: typed
// event handlers, per-plugin config, private data and a panel card.
package statusguard

import (
	"context"
	"fmt"

	"github.com/wan0ge/sleepy/internal/event"
	"github.com/wan0ge/sleepy/internal/plugin"
)

func init() {
	plugin.RegisterBuiltin("statusguard", func() plugin.Plugin { return &guard{} })
}

type guard struct {
	forbidden  int
	substitute int
}

func (g *guard) Name() string { return "statusguard" }

func (g *guard) Requires() (min, max plugin.Version) {
	return plugin.Version{6, 0, 0}, plugin.Version{7, 0, 0}
}

func (g *guard) Init(h *plugin.Host) error {
	g.forbidden = intOption(h.Config(), "forbidden", 123)
	g.substitute = intOption(h.Config(), "substitute", -1)

	plugin.On(h, event.StatusUpdated, func(ctx context.Context, e *event.StatusUpdatedEvent) (*event.StatusUpdatedEvent, error) {
		switch {
		case e.NewStatus.ID == g.forbidden:
			e.Intercept(map[string]any{
				"success": false,
				"code":    403,
				"message": "status change blocked by statusguard",
			})
		case g.substitute >= 0 && !e.NewExists:
			// Unknown ids get rewritten to the configured substitute.
			sub, ok := h.Store().Resolve(g.substitute)
			if ok {
				e.NewStatus = sub
				e.NewExists = true
			}
		default:
			data := h.Data()
			n, _ := data["changes_seen"].(float64)
			data["changes_seen"] = n + 1
			h.SetData(data)
		}
		return e, nil
	})

	h.AddPanelCard("statusguard", "Status Guard", func() string {
		n, _ := h.Data()["changes_seen"].(float64)
		return fmt.Sprintf("<p>%d status changes observed</p>", int(n))
	})

	log := h.Log()
	log.Debug().Int("forbidden", g.forbidden).Msg("statusguard loaded")
	return nil
}

// intOption reads an integer from the plugin config table; config decoders
// deliver numbers as int, int64 or float64 depending on the file format.
func intOption(conf map[string]any, key string, def int) int {
	switch v := conf[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}
