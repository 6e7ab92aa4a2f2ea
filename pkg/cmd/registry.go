package cmd

import (
	"log/slog"

	"github.com/weftlabs/weft/pkg/memory"
	"github.com/weftlabs/weft/pkg/nodes/form"
	"github.com/weftlabs/weft/pkg/nodes/gemini"
	"github.com/weftlabs/weft/pkg/nodes/resend"
	"github.com/weftlabs/weft/pkg/nodes/slack"
	"github.com/weftlabs/weft/pkg/nodes/telegram"
	"github.com/weftlabs/weft/pkg/persistence"
	"github.com/weftlabs/weft/pkg/registry"
)

// NewRegistry builds a registry with every native node type registered.
func NewRegistry(logger *slog.Logger, store persistence.Persistence, history *memory.Store) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.Register(telegram.NewExecutorFactory(store))
	reg.Register(slack.NewExecutorFactory(store))
	reg.Register(resend.NewExecutorFactory(store))
	reg.Register(gemini.NewExecutorFactory(store, history))
	reg.Register(form.NewExecutorFactory(store))

	return reg
}
