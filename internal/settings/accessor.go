package settings

import (
	"context"
	"fmt"

	"octolabel/internal/catalog"
	logx "octolabel/pkg/logx"
)

// Accessor is the merged key-value view the engine reads from.
// Nothing is cached: each call goes back to the store.
type Accessor struct {
	store Store
	log   logx.Logger
}

func NewAccessor(store Store, log logx.Logger) *Accessor {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Accessor{store: store, log: log}
}

// Values returns the raw stored document (overrides only).
func (a *Accessor) Values(ctx context.Context) (Values, error) {
	return a.store.Load(ctx)
}

// Event returns the catalog default for id merged with the stored override.
func (a *Accessor) Event(ctx context.Context, id catalog.ID) (catalog.EventDefinition, error) {
	if !catalog.Known(id) {
		return catalog.EventDefinition{}, fmt.Errorf("%w: %q", catalog.ErrUnknownEvent, id)
	}
	v, err := a.store.Load(ctx)
	if err != nil {
		return catalog.EventDefinition{}, fmt.Errorf("load settings: %w", err)
	}
	def, _ := v.Event(id)
	return def, nil
}

// Events returns every merged definition in catalog order.
func (a *Accessor) Events(ctx context.Context) ([]catalog.EventDefinition, error) {
	v, err := a.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	ids := catalog.IDs()
	out := make([]catalog.EventDefinition, 0, len(ids))
	for _, id := range ids {
		def, _ := v.Event(id)
		out = append(out, def)
	}
	return out, nil
}

// Global returns the merged global options.
func (a *Accessor) Global(ctx context.Context) (GlobalOptions, error) {
	v, err := a.store.Load(ctx)
	if err != nil {
		return GlobalOptions{}, fmt.Errorf("load settings: %w", err)
	}
	return v.Global(), nil
}

// Save overlays patch onto the stored document.
func (a *Accessor) Save(ctx context.Context, patch Values) error {
	for id := range patch.Events {
		if !catalog.Known(id) {
			return fmt.Errorf("%w: %q", catalog.ErrUnknownEvent, id)
		}
	}
	if err := a.store.Update(ctx, func(v *Values) error {
		v.Apply(patch)
		return nil
	}); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
