package flower

import (
	"context"

	"github.com/byronwasti/florescence/internal/domain"
	"github.com/byronwasti/florescence/internal/flower/registry"
)

// Host lets one process run more than one Flower concurrently, each
// replicating a different domain.Topic, while every individual
// pollination.Node stays single-topic. This is the runtime-layer resolution
// of spec.md §9's multi-topic open question: the Node never learns about
// topics at all, Host is purely where a caller looks one up by name.
type Host[A comparable] struct {
	flowers *registry.Registry[*Flower[A]]
}

// NewHost returns an empty multi-topic host.
func NewHost[A comparable]() *Host[A] {
	return &Host[A]{flowers: registry.New[*Flower[A]]()}
}

// Join registers f under topic and returns its stable slot index within
// that topic (for later lookup via Get).
func (h *Host[A]) Join(topic domain.Topic, f *Flower[A]) int {
	return h.flowers.Topic(topic).Push(f)
}

// Topics lists every topic currently hosted.
func (h *Host[A]) Topics() []domain.Topic {
	return h.flowers.Topics()
}

// Get returns the Flower at idx within topic, if still live.
func (h *Host[A]) Get(topic domain.Topic, idx int) (*Flower[A], bool) {
	return h.flowers.Topic(topic).Get(idx)
}

// RunAll starts every Flower currently joined to the host and blocks until
// ctx is cancelled or one of them returns an error.
func (h *Host[A]) RunAll(ctx context.Context) error {
	errs := make(chan error, 1)
	running := 0
	for _, topic := range h.Topics() {
		h.flowers.Topic(topic).Each(func(_ int, f *Flower[A]) {
			running++
			go func() {
				if err := f.Run(ctx); err != nil {
					select {
					case errs <- err:
					default:
					}
				}
			}()
		})
	}
	if running == 0 {
		<-ctx.Done()
		return nil
	}
	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		return nil
	}
}
