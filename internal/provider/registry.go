package provider

import (
	"fmt"
	"sync"

	"github.com/alimikegami/digital-store/settlement-service/internal/domain"
	"github.com/alimikegami/digital-store/settlement-service/pkg/errs"
)

type Registry struct {
	mu            sync.RWMutex
	adapters      map[domain.PaymentMethod]Adapter
	misconfigured map[domain.PaymentMethod]string
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		adapters:      map[domain.PaymentMethod]Adapter{},
		misconfigured: map[domain.PaymentMethod]string{},
	}
	for _, a := range adapters {
		r.Register(a)
	}
	return r
}

func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.adapters[a.Method()] = a
	delete(r.misconfigured, a.Method())
}

// MarkMisconfigured records that method exists but could not be built, so
// callers get ErrProviderMisconfigured instead of ErrUnsupportedPaymentMethod.
func (r *Registry) MarkMisconfigured(method domain.PaymentMethod, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.misconfigured[method] = reason
}

func (r *Registry) Get(method domain.PaymentMethod) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.adapters[method]; ok {
		return a, nil
	}
	if reason, ok := r.misconfigured[method]; ok {
		return nil, fmt.Errorf("%s: %s: %w", method, reason, errs.ErrProviderMisconfigured)
	}
	return nil, fmt.Errorf("%s: %w", method, errs.ErrUnsupportedPaymentMethod)
}
