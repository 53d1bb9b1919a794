package provider

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-process provider for development and tests. Session ids are
// derived from the idempotency key, like a real provider would dedup them.
type Fake struct {
	mu    sync.Mutex
	calls map[string]int
	Err   error
}

func NewFake() *Fake { return &Fake{calls: map[string]int{}} }

func (f *Fake) CreateCheckoutSession(_ context.Context, req CheckoutRequest) (Session, error) {
	return f.create("cs", req.IdempotencyKey)
}

func (f *Fake) CreateVerificationSession(_ context.Context, req VerificationRequest) (Session, error) {
	return f.create("vs", req.IdempotencyKey)
}

func (f *Fake) create(prefix, key string) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[prefix]++
	if f.Err != nil {
		return Session{}, f.Err
	}
	id := fmt.Sprintf("%s_%s", prefix, key)
	return Session{ID: id, URL: "https://provider.invalid/" + id}, nil
}

// Calls returns how many sessions of the kind ("cs" or "vs") were requested.
func (f *Fake) Calls(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[prefix]
}
