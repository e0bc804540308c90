package testutil

import (
	"context"
	"sync"

	"github.com/roach88/loctrack/internal/blob"
)

// Compile-time interface check.
var _ blob.Backend = (*BlockingBackend)(nil)

// BlockingBackend is an in-memory blob backend whose writes can be held
// open, failed, and inspected in the order they arrived.
type BlockingBackend struct {
	mem *blob.Memory

	mu      sync.Mutex
	gate    chan struct{}
	failErr error
	getErr  error
	writes  map[string][][]byte
	entered chan string
}

// NewBlockingBackend creates an unblocked backend.
func NewBlockingBackend() *BlockingBackend {
	return &BlockingBackend{
		mem:     blob.NewMemory(),
		writes:  make(map[string][][]byte),
		entered: make(chan string, 64),
	}
}

// Block makes subsequent Puts wait until Unblock.
func (b *BlockingBackend) Block() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gate == nil {
		b.gate = make(chan struct{})
	}
}

// Unblock releases every waiting Put.
func (b *BlockingBackend) Unblock() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gate != nil {
		close(b.gate)
		b.gate = nil
	}
}

// FailPuts makes Puts return err. Pass nil to restore.
func (b *BlockingBackend) FailPuts(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failErr = err
}

// FailGets makes Gets return err. Pass nil to restore.
func (b *BlockingBackend) FailGets(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.getErr = err
}

// Entered receives the key of every Put as it starts.
func (b *BlockingBackend) Entered() <-chan string {
	return b.entered
}

// Writes returns the successful Put payloads for key in arrival order.
func (b *BlockingBackend) Writes(key string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([][]byte, len(b.writes[key]))
	copy(out, b.writes[key])
	return out
}

// Seed stores data without recording a write.
func (b *BlockingBackend) Seed(key string, data []byte) error {
	return b.mem.Put(context.Background(), key, data)
}

// Get implements blob.Backend.
func (b *BlockingBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	err := b.getErr
	b.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return b.mem.Get(ctx, key)
}

// Put implements blob.Backend.
func (b *BlockingBackend) Put(ctx context.Context, key string, data []byte) error {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()

	select {
	case b.entered <- key:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return b.failErr
	}
	if err := b.mem.Put(ctx, key, data); err != nil {
		return err
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	b.writes[key] = append(b.writes[key], stored)
	return nil
}

// Close implements blob.Backend.
func (b *BlockingBackend) Close() error {
	return b.mem.Close()
}
