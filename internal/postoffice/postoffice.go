// Mirrorgate - Broker-to-Broker Mirror Replication Target
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mirrorgate

package postoffice

import (
	"sync"

	"github.com/tomtom215/mirrorgate/internal/logging"
)

// MirrorOp kinds emitted to the outbound mirror source.
const (
	MirrorOpRoute         = "route"
	MirrorOpAck           = "ack"
	MirrorOpExpire        = "expire"
	MirrorOpAddAddress    = "add_address"
	MirrorOpDeleteAddress = "delete_address"
	MirrorOpCreateQueue   = "create_queue"
	MirrorOpDeleteQueue   = "delete_queue"
)

// MirrorOp describes a local mutation offered to the outbound mirror source.
type MirrorOp struct {
	Kind      string
	Address   string
	Queue     string
	MessageID int64

	// Context is the routing context that caused the mutation, when one
	// exists. The mirror source inspects its MirrorSource marker.
	Context *RoutingContext
}

// MirrorSourceFunc observes local mutations for outbound replication. The
// installed hook must consult the controller scope and skip mutations
// induced by inbound replay, or the link would loop.
type MirrorSourceFunc func(MirrorOp)

// PostOffice is the node-local registry of addresses, bindings, and queues.
type PostOffice struct {
	mu sync.RWMutex

	nodeID  string
	storage *StorageManager
	store   *Store
	idgen   *IDGenerator

	addresses map[string]AddressInfo
	bindings  map[string][]*Binding
	queues    map[string]*Queue

	dupCaches map[string]*DuplicateIDCache

	mirrorSource MirrorSourceFunc
}

// New builds a post office. store may be nil for a purely in-memory node.
func New(nodeID string, storage *StorageManager, store *Store) *PostOffice {
	return &PostOffice{
		nodeID:    nodeID,
		storage:   storage,
		store:     store,
		idgen:     NewIDGenerator(0),
		addresses: make(map[string]AddressInfo),
		bindings:  make(map[string][]*Binding),
		queues:    make(map[string]*Queue),
		dupCaches: make(map[string]*DuplicateIDCache),
	}
}

// NodeID returns this node's broker id.
func (p *PostOffice) NodeID() string { return p.nodeID }

// Storage returns the storage manager.
func (p *PostOffice) Storage() *StorageManager { return p.storage }

// IDGenerator returns the local message-id generator.
func (p *PostOffice) IDGenerator() *IDGenerator { return p.idgen }

// SetMirrorSource installs the outbound mirror hook.
func (p *PostOffice) SetMirrorSource(fn MirrorSourceFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mirrorSource = fn
}

func (p *PostOffice) emitMirror(op MirrorOp) {
	p.mu.RLock()
	fn := p.mirrorSource
	p.mu.RUnlock()
	if fn != nil {
		fn(op)
	}
}

// AddAddress registers an address. Returns ErrAddressExists when present.
func (p *PostOffice) AddAddress(info AddressInfo) error {
	p.mu.Lock()
	if _, ok := p.addresses[info.Name]; ok {
		p.mu.Unlock()
		return ErrAddressExists
	}
	p.addresses[info.Name] = info
	p.mu.Unlock()

	p.emitMirror(MirrorOp{Kind: MirrorOpAddAddress, Address: info.Name})
	return nil
}

// RemoveAddress removes an address and its bindings. Queues bound to the
// address remain and must be deleted explicitly.
func (p *PostOffice) RemoveAddress(name string) error {
	p.mu.Lock()
	if _, ok := p.addresses[name]; !ok {
		p.mu.Unlock()
		return ErrAddressNotFound
	}
	delete(p.addresses, name)
	delete(p.bindings, name)
	p.mu.Unlock()

	p.emitMirror(MirrorOp{Kind: MirrorOpDeleteAddress, Address: name})
	return nil
}

// HasAddress reports whether the address is registered.
func (p *PostOffice) HasAddress(name string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.addresses[name]
	return ok
}

// CreateQueue creates a queue and binds it to its address, registering the
// address implicitly when absent. Returns ErrQueueExists when present.
func (p *PostOffice) CreateQueue(cfg QueueConfig) error {
	p.mu.Lock()
	if _, ok := p.queues[cfg.Name]; ok {
		p.mu.Unlock()
		return ErrQueueExists
	}
	if _, ok := p.addresses[cfg.Address]; !ok {
		p.addresses[cfg.Address] = AddressInfo{Name: cfg.Address}
	}

	q := &Queue{
		name:    cfg.Name,
		address: cfg.Address,
		durable: cfg.Durable,
		storage: p.storage,
		store:   p.store,
		emit:    p.emitMirror,
	}
	p.queues[cfg.Name] = q
	p.bindings[cfg.Address] = append(p.bindings[cfg.Address], &Binding{queue: q})
	p.mu.Unlock()

	p.emitMirror(MirrorOp{Kind: MirrorOpCreateQueue, Address: cfg.Address, Queue: cfg.Name})
	return nil
}

// DeleteQueue destroys a queue. Returns ErrQueueNotFound when absent. The
// options mirror the broker's destroy flags; this model honors Force by
// destroying regardless of content.
func (p *PostOffice) DeleteQueue(address, name string, opts DeleteQueueOptions) error {
	p.mu.Lock()
	q, ok := p.queues[name]
	if !ok {
		p.mu.Unlock()
		return ErrQueueNotFound
	}
	delete(p.queues, name)

	addr := q.address
	if address != "" {
		addr = address
	}
	bound := p.bindings[addr]
	for i, b := range bound {
		if b.queue == q {
			p.bindings[addr] = append(bound[:i], bound[i+1:]...)
			break
		}
	}
	if opts.AutoDeleteAddress && len(p.bindings[addr]) == 0 {
		delete(p.addresses, addr)
		delete(p.bindings, addr)
	}
	p.mu.Unlock()

	p.emitMirror(MirrorOp{Kind: MirrorOpDeleteQueue, Address: addr, Queue: name})
	return nil
}

// Queue returns a queue by name, or nil.
func (p *PostOffice) Queue(name string) *Queue {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.queues[name]
}

// BindingsFor returns the bindings of an address.
func (p *PostOffice) BindingsFor(address string) []*Binding {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Binding, len(p.bindings[address]))
	copy(out, p.bindings[address])
	return out
}

// Route performs normal address routing: the message is offered to every
// binding of its address. Returns the number of bindings routed to.
func (p *PostOffice) Route(msg *Message, rctx *RoutingContext) (int, error) {
	bound := p.BindingsFor(msg.Address)
	if len(bound) == 0 {
		logging.Debug().Str("address", msg.Address).Msg("route to address with no bindings")
		return 0, nil
	}
	for _, b := range bound {
		b.Route(msg, rctx)
	}
	return len(bound), nil
}

// GetDuplicateIDCache returns the durable duplicate-ID cache under the given
// key, creating and recovering it on first use.
func (p *PostOffice) GetDuplicateIDCache(key string, capacity int) *DuplicateIDCache {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.dupCaches[key]; ok {
		return c
	}
	c := newDuplicateIDCache(key, capacity, p.store)
	p.dupCaches[key] = c
	return c
}
