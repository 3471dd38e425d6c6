package netcore

import (
	"log/slog"
	"sync"
)

// ProtocolHandler processes one received frame of a registered type. It
// runs inline on the interrupt goroutine during the soft-IRQ drain and must
// not block or re-enter InputHandler for its own type.
type ProtocolHandler func(data []byte, dev DeviceHandle)

type protocolQueueEntry struct {
	dev  DeviceHandle
	data []byte
}

type protocolEntry struct {
	typ     uint16
	handler ProtocolHandler
	queue   []protocolQueueEntry
}

// ProtocolTable maps EtherType-style identifiers to handlers, each backed
// by its own FIFO reception queue. Entries are append-only.
type ProtocolTable struct {
	mu        sync.Mutex
	entries   []*protocolEntry
	raiseSoft func() error
}

// NewProtocolTable returns an empty protocol table. raiseSoftIRQ is called
// by InputHandler whenever a frame is enqueued, to wake the interrupt
// goroutine's bottom half.
func NewProtocolTable(raiseSoftIRQ func() error) *ProtocolTable {
	return &ProtocolTable{raiseSoft: raiseSoftIRQ}
}

// Register appends a handler for typ. Duplicate types are logged, not
// rejected; only the first matching entry ever receives frames.
func (t *ProtocolTable) Register(typ uint16, handler ProtocolHandler) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range t.entries {
		if e.typ == typ {
			slog.Warn("netcore: duplicate protocol type registered", "type", typ)
			break
		}
	}

	t.entries = append(t.entries, &protocolEntry{typ: typ, handler: handler})
	slog.Info("netcore: protocol registered", "type", typ)
}

// InputHandler is called by a device's ISR with a received frame. On a
// matching registered type it copies data into the protocol's queue and
// raises the soft-IRQ; an unmatched type is silently dropped.
func (t *ProtocolTable) InputHandler(dev DeviceHandle, typ uint16, data []byte) error {
	t.mu.Lock()
	var target *protocolEntry
	for _, e := range t.entries {
		if e.typ == typ {
			target = e
			break
		}
	}
	if target == nil {
		t.mu.Unlock()
		RecordProtocolDropped("unknown_type")
		slog.Debug("netcore: dropped frame, unknown protocol", "type", typ, "len", len(data))
		return nil
	}

	cp := make([]byte, len(data))
	copy(cp, data)
	target.queue = append(target.queue, protocolQueueEntry{dev: dev, data: cp})
	depth := len(target.queue)
	t.mu.Unlock()

	setProtocolQueueDepth(typ, depth)
	return t.raiseSoft()
}

// SoftIRQHandler drains every protocol's queue in FIFO order, visiting
// protocols in registration order, invoking each handler inline. Runs on
// the interrupt goroutine.
func (t *ProtocolTable) SoftIRQHandler() error {
	t.mu.Lock()
	entries := append([]*protocolEntry(nil), t.entries...)
	t.mu.Unlock()

	for _, e := range entries {
		for {
			t.mu.Lock()
			if len(e.queue) == 0 {
				t.mu.Unlock()
				break
			}
			next := e.queue[0]
			e.queue = e.queue[1:]
			depth := len(e.queue)
			t.mu.Unlock()

			setProtocolQueueDepth(e.typ, depth)
			e.handler(next.data, next.dev)
		}
	}
	return nil
}
