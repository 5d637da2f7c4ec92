// Package graph implements the WarpGraph facade: the per-writer handle
// that composes the object store, the reducer, the codec, and the
// checkpoint/sync/trust/audit services into the public surface a caller
// actually programs against. Shaped like a handle composing storage plus
// an FSM behind high-level operations, minus the consensus layer this
// domain has no analogue for: the facade here composes objectstore,
// reducer, codec, and checkpoint directly.
package graph

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cuemby/warpgraph/pkg/checkpoint"
	"github.com/cuemby/warpgraph/pkg/cryptoport"
	"github.com/cuemby/warpgraph/pkg/events"
	"github.com/cuemby/warpgraph/pkg/log"
	"github.com/cuemby/warpgraph/pkg/objectstore"
	"github.com/cuemby/warpgraph/pkg/types"
	"github.com/cuemby/warpgraph/pkg/werrors"
	"github.com/rs/zerolog"
)

// Clock abstracts wall-clock access so the facade's timestamped behavior
// (the Timestamp on every published event) is deterministic under test.
// Resolves the "inject a Clock rather than call time.Now directly"
// decision recorded in SPEC_FULL.md §5.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// State is one of the handle's lifecycle states.
type State string

const (
	StateOpen          State = "open"
	StateMaterializing State = "materializing"
	StateClean         State = "clean"
	StateDirty         State = "dirty"
	StateClosed        State = "closed"
)

// Options configures Open.
type Options struct {
	Store    objectstore.Port
	Graph    string
	WriterId types.WriterId
	Crypto   cryptoport.Port
	Logger   *zerolog.Logger
	Clock    Clock
	Events   *events.Broker
}

// Handle is a per-writer handle onto one graph.
type Handle struct {
	mu sync.Mutex

	store  objectstore.Port
	crypto cryptoport.Port
	graph  string
	writer types.WriterId
	clock  Clock
	logger zerolog.Logger
	events *events.Broker

	state            State
	cached           *types.WarpStateV5
	cachedCommit     *string // latest checkpoint commit the cache derives from, nil if none
	patchesSinceCkpt int
	cursorCeiling    *uint64 // active time-travel cursor's tick, if any
}

// Open resolves the handle's pointers and validates the schema at the
// latest checkpoint, if one exists.
// It does not materialize; the handle starts in StateOpen until the
// caller's first Materialize call.
func Open(ctx context.Context, opts Options) (*Handle, error) {
	if err := opts.WriterId.Validate(); err != nil {
		return nil, err
	}
	if opts.Graph == "" {
		return nil, werrors.New(werrors.EUsage, "graph name must not be empty")
	}
	if opts.Store == nil {
		return nil, werrors.New(werrors.EUsage, "object store is required")
	}

	clock := opts.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := log.WithGraph(opts.Graph).With().Str("writer_id", string(opts.WriterId)).Logger()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	state, _, found, err := checkpoint.Load(ctx, opts.Store, opts.Graph)
	if err != nil {
		return nil, err
	}
	if found && state.SchemaVersion != 5 {
		return nil, werrors.New(werrors.ESchemaMismatch, "checkpoint is not schema-2 (WarpStateV5); run migration first").
			With("graph", opts.Graph).With("schema_version", strconv.Itoa(state.SchemaVersion))
	}

	return &Handle{
		store:  opts.Store,
		crypto: opts.Crypto,
		graph:  opts.Graph,
		writer: opts.WriterId,
		clock:  clock,
		logger: logger,
		events: opts.Events,
		state:  StateOpen,
	}, nil
}

// Close releases the handle. A
// closed handle's methods all fail with E_USAGE.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = StateClosed
}

// Graph returns the graph name this handle was opened against.
func (h *Handle) Graph() string { return h.graph }

// Writer returns the writer id this handle commits patches as.
func (h *Handle) Writer() types.WriterId { return h.writer }

// State returns the handle's current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *Handle) checkOpen() error {
	if h.state == StateClosed {
		return werrors.New(werrors.EUsage, "handle is closed")
	}
	return nil
}

func (h *Handle) publish(eventType events.EventType, message string, metadata map[string]string) {
	if h.events == nil {
		return
	}
	h.events.Publish(&events.Event{
		Type:      eventType,
		Timestamp: h.clock.Now(),
		Message:   message,
		Metadata:  metadata,
	})
}
