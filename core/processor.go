package core

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"lukechampine.com/blake3"

	"cafichain/core/events"
	"cafichain/core/state"
	"cafichain/core/types"
	"cafichain/crypto"
	"cafichain/native/bank"
	"cafichain/native/farming"
	"cafichain/observability"
	"cafichain/storage"
)

// Receipt describes a committed call and the events it produced.
type Receipt struct {
	ID        string         `json:"id"`
	Sequence  uint64         `json:"sequence"`
	Operation string         `json:"operation"`
	Caller    string         `json:"caller"`
	Timestamp uint64         `json:"timestamp"`
	Events    []*types.Event `json:"events"`
}

// Sink receives receipts after their state changes are durable. Sinks run in
// commit order; a failing sink is logged and does not undo the call.
type Sink interface {
	Publish(ctx context.Context, receipt *Receipt) error
}

// Tx exposes the module handles available to a single call.
type Tx struct {
	State     *state.Manager
	Bank      *bank.Ledger
	Farming   *farming.Engine
	Caller    crypto.Address
	Timestamp uint64
}

// Processor serializes calls against the farming module. Each call runs to
// completion against a journaled view of state; on success the journal is
// committed and the buffered events are published, on failure both are
// dropped.
type Processor struct {
	mu sync.Mutex

	state   *state.Manager
	ledger  *bank.Ledger
	engine  *farming.Engine
	clock   *MonotonicClock
	buffer  *events.Buffer
	now     uint64
	sinks   []Sink
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.FarmingMetrics
}

// Option customises a Processor.
type Option func(*Processor)

// WithLogger overrides the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithSink appends a receipt sink.
func WithSink(sink Sink) Option {
	return func(p *Processor) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// WithMetrics overrides the metrics registry. Passing nil disables metrics.
func WithMetrics(m *observability.FarmingMetrics) Option {
	return func(p *Processor) { p.metrics = m }
}

// NewProcessor wires the state manager, token ledger and farming engine over
// db. Custody of stakes and the reward pool sits at the farming module
// address.
func NewProcessor(db storage.Database, clock Clock, opts ...Option) (*Processor, error) {
	if db == nil {
		return nil, fmt.Errorf("processor: database required")
	}
	manager := state.NewManager(db)
	last, err := manager.LastTimestamp()
	if err != nil {
		return nil, fmt.Errorf("processor: load clock: %w", err)
	}
	p := &Processor{
		state:   manager,
		clock:   NewMonotonicClock(clock, last),
		buffer:  &events.Buffer{},
		logger:  slog.Default(),
		tracer:  otel.Tracer("cafichain/core"),
		metrics: observability.Farming(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.ledger = bank.NewLedger(manager)
	p.ledger.SetEmitter(p.buffer)

	p.engine = farming.NewEngine(crypto.ModuleAddress(farming.ModuleName))
	p.engine.SetState(manager)
	p.engine.SetLedger(p.ledger)
	p.engine.SetPauses(manager)
	p.engine.SetAuthority(manager)
	p.engine.SetEmitter(p.buffer)
	p.engine.SetClock(farming.ClockFunc(func() uint64 { return p.now }))
	return p, nil
}

// ModuleAddress returns the custody account of the farming module.
func (p *Processor) ModuleAddress() crypto.Address { return p.engine.ModuleAddress() }

// SetTransferHook installs a hook that runs inside every ledger transfer.
func (p *Processor) SetTransferHook(hook bank.Hook) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ledger.SetHook(hook)
}

// Execute runs fn as one atomic call named op on behalf of caller.
func (p *Processor) Execute(ctx context.Context, op string, caller crypto.Address, fn func(tx *Tx) error) (*Receipt, error) {
	if fn == nil {
		return nil, fmt.Errorf("processor: nil call")
	}
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "farming."+op, trace.WithAttributes(
		attribute.String("farming.operation", op),
		attribute.String("farming.caller", caller.String()),
	))
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()

	receipt, disbursed, err := p.executeLocked(op, caller, fn)
	if err != nil {
		kind := farming.Classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.Observe(op, kind.String(), time.Since(start))
		p.logger.Warn("farming call rejected",
			slog.String("operation", op),
			slog.String("caller", caller.String()),
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	span.SetAttributes(attribute.String("receipt.id", receipt.ID), attribute.Int64("receipt.sequence", int64(receipt.Sequence)))
	span.SetStatus(codes.Ok, "committed")
	p.metrics.Observe(op, "success", time.Since(start))
	p.metrics.RecordDisbursed(op, disbursed)
	p.logger.Info("farming call committed",
		slog.String("operation", op),
		slog.String("caller", caller.String()),
		slog.String("receipt", receipt.ID),
		slog.Int("events", len(receipt.Events)))
	p.publish(ctx, receipt)
	return receipt, nil
}

func (p *Processor) executeLocked(op string, caller crypto.Address, fn func(tx *Tx) error) (*Receipt, *big.Int, error) {
	p.now = p.clock.Next()
	p.buffer.Reset()

	before, err := p.state.FarmPool()
	if err != nil {
		return nil, nil, p.rollback(err)
	}
	if err := p.state.PutLastTimestamp(p.now); err != nil {
		return nil, nil, p.rollback(err)
	}
	tx := &Tx{State: p.state, Bank: p.ledger, Farming: p.engine, Caller: caller, Timestamp: p.now}
	if err := fn(tx); err != nil {
		return nil, nil, p.rollback(err)
	}
	seq, err := p.state.NextReceiptSequence()
	if err != nil {
		return nil, nil, p.rollback(err)
	}
	after, err := p.state.FarmPool()
	if err != nil {
		return nil, nil, p.rollback(err)
	}
	params, err := p.state.FarmParams()
	if err != nil {
		return nil, nil, p.rollback(err)
	}
	receipt, err := newReceipt(seq, op, caller, p.now, p.buffer.Rendered())
	if err != nil {
		return nil, nil, p.rollback(err)
	}
	if err := p.state.Commit(); err != nil {
		return nil, nil, p.rollback(err)
	}
	p.buffer.Reset()

	p.metrics.RecordPool(after.RewardBalance, after.TotalStaked)
	if params != nil {
		p.metrics.SetPause(params.Paused)
	}
	disbursed := new(big.Int).Sub(before.RewardBalance, after.RewardBalance)
	if disbursed.Sign() < 0 {
		disbursed.SetInt64(0)
	}
	return receipt, disbursed, nil
}

func (p *Processor) rollback(err error) error {
	p.state.Discard()
	p.buffer.Reset()
	return err
}

func (p *Processor) publish(ctx context.Context, receipt *Receipt) {
	eventMetrics := observability.Events()
	for _, evt := range receipt.Events {
		eventMetrics.RecordEvent(evt.Type)
		if evt.Type == events.TypeTransfer {
			eventMetrics.RecordTransfer(evt.Attr("token"))
		}
	}
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, receipt); err != nil {
			p.logger.Error("receipt sink failed",
				slog.String("receipt", receipt.ID),
				slog.String("error", err.Error()))
		}
	}
}

// View runs fn against the current state without committing anything. The
// engine observes the current time without advancing the clock.
func (p *Processor) View(ctx context.Context, fn func(tx *Tx) error) error {
	if fn == nil {
		return errors.New("processor: nil view")
	}
	_, span := p.tracer.Start(ctx, "farming.view")
	defer span.End()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.now = p.clock.Peek()
	defer p.state.Discard()
	return fn(&Tx{State: p.state, Bank: p.ledger, Farming: p.engine, Timestamp: p.now})
}

func newReceipt(seq uint64, op string, caller crypto.Address, ts uint64, rendered []*types.Event) (*Receipt, error) {
	if rendered == nil {
		rendered = []*types.Event{}
	}
	payload, err := json.Marshal(rendered)
	if err != nil {
		return nil, fmt.Errorf("processor: encode events: %w", err)
	}
	hasher := blake3.New(32, nil)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	hasher.Write(buf[:])
	hasher.Write([]byte(op))
	hasher.Write(caller.Bytes())
	binary.BigEndian.PutUint64(buf[:], ts)
	hasher.Write(buf[:])
	hasher.Write(payload)
	return &Receipt{
		ID:        hex.EncodeToString(hasher.Sum(nil)),
		Sequence:  seq,
		Operation: op,
		Caller:    caller.String(),
		Timestamp: ts,
		Events:    rendered,
	}, nil
}
