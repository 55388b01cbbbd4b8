package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-quotes/internal/budget"
	"github.com/noah-isme/backend-quotes/internal/document"
	"github.com/noah-isme/backend-quotes/internal/notify"
	"github.com/noah-isme/backend-quotes/internal/obs"
)

// Assembler renders a quote into an artifact.
type Assembler interface {
	Assemble(ctx context.Context, q budget.Quote, format document.Format) (document.Artifact, error)
}

// Locker grants an exclusive lease so one quote/format pair renders at a time.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// ProcessorConfig wires the Processor dependencies. Locks is optional.
type ProcessorConfig struct {
	Quotes    document.QuoteSource
	Assembler Assembler
	Delivery  document.Delivery
	Notifier  notify.Notifier
	Locks     Locker
	LockTTL   time.Duration
	Logger    zerolog.Logger
}

// Processor handles quote export tasks.
type Processor struct {
	quotes    document.QuoteSource
	assembler Assembler
	delivery  document.Delivery
	notifier  notify.Notifier
	locks     Locker
	lockTTL   time.Duration
	logger    zerolog.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	n := cfg.Notifier
	if n == nil {
		n = notify.Nop{}
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Processor{
		quotes:    cfg.Quotes,
		assembler: cfg.Assembler,
		delivery:  cfg.Delivery,
		notifier:  n,
		locks:     cfg.Locks,
		lockTTL:   ttl,
		logger:    cfg.Logger,
	}
}

// Register binds the processor to the task mux.
func (p *Processor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeQuoteExport, p.ProcessTask)
}

// ProcessTask renders and delivers one export. Malformed payloads and unknown budgets are
// not retried.
func (p *Processor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload Payload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		p.record("invalid")
		return fmt.Errorf("decode export payload: %v: %w", err, asynq.SkipRetry)
	}
	id, err := uuid.Parse(payload.BudgetID)
	if err != nil {
		p.record("invalid")
		return fmt.Errorf("export budget id %q: %w", payload.BudgetID, asynq.SkipRetry)
	}
	format, err := document.ParseFormat(payload.Format)
	if err != nil {
		p.record("invalid")
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	logger := p.logger.With().
		Str("task", TypeQuoteExport).
		Str("budget_id", id.String()).
		Str("format", string(format)).
		Str("requested_by", payload.RequestedBy).
		Logger()
	ctx = logger.WithContext(ctx)

	if p.locks != nil {
		release, err := p.locks.TryLock(ctx, "export:"+id.String()+":"+string(format), p.lockTTL)
		if err != nil {
			p.record("busy")
			return fmt.Errorf("lock export: %w", err)
		}
		defer release()
	}

	q, err := p.quotes.Quote(ctx, id)
	if errors.Is(err, budget.ErrNotFound) {
		p.record("not_found")
		p.report(ctx, notify.LevelWarning, fmt.Sprintf("export of budget %s skipped: budget not found", id))
		return fmt.Errorf("budget %s: %w", id, asynq.SkipRetry)
	}
	if err != nil {
		p.record("retry")
		return fmt.Errorf("load quote: %w", err)
	}

	art, err := p.assembler.Assemble(ctx, q, format)
	if err != nil {
		p.record("failed")
		p.report(ctx, notify.LevelError, fmt.Sprintf("export of quote %s failed: %v", document.QuoteNumber(q), err))
		return err
	}
	if err := p.delivery.Deliver(ctx, art.Data, art.Filename); err != nil {
		p.record("retry")
		logger.Warn().Err(err).Msg("export delivery failed")
		return fmt.Errorf("deliver export: %w", err)
	}

	p.record("ok")
	logger.Info().Str("filename", art.Filename).Int("bytes", len(art.Data)).Msg("export delivered")
	p.report(ctx, notify.LevelInfo, fmt.Sprintf("quote %s exported as %s", document.QuoteNumber(q), art.Filename))
	return nil
}

func (p *Processor) record(result string) {
	if obs.ExportJobsTotal != nil {
		obs.ExportJobsTotal.WithLabelValues(result).Inc()
	}
}

func (p *Processor) report(ctx context.Context, level notify.Level, message string) {
	if err := p.notifier.Notify(ctx, level, message); err != nil {
		p.logger.Warn().Err(err).Msg("export notification failed")
	}
}
