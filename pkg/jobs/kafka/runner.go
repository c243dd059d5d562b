// Package kafka runs ops as jobs consumed from a Kafka topic and publishes
// each result, success or failure, to a results topic.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/h3-columnar/internal/cache/keys"
	"github.com/mohammed-shakir/h3-columnar/internal/cache/resultcache"
	"github.com/mohammed-shakir/h3-columnar/internal/core/arrowipc"
	mylog "github.com/mohammed-shakir/h3-columnar/internal/logger"
	"github.com/mohammed-shakir/h3-columnar/internal/ops"
	"github.com/mohammed-shakir/h3-columnar/pkg/h3array"
)

// Publisher is the subset of sarama.SyncProducer the runner needs.
type Publisher interface {
	SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error)
	Close() error
}

type Runner struct {
	log      *slog.Logger
	cfg      Config
	engine   *h3array.Engine
	pub      Publisher
	cache    *resultcache.Cache
	ms       *metricSet
	seen     *jobDedupe
	assigned atomic.Bool
	assignMu sync.RWMutex
	assign   map[int32]struct{}
	wg       sync.WaitGroup
	cancel   context.CancelFunc
}

type Options struct {
	Logger   *slog.Logger
	Register prometheus.Registerer
	// Publisher overrides the sync producer Start would create.
	Publisher Publisher
	Cache     *resultcache.Cache
}

func New(cfg Config, e *h3array.Engine, opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 30 * time.Second
	}
	return &Runner{
		log:    opts.Logger,
		cfg:    cfg,
		engine: e,
		pub:    opts.Publisher,
		cache:  opts.Cache,
		ms:     newMetricSet(opts.Register),
		seen:   newJobDedupe(cfg.DedupeSize),
		assign: map[int32]struct{}{},
	}
}

func (r *Runner) Start(ctx context.Context) error {
	if !r.cfg.Enabled {
		r.log.Info("job worker disabled")
		return nil
	}
	if r.engine == nil {
		return errors.New("kafka runner: engine dependency is required")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Group.Session.Timeout = r.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = r.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = r.cfg.RebalanceTimeout
	if r.cfg.InitialOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Return.Errors = true
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Retry.Max = 5
	cfg.Net.MaxOpenRequests = 1

	if r.pub == nil {
		p, err := sarama.NewSyncProducer(r.cfg.Brokers, cfg)
		if err != nil {
			return fmt.Errorf("sync producer: %w", err)
		}
		r.pub = p
	}

	group, err := sarama.NewConsumerGroup(r.cfg.Brokers, r.cfg.GroupID, cfg)
	if err != nil {
		_ = r.pub.Close()
		return fmt.Errorf("consumer group: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	h := &groupHandler{
		setup: func(sess sarama.ConsumerGroupSession) {
			claims := sess.Claims()
			r.assignMu.Lock()
			r.assigned.Store(true)
			r.assign = map[int32]struct{}{}
			for _, parts := range claims {
				for _, p := range parts {
					r.assign[p] = struct{}{}
				}
			}
			r.assignMu.Unlock()
		},
		cleanup: func(sarama.ConsumerGroupSession) {
			r.assignMu.Lock()
			r.assigned.Store(false)
			r.assign = map[int32]struct{}{}
			r.assignMu.Unlock()
		},
		process: r.handleMessage,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if err := group.Close(); err != nil {
				r.log.Error("kafka consumer group close", "err", err)
			}
			if err := r.pub.Close(); err != nil {
				r.log.Error("kafka producer close", "err", err)
			}
		}()

		for {
			if err := group.Consume(ctx, []string{r.cfg.JobsTopic}, h); err != nil {
				r.log.Error("kafka consume error", "err", err)
				select {
				case <-time.After(2 * time.Second):
				case <-ctx.Done():
					return
				}
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for err := range group.Errors() {
			r.log.Error("kafka group error", "err", err)
		}
	}()

	r.log.Info("kafka job worker started",
		"jobs_topic", r.cfg.JobsTopic, "results_topic", r.cfg.ResultsTopic,
		"group", r.cfg.GroupID, "brokers", r.cfg.Brokers)
	return nil
}

func (r *Runner) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	r.log.Info("kafka job worker stopped")
}

func (r *Runner) Readiness() (ready bool, partitions []int32) {
	if !r.assigned.Load() {
		return false, nil
	}
	r.assignMu.RLock()
	defer r.assignMu.RUnlock()
	for p := range r.assign {
		partitions = append(partitions, p)
	}
	return true, partitions
}

// handleMessage runs one job and publishes its result. Op failures are
// published as results; only a failed publish is returned, so the message
// is not marked and will be redelivered.
func (r *Runner) handleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()
	if !msg.Timestamp.IsZero() {
		r.ms.lagGauge.Set(time.Since(msg.Timestamp).Seconds())
	}

	job, err := decodeJob(msg)
	if err != nil {
		r.ms.msgs.WithLabelValues("malformed").Inc()
		r.log.Warn("dropping malformed job", "err", err)
		return nil
	}
	ctx = mylog.WithOp(mylog.WithJobID(ctx, job.ID), job.Op)

	if !r.seen.claim(job.ID) {
		r.ms.msgs.WithLabelValues("duplicate").Inc()
		r.log.DebugContext(ctx, "skipping duplicate job")
		return nil
	}

	res := r.execute(ctx, job)
	if _, _, err := r.pub.SendMessage(res.message(r.cfg.ResultsTopic)); err != nil {
		r.seen.release(job.ID)
		r.ms.msgs.WithLabelValues("publish_error").Inc()
		return fmt.Errorf("publish result of job %s: %w", job.ID, err)
	}
	r.ms.msgs.WithLabelValues("ok").Inc()
	r.ms.results.WithLabelValues(job.Op, res.Status).Inc()
	r.ms.proc.WithLabelValues(job.Op).Observe(time.Since(start).Seconds())
	if res.Status == StatusError {
		r.log.ErrorContext(ctx, "job failed", "err", res.Err)
	}
	return nil
}

func (r *Runner) execute(ctx context.Context, job Job) (result Result) {
	res := Result{JobID: job.ID, Op: job.Op}
	fail := func(err error) Result {
		res.Status = StatusError
		if ops.IsUserError(err) || errors.Is(err, ops.ErrUnknownOp) || errors.Is(err, arrowipc.ErrMalformed) {
			res.Status = StatusUserError
		}
		res.Err = err.Error()
		res.Body = []byte(res.Err)
		return res
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.log.ErrorContext(ctx, "panic recovered", "err", rec)
			result = fail(fmt.Errorf("%w: %v", h3array.ErrPanic, rec))
		}
	}()

	op, err := ops.Lookup(job.Op)
	if err != nil {
		return fail(err)
	}
	var key string
	if op.Cacheable && r.cache != nil {
		key = keys.Key(op.Name, job.Params.Canonical(), job.Body)
		if payload, tier, ok := r.cache.Get(ctx, key); ok {
			r.log.DebugContext(mylog.WithCacheTier(ctx, tier), "job served from cache")
			res.Status, res.Body = StatusOK, payload
			return res
		}
	}

	mem := r.engine.Allocator()
	in, err := arrowipc.Decode(job.Body, mem)
	if err != nil {
		return fail(err)
	}
	if in != nil {
		defer in.Release()
	}

	runCtx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()
	out, err := ops.Run(runCtx, r.engine, op.Name, in, job.Params)
	if err != nil {
		return fail(err)
	}
	defer out.Release()

	payload, err := arrowipc.Encode(out, mem)
	if err != nil {
		return fail(err)
	}
	if key != "" {
		r.cache.Put(ctx, key, payload)
	}
	res.Status, res.Body = StatusOK, payload
	return res
}

type groupHandler struct {
	setup   func(sarama.ConsumerGroupSession)
	cleanup func(sarama.ConsumerGroupSession)
	process func(context.Context, *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	if h.setup != nil {
		h.setup(sess)
	}
	return nil
}

func (h *groupHandler) Cleanup(sess sarama.ConsumerGroupSession) error {
	if h.cleanup != nil {
		h.cleanup(sess)
	}
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := sess.Context()
	for msg := range claim.Messages() {
		if err := h.process(ctx, msg); err != nil {
			return err
		}
		sess.MarkMessage(msg, "")
	}
	return nil
}
