// Package forward は変換後のペイロードを転送先へ非同期に配送する。
//
// 1件の転送は Attempting から Delivered、Scheduled、Abandoned のいずれかへ遷移する。
// トランスポート層で失敗した場合は試行回数に比例した時間だけ待って再試行し、
// RetryPolicy の上限に達したら FailureRecord を永続化して終了する。
// 転送の結果が元のリクエストのレスポンスに影響することはない。
package forward

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/schemagate/internal/failstore"
	"github.com/nao1215/schemagate/internal/schema"
	"github.com/nao1215/schemagate/pkg/httpclient"
	"github.com/prometheus/client_golang/prometheus"
)

// persistTimeout は失敗記録の書き込みに許す時間。
const persistTimeout = 10 * time.Second

// Sender は転送先へJSONを1回送信する。
type Sender interface {
	PostJSON(ctx context.Context, url string, body any) (*httpclient.Response, error)
	PutJSON(ctx context.Context, url string, body any) (*httpclient.Response, error)
}

// errUnsupportedMethod は転送先のメソッドがPOSTでもPUTでもないことを表す。
// 再試行しても結果は変わらないため、最初の試行で断念する。
var errUnsupportedMethod = errors.New("未対応の転送メソッドです")

// State は1件の転送の状態。
type State string

const (
	// StateAttempting は送信中。
	StateAttempting State = "attempting"
	// StateDelivered は送信に成功した。
	StateDelivered State = "delivered"
	// StateScheduled は再試行を予約した。
	StateScheduled State = "scheduled"
	// StateAbandoned は転送を断念し、失敗記録を書き込んだ。
	StateAbandoned State = "abandoned"
)

// Transition は転送の状態遷移。
type Transition struct {
	// TaskID は転送の識別子。
	TaskID string
	// Attempt はこの遷移までに行った試行回数。
	Attempt int
	// State は遷移後の状態。
	State State
	// Delay はStateScheduledの場合の待ち時間。
	Delay time.Duration
	// RecordID はStateAbandonedの場合の失敗記録ID。書き込みに失敗した場合は空。
	RecordID string
}

// Option はDispatcherの設定を変更する関数。
type Option func(*Dispatcher)

// WithRetryPolicy は再試行の方針を設定する。
func WithRetryPolicy(p RetryPolicy) Option {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

// WithScheduler は再試行の予約に使うSchedulerを設定する。
func WithScheduler(s Scheduler) Option {
	return func(d *Dispatcher) {
		d.scheduler = s
	}
}

// WithLogger はロガーを設定する。
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// WithMetrics はメトリクスを設定する。
func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithObserver は状態遷移ごとに呼び出される関数を設定する。
func WithObserver(fn func(Transition)) Option {
	return func(d *Dispatcher) {
		d.observer = fn
	}
}

// Dispatcher は転送と再試行、断念時の失敗記録を受け持つ。
// 各転送の状態は転送ごとに独立しており、他の転送と共有しない。
type Dispatcher struct {
	sender    Sender
	store     failstore.Store
	scheduler Scheduler
	policy    RetryPolicy
	logger    *slog.Logger
	metrics   *Metrics
	observer  func(Transition)
	inFlight  sync.WaitGroup
}

// NewDispatcher は新しいDispatcherを生成する。
func NewDispatcher(sender Sender, store failstore.Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:    sender,
		store:     store,
		scheduler: TimerScheduler{},
		policy:    DefaultRetryPolicy,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.policy.MaxAttempts < 1 {
		d.policy.MaxAttempts = 1
	}
	if d.metrics == nil {
		d.metrics = NewMetrics(prometheus.NewRegistry())
	}
	return d
}

// task は1件の転送。attemptは実施済みの試行回数。
type task struct {
	id      string
	target  schema.ForwardTarget
	payload any
	attempt int
}

// Dispatch はペイロードの転送を開始してすぐに戻る。
// 開始した転送は配送されるか断念されるまで止まらない。
func (d *Dispatcher) Dispatch(target schema.ForwardTarget, payload any) string {
	t := &task{
		id:      uuid.New().String(),
		target:  target,
		payload: payload,
	}
	d.inFlight.Add(1)
	d.metrics.InFlight.Inc()
	go d.run(t)
	return t.id
}

// Wait は開始済みの全ての転送が終わるまで待つ。
// ctxが先に終了した場合はctxのエラーを返す。転送自体は止めない。
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run は1回の試行を行い、結果に応じて次の状態へ遷移する。
func (d *Dispatcher) run(t *task) {
	t.attempt++
	d.observe(Transition{TaskID: t.id, Attempt: t.attempt, State: StateAttempting})

	err := d.send(t)
	if err == nil {
		d.metrics.AttemptsTotal.WithLabelValues("success").Inc()
		d.logger.Info("転送が完了しました",
			"task_id", t.id, "attempt", t.attempt, "address", t.target.Address, "method", t.target.Method)
		d.finish(Transition{TaskID: t.id, Attempt: t.attempt, State: StateDelivered}, "delivered")
		return
	}
	d.metrics.AttemptsTotal.WithLabelValues("failure").Inc()

	if d.policy.Exhausted(t.attempt) || errors.Is(err, errUnsupportedMethod) {
		recordID := d.abandon(t, err)
		d.finish(Transition{TaskID: t.id, Attempt: t.attempt, State: StateAbandoned, RecordID: recordID}, "abandoned")
		return
	}

	delay := d.policy.Delay(t.attempt)
	d.logger.Warn("転送に失敗したため再試行します",
		"task_id", t.id, "attempt", t.attempt, "retry_in", delay.String(),
		"address", t.target.Address, "method", t.target.Method, "error", err)
	d.metrics.RetriesScheduled.Inc()
	d.observe(Transition{TaskID: t.id, Attempt: t.attempt, State: StateScheduled, Delay: delay})
	d.scheduler.AfterFunc(delay, func() { d.run(t) })
}

// send は転送先のメソッドで1回だけ送信する。
// ステータスコードは検査せず、トランスポート層の失敗のみをエラーとする。
func (d *Dispatcher) send(t *task) error {
	ctx := context.Background()
	switch t.target.Method {
	case http.MethodPost:
		_, err := d.sender.PostJSON(ctx, t.target.Address, t.payload)
		return err
	case http.MethodPut:
		_, err := d.sender.PutJSON(ctx, t.target.Address, t.payload)
		return err
	default:
		return fmt.Errorf("%w: %q", errUnsupportedMethod, t.target.Method)
	}
}

// abandon は失敗記録を書き込む。書き込みの失敗はログに残すのみで呼び出し元へは返さない。
func (d *Dispatcher) abandon(t *task, lastErr error) string {
	rec := failstore.NewRecord(t.attempt, t.target, t.payload, lastErr)

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := d.store.Save(ctx, rec); err != nil {
		d.metrics.PersistFailures.Inc()
		d.logger.Error("失敗記録の書き込みに失敗しました",
			"task_id", t.id, "record_id", rec.ID, "attempts", t.attempt,
			"address", t.target.Address, "method", t.target.Method, "payload", t.payload, "error", err)
		return ""
	}

	d.logger.Error("転送を断念しました",
		"task_id", t.id, "record_id", rec.ID, "attempts", t.attempt,
		"address", t.target.Address, "method", t.target.Method, "error", lastErr)
	return rec.ID
}

func (d *Dispatcher) finish(tr Transition, outcome string) {
	d.metrics.OutcomesTotal.WithLabelValues(outcome).Inc()
	d.metrics.InFlight.Dec()
	d.observe(tr)
	d.inFlight.Done()
}

func (d *Dispatcher) observe(tr Transition) {
	if d.observer != nil {
		d.observer(tr)
	}
}
