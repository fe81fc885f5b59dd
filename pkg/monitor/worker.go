package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/tradeops/cot-mapping-service/pkg/common/logger"
	"github.com/tradeops/cot-mapping-service/pkg/ingest"
	"github.com/tradeops/cot-mapping-service/pkg/mailbox"
)

// Processor is the shared ingest-and-log path. *ingest.Service satisfies it.
type Processor interface {
	ProcessBatch(ctx context.Context, req ingest.ProcessRequest) (*ingest.Result, error)
}

// MailSource fetches unread spreadsheet-bearing messages.
type MailSource interface {
	FetchUnread(ctx context.Context, cfg *mailbox.Config) ([]mailbox.Message, error)
}

// ConfigSource loads the active delivery configuration.
type ConfigSource interface {
	Active(ctx context.Context) (*mailbox.Config, error)
	TouchLastCheck(ctx context.Context, id uint) error
}

// Notifier reports batch outcomes back to the sender. Send failures are
// logged only; the recorded ingest result stands.
type Notifier interface {
	NotifySuccess(ctx context.Context, cfg *mailbox.Config, recipient, fileName string, result *ingest.Result) error
	NotifyFailure(ctx context.Context, cfg *mailbox.Config, recipient, fileName string, ingestErr error) error
}

type Status struct {
	Running   bool       `json:"running"`
	LastPoll  *time.Time `json:"last_poll,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// Worker runs the mailbox polling loop on a single goroutine. States are
// Stopped and Running only; a start while running warns and no-ops, a stop
// waits a bounded time for the in-flight iteration.
type Worker struct {
	configs      ConfigSource
	mail         MailSource
	processor    Processor
	notifier     Notifier
	errorBackoff time.Duration
	stopWait     time.Duration

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastPoll  *time.Time
	lastError string
}

func NewWorker(configs ConfigSource, mail MailSource, processor Processor, notifier Notifier, errorBackoff, stopWait time.Duration) *Worker {
	if errorBackoff <= 0 {
		errorBackoff = 60 * time.Second
	}
	if stopWait <= 0 {
		stopWait = 10 * time.Second
	}
	return &Worker{
		configs:      configs,
		mail:         mail,
		processor:    processor,
		notifier:     notifier,
		errorBackoff: errorBackoff,
		stopWait:     stopWait,
	}
}

func (w *Worker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		logger.Log.Warn("mailbox monitoring already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true

	go w.run(ctx, w.done)
	logger.Log.Info("mailbox monitoring started")
}

// Stop signals the loop and waits up to the configured timeout for the
// current iteration to finish; after that the goroutine is abandoned.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		logger.Log.Warn("mailbox monitoring is not running")
		return
	}
	cancel := w.cancel
	done := w.done
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
		logger.Log.Info("mailbox monitoring stopped")
	case <-time.After(w.stopWait):
		logger.Log.Warn("mailbox monitoring stop timed out; abandoning iteration")
	}
}

func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Status{
		Running:   w.running,
		LastPoll:  w.lastPoll,
		LastError: w.lastError,
	}
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		delay := w.iterate(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// iterate performs one poll and returns how long to sleep before the next:
// the configured poll interval normally, the fixed error backoff after a
// failure. The loop never exits on a transient error.
func (w *Worker) iterate(ctx context.Context) time.Duration {
	cfg, err := w.configs.Active(ctx)
	if err != nil {
		w.recordError(err)
		logger.Log.WithError(err).Error("failed to load delivery configuration")
		return w.errorBackoff
	}
	if !cfg.Enabled {
		logger.Log.Debug("mailbox monitoring disabled by configuration")
		return cfg.PollInterval()
	}

	messages, err := w.mail.FetchUnread(ctx, cfg)
	if err != nil {
		w.recordError(err)
		logger.Log.WithError(err).Error("mailbox fetch failed")
		return w.errorBackoff
	}

	if err := w.configs.TouchLastCheck(ctx, cfg.ID); err != nil {
		logger.Log.WithError(err).Warn("failed to record mailbox check time")
	}

	for _, msg := range messages {
		w.processMessage(ctx, cfg, msg)
	}

	w.recordPoll()
	return cfg.PollInterval()
}

// processMessage ingests each attachment independently: novelty is
// computed per attachment, and one attachment's failure does not stop the
// rest of the cycle.
func (w *Worker) processMessage(ctx context.Context, cfg *mailbox.Config, msg mailbox.Message) {
	for _, att := range msg.Attachments {
		result, err := w.processor.ProcessBatch(ctx, ingest.ProcessRequest{
			FileName:  att.Filename,
			Content:   att.Data,
			Origin:    msg.Sender,
			Subject:   msg.Subject,
			MessageID: msg.MessageID,
		})
		if err != nil {
			logger.Log.WithError(err).WithFields(map[string]interface{}{
				"attachment": att.Filename,
				"sender":     msg.Sender,
			}).Error("attachment ingest failed")
			if notifyErr := w.notifier.NotifyFailure(ctx, cfg, msg.Sender, att.Filename, err); notifyErr != nil {
				logger.Log.WithError(notifyErr).Warn("failed to send error notification")
			}
			continue
		}

		if notifyErr := w.notifier.NotifySuccess(ctx, cfg, msg.Sender, att.Filename, result); notifyErr != nil {
			logger.Log.WithError(notifyErr).Warn("failed to send confirmation notification")
		}
	}
}

func (w *Worker) recordError(err error) {
	w.mu.Lock()
	w.lastError = err.Error()
	w.mu.Unlock()
}

func (w *Worker) recordPoll() {
	now := time.Now().UTC()
	w.mu.Lock()
	w.lastPoll = &now
	w.lastError = ""
	w.mu.Unlock()
}
