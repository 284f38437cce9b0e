package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// State is a Tracker lifecycle phase.
type State string

const (
	StateUploading  State = "uploading"
	StateRetrying   State = "retrying"
	StateProcessing State = "processing"
	StateSuccess    State = "success"
	StateError      State = "error"
)

// processingStages are cosmetic labels advanced one per poll tick. The server
// reports no intermediate progress, so these never claim to be authoritative.
var processingStages = []string{
	"Extracting document text",
	"Analyzing policy details",
	"Generating summary",
	"Finalizing",
}

// ErrPollTimeout is reported when processing does not finish within the
// tracker's attempt budget. A server-side failure is reported as
// *ProcessingFailedError instead.
var ErrPollTimeout = errors.New("processing did not finish before the polling deadline")

// ProcessingFailedError carries a server-reported processing failure.
type ProcessingFailedError struct {
	Reason string
}

func (e *ProcessingFailedError) Error() string {
	return fmt.Sprintf("processing failed: %s", e.Reason)
}

// Update is one progress event delivered by a Tracker.
type Update struct {
	State      State
	Stage      string
	Progress   int
	DocumentID string
	Document   *Document
	Status     *Status
	Err        error
}

// TrackerOptions tunes the polling loop. Zero values take the defaults.
type TrackerOptions struct {
	PollInterval   time.Duration // default 5s
	MaxAttempts    int           // default 36
	TransientLimit int           // consecutive poll failures tolerated, default 3
}

// Tracker drives one upload through submission and status polling, emitting
// Updates until a terminal state. Each upload gets its own Tracker; trackers
// share nothing, so concurrent uploads poll independently.
type Tracker struct {
	client       *Client
	opts         TrackerOptions
	progressTick time.Duration

	mu       sync.Mutex
	cancel   context.CancelFunc
	started  bool
	canceled bool
}

// NewTracker constructs a Tracker bound to this client.
func (c *Client) NewTracker(opts TrackerOptions) *Tracker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 5 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 36
	}
	if opts.TransientLimit <= 0 {
		opts.TransientLimit = 3
	}
	return &Tracker{
		client:       c,
		opts:         opts,
		progressTick: 200 * time.Millisecond,
	}
}

// Run uploads the file and polls until processing succeeds, fails, or the
// attempt budget runs out. Updates arrive on the returned channel, which is
// closed after the terminal update or on cancellation. Run may be called once.
func (t *Tracker) Run(ctx context.Context, filename string, file io.Reader, options *ProcessingOptions) <-chan Update {
	updates := make(chan Update, 16)

	t.mu.Lock()
	if t.started || t.canceled {
		t.mu.Unlock()
		close(updates)
		return updates
	}
	t.started = true
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	go t.run(ctx, updates, filename, file, options)
	return updates
}

// Cancel stops the tracker. No update is emitted once cancellation takes
// effect; the updates channel is closed.
func (t *Tracker) Cancel() {
	t.mu.Lock()
	t.canceled = true
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (t *Tracker) run(ctx context.Context, updates chan<- Update, filename string, file io.Reader, options *ProcessingOptions) {
	defer close(updates)

	emit := func(u Update) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case updates <- u:
			return true
		case <-ctx.Done():
			return false
		}
	}

	if !emit(Update{State: StateUploading}) {
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		emit(Update{State: StateError, Err: fmt.Errorf("read file: %w", err)})
		return
	}

	doc, ok := t.uploadWithRetry(ctx, emit, filename, data, options)
	if !ok {
		return
	}

	if !emit(Update{State: StateProcessing, Stage: processingStages[0], Progress: 90, DocumentID: doc.DocumentID, Document: &doc}) {
		return
	}

	consecutive := 0
	for attempt := 1; attempt <= t.opts.MaxAttempts; attempt++ {
		select {
		case <-time.After(t.opts.PollInterval):
		case <-ctx.Done():
			return
		}

		st, err := t.client.Status(ctx, doc.DocumentID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if isTransientPollError(err) {
				consecutive++
				if consecutive > t.opts.TransientLimit {
					emit(Update{State: StateError, DocumentID: doc.DocumentID, Err: err})
					return
				}
				continue
			}
			emit(Update{State: StateError, DocumentID: doc.DocumentID, Err: err})
			return
		}
		consecutive = 0

		if st.ProcessingError != nil {
			emit(Update{
				State:      StateError,
				DocumentID: doc.DocumentID,
				Status:     &st,
				Err:        &ProcessingFailedError{Reason: *st.ProcessingError},
			})
			return
		}
		if st.Processed {
			emit(Update{State: StateSuccess, Progress: 100, DocumentID: doc.DocumentID, Status: &st})
			return
		}

		stage := processingStages[min(attempt, len(processingStages)-1)]
		if !emit(Update{State: StateProcessing, Stage: stage, Progress: 90, DocumentID: doc.DocumentID}) {
			return
		}
	}

	emit(Update{State: StateError, DocumentID: doc.DocumentID, Err: ErrPollTimeout})
}

// uploadWithRetry runs the upload with the client's transport retry policy,
// emitting fabricated 0-90 progress while each attempt is in flight. The
// server gives no upload progress events, so the bar is cosmetic.
func (t *Tracker) uploadWithRetry(ctx context.Context, emit func(Update) bool, filename string, data []byte, options *ProcessingOptions) (Document, bool) {
	type uploadResult struct {
		doc Document
		err error
	}

	for attempt := 0; ; attempt++ {
		resultCh := make(chan uploadResult, 1)
		go func() {
			doc, err := t.client.uploadOnce(ctx, filename, data, options)
			resultCh <- uploadResult{doc: doc, err: err}
		}()

		progress := 0
		var res uploadResult
	waitUpload:
		for {
			select {
			case res = <-resultCh:
				break waitUpload
			case <-ctx.Done():
				return Document{}, false
			case <-time.After(t.progressTick):
				if progress < 90 {
					progress += 15
					if progress > 90 {
						progress = 90
					}
					if !emit(Update{State: StateUploading, Progress: progress}) {
						return Document{}, false
					}
				}
			}
		}

		if res.err == nil {
			return res.doc, true
		}
		if !isTransportError(res.err) || attempt >= t.client.uploadRetries {
			emit(Update{State: StateError, Err: res.err})
			return Document{}, false
		}

		if !emit(Update{State: StateRetrying, Progress: progress}) {
			return Document{}, false
		}
		select {
		case <-time.After(t.client.retryDelay):
		case <-ctx.Done():
			return Document{}, false
		}
	}
}
