package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sleuth/sleuth-agent/internal/cloud"
	"github.com/sleuth/sleuth-agent/internal/intake"
	"github.com/sleuth/sleuth-agent/internal/logging"
	"github.com/sleuth/sleuth-agent/internal/render"
	"github.com/sleuth/sleuth-agent/internal/view"
)

// User-facing texts.
const (
	PromptText           = "الرجاء سحب وإفلات ملف فيديو أو النقر هنا للتحميل"
	stagedTextPrefix     = "الملف المحدد: "
	msgInvalidVideo      = "الرجاء تحديد ملف فيديو صالح."
	msgSingleFile        = "الرجاء تحديد ملف فيديو واحد فقط."
	msgNothingStaged     = "الرجاء تحديد ملف فيديو للتحميل."
	msgAnalysisSucceeded = "تم تحليل الفيديو بنجاح!"
	msgGenericFailure    = "حدث خطأ غير متوقع."
	msgTransportPrefix   = "خطأ في الاتصال بالخادم: "
	msgAnalysisPrefix    = "خطأ في التحليل: "
)

var errEmptyResponse = errors.New("empty analysis response")

// Config wires the orchestrator's collaborators.
type Config struct {
	Client   cloud.Client
	Renderer *render.Renderer
	Router   *view.Router
	Recorder Recorder
	Logger   *slog.Logger
	// Timeout bounds a single upload; zero means no bound.
	Timeout time.Duration
	Now     func() time.Time
}

// Outcome is the terminal result of one submission.
type Outcome struct {
	AttemptID string
	Phase     Phase
	Result    *cloud.AnalysisResult
	Fragments *render.Fragments
	Message   string
	Err       error
}

// Snapshot is a read-only copy of the session for presentation.
type Snapshot struct {
	Phase         Phase              `json:"phase"`
	AttemptID     string             `json:"attempt_id,omitempty"`
	Staged        *intake.StagedFile `json:"staged,omitempty"`
	Display       string             `json:"display"`
	SubmitEnabled bool               `json:"submit_enabled"`
	ActivePane    view.PaneID        `json:"active_pane"`
	Panes         []view.Pane        `json:"panes"`
	Notices       []Notice           `json:"notices"`
	Error         string             `json:"error,omitempty"`
	Results       *render.Fragments  `json:"results,omitempty"`
}

// Orchestrator is the only owner of the upload state. All transitions are
// applied under one lock; the network exchange runs outside it.
type Orchestrator struct {
	client   cloud.Client
	renderer *render.Renderer
	router   *view.Router
	recorder Recorder
	logger   *slog.Logger
	timeout  time.Duration
	now      func() time.Time

	// inflight guards the request independently of the phase check so a
	// bypassed UI affordance still cannot start a second upload.
	inflight atomic.Bool

	mu        sync.Mutex
	state     State
	display   string
	attemptID string
	results   *render.Fragments
	notices   *notices
	listeners []func(Snapshot)
}

func New(cfg Config) *Orchestrator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = nopRecorder{}
	}
	router := cfg.Router
	if router == nil {
		router = view.NewRouter(view.DefaultPanes())
	}
	renderer := cfg.Renderer
	if renderer == nil {
		renderer = render.New("")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Orchestrator{
		client:   cfg.Client,
		renderer: renderer,
		router:   router,
		recorder: recorder,
		logger:   logging.WithComponent(logger, "session"),
		timeout:  cfg.Timeout,
		now:      now,
		state:    State{Phase: PhaseIdle},
		display:  PromptText,
		notices:  newNotices(NoticeTTL, now),
	}
}

// Router returns the pane router the orchestrator drives.
func (o *Orchestrator) Router() *view.Router {
	return o.router
}

// OnChange registers fn to receive a snapshot after every transition.
func (o *Orchestrator) OnChange(fn func(Snapshot)) {
	o.mu.Lock()
	o.listeners = append(o.listeners, fn)
	o.mu.Unlock()
}

// Stage validates candidates from either entry point and, when exactly one
// video is offered, replaces the staged file. A rejected selection leaves the
// current state untouched.
func (o *Orchestrator) Stage(origin intake.Origin, candidates []intake.Candidate) (intake.StagedFile, error) {
	o.mu.Lock()

	if o.inflight.Load() {
		o.mu.Unlock()
		return intake.StagedFile{}, ErrSubmitInFlight
	}

	file, err := intake.Validate(origin, candidates)
	if err != nil {
		switch {
		case errors.Is(err, intake.ErrNoCandidate):
		case errors.Is(err, intake.ErrMultipleFiles):
			o.notices.show(NoticeError, msgSingleFile)
		default:
			o.notices.show(NoticeError, msgInvalidVideo)
		}
		o.mu.Unlock()
		o.logger.Info("selection rejected", "origin", origin, "error", err)
		o.notify()
		return intake.StagedFile{}, err
	}

	next, err := Transition(o.state, StageEvent{File: file})
	if err != nil {
		o.mu.Unlock()
		return intake.StagedFile{}, err
	}
	o.state = next
	o.display = stagedTextPrefix + file.Name
	o.results = nil
	_ = o.router.Activate(view.PaneIntake)
	o.mu.Unlock()

	o.logger.Info("file staged", "origin", origin, "filename", file.Name, "mime_type", file.MIMEType)
	o.notify()
	return file, nil
}

// Submit starts the upload and waits for it to finish.
func (o *Orchestrator) Submit(ctx context.Context) (Outcome, error) {
	done, err := o.SubmitAsync(ctx)
	if err != nil {
		return Outcome{}, err
	}
	out := <-done
	return out, out.Err
}

// SubmitAsync applies the Staged -> InFlight transition and returns once the
// request has been handed off. It is the only path that issues a request;
// while one is in flight it returns ErrSubmitInFlight without side effects.
// The request ignores ctx cancellation and is bounded by the configured timeout.
func (o *Orchestrator) SubmitAsync(ctx context.Context) (<-chan Outcome, error) {
	o.mu.Lock()

	if !o.inflight.CompareAndSwap(false, true) {
		o.mu.Unlock()
		return nil, ErrSubmitInFlight
	}

	next, err := Transition(o.state, SubmitEvent{})
	if err != nil {
		o.inflight.Store(false)
		if errors.Is(err, ErrNothingStaged) {
			o.notices.show(NoticeError, msgNothingStaged)
		}
		o.mu.Unlock()
		o.notify()
		return nil, err
	}

	o.state = next
	o.attemptID = uuid.NewString()
	o.display = PromptText
	_ = o.router.Activate(view.PaneLoading)

	staged := *next.Staged
	attempt := Attempt{
		ID:        o.attemptID,
		Filename:  staged.Name,
		MIMEType:  staged.MIMEType,
		Size:      staged.Size,
		Phase:     PhaseInFlight,
		StartedAt: o.now(),
	}
	o.mu.Unlock()

	logging.WithAttemptID(o.logger, attempt.ID).Info("upload started", logging.Video(staged.Name, staged.MIMEType, staged.Size))
	o.recorder.AttemptStarted(context.WithoutCancel(ctx), attempt)
	o.notify()

	done := make(chan Outcome, 1)
	go func() {
		done <- o.run(context.WithoutCancel(ctx), attempt, staged)
		close(done)
	}()
	return done, nil
}

func (o *Orchestrator) run(ctx context.Context, attempt Attempt, staged intake.StagedFile) Outcome {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	result, err := o.client.Analyze(ctx, staged)
	if err == nil && result == nil {
		err = errEmptyResponse
	}
	return o.complete(ctx, attempt, result, err)
}

func (o *Orchestrator) complete(ctx context.Context, attempt Attempt, result *cloud.AnalysisResult, callErr error) Outcome {
	logger := logging.WithAttemptID(o.logger, attempt.ID)
	out := Outcome{AttemptID: attempt.ID, Result: result, Err: callErr}

	o.mu.Lock()
	if callErr == nil {
		frags := o.renderer.Render(result)
		next, err := Transition(o.state, SucceededEvent{Result: result})
		if err != nil {
			// unreachable while inflight holds the state in InFlight
			logger.Error("dropping response", "error", err)
		} else {
			o.state = next
		}
		o.results = &frags
		_ = o.router.Activate(view.PaneResults)
		o.notices.show(NoticeSuccess, msgAnalysisSucceeded)
		out.Phase = PhaseSucceeded
		out.Fragments = &frags
		attempt.Score = result.QualityAnalysis.Score
	} else {
		message, noticeText := failureMessages(callErr)
		next, err := Transition(o.state, FailedEvent{Message: message})
		if err != nil {
			logger.Error("dropping failure", "error", err)
		} else {
			o.state = next
		}
		o.results = nil
		_ = o.router.Activate(view.PaneIntake)
		o.notices.show(NoticeError, noticeText)
		out.Phase = PhaseFailed
		out.Message = message
	}
	o.inflight.Store(false)
	o.mu.Unlock()

	attempt.Phase = out.Phase
	attempt.Message = out.Message
	attempt.FinishedAt = o.now()

	if callErr != nil {
		logger.Warn("upload failed", "error", callErr, "duration_ms", attempt.Duration().Milliseconds())
	} else {
		logger.Info("upload succeeded", "score", attempt.Score, "duration_ms", attempt.Duration().Milliseconds())
	}

	o.recorder.AttemptFinished(ctx, attempt)
	o.notify()
	return out
}

// failureMessages returns the state message and the notice text for an
// upload error.
func failureMessages(err error) (message, notice string) {
	var appErr *cloud.ApplicationError
	var tErr *cloud.TransportError
	switch {
	case errors.As(err, &appErr):
		if appErr.HasDetail() {
			return appErr.Detail, msgAnalysisPrefix + appErr.Detail
		}
		return msgGenericFailure, msgAnalysisPrefix + msgGenericFailure
	case errors.As(err, &tErr):
		return tErr.Error(), msgTransportPrefix + tErr.Error()
	default:
		return err.Error(), msgAnalysisPrefix + err.Error()
	}
}

// State returns a copy of the current state value.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// InFlight reports whether an upload is outstanding.
func (o *Orchestrator) InFlight() bool {
	return o.inflight.Load()
}

func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	snap := Snapshot{
		Phase:         o.state.Phase,
		AttemptID:     o.attemptID,
		Display:       o.display,
		SubmitEnabled: o.state.Phase == PhaseStaged,
		ActivePane:    o.router.Active(),
		Panes:         o.router.Panes(),
		Notices:       o.notices.active(),
		Error:         o.state.Err,
	}
	if o.state.Phase == PhaseSucceeded {
		snap.Results = o.results
	}
	if o.state.Staged != nil {
		staged := *o.state.Staged
		snap.Staged = &staged
	}
	return snap
}

func (o *Orchestrator) notify() {
	o.mu.Lock()
	if len(o.listeners) == 0 {
		o.mu.Unlock()
		return
	}
	snap := o.snapshotLocked()
	listeners := make([]func(Snapshot), len(o.listeners))
	copy(listeners, o.listeners)
	o.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}
