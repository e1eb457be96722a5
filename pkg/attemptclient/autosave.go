package attemptclient

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultAutosaveInterval is the pause between the end of one save round
// and the start of the next.
const DefaultAutosaveInterval = 5 * time.Second

// ErrSessionCompleted is returned by Run once the server reports the
// session sealed.
var ErrSessionCompleted = errors.New("attempt session completed")

type pendingAnswer struct {
	answer  Answer
	version uint64
}

// AutoSaver sends queued answers in a non-overlapping loop. The next round
// starts only after the previous round's responses arrived. Navigate aborts
// the in-flight save instead of waiting for it.
type AutoSaver struct {
	client   *Client
	code     string
	interval time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	pending  map[string]pendingAnswer
	version  uint64
	inflight context.CancelFunc
	lastErr  error
	saved    int
}

// NewAutoSaver creates an AutoSaver for one session. interval <= 0 uses
// DefaultAutosaveInterval.
func (c *Client) NewAutoSaver(code string, interval time.Duration) *AutoSaver {
	if interval <= 0 {
		interval = DefaultAutosaveInterval
	}
	return &AutoSaver{
		client:   c,
		code:     code,
		interval: interval,
		log:      c.log.With().Str("component", "autosaver").Str("session_code", code).Logger(),
		pending:  make(map[string]pendingAnswer),
	}
}

// Queue records the latest answer for a question. Only the newest queued
// answer per question is sent.
func (a *AutoSaver) Queue(ans Answer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.version++
	a.pending[answerKey(ans)] = pendingAnswer{answer: ans, version: a.version}
}

// Pending returns the number of queued, unsent answers.
func (a *AutoSaver) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Saved returns the number of answers the server accepted.
func (a *AutoSaver) Saved() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saved
}

// Err returns the last save error, if any.
func (a *AutoSaver) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Run saves until ctx is done or the session is sealed.
func (a *AutoSaver) Run(ctx context.Context) error {
	t := time.NewTimer(a.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}

		if completed := a.Flush(ctx); completed {
			return ErrSessionCompleted
		}
		t.Reset(a.interval)
	}
}

// Flush sends every queued answer, one request at a time. It reports
// whether the server said the session is sealed.
func (a *AutoSaver) Flush(ctx context.Context) bool {
	for _, p := range a.takePending() {
		if ctx.Err() != nil {
			a.requeue(p)
			continue
		}

		saveCtx, cancel := context.WithCancel(ctx)
		a.setInflight(cancel)
		out, err := a.client.SubmitAnswer(saveCtx, a.code, p.answer)
		a.setInflight(nil)
		superseded := err != nil && saveCtx.Err() != nil && ctx.Err() == nil
		cancel()

		switch {
		case superseded:
			a.log.Debug().Str("question_id", p.answer.QuestionID).Msg("Save superseded by navigation")
			a.requeue(p)
		case err != nil:
			a.log.Warn().Err(err).Str("question_id", p.answer.QuestionID).Msg("Autosave failed")
			a.setErr(err)
			if IsCode(err, CodeValidation) {
				continue
			}
			a.requeue(p)
		case out.Completed:
			return true
		default:
			a.mu.Lock()
			a.saved++
			a.lastErr = nil
			a.mu.Unlock()
		}
	}
	return false
}

// Navigate aborts any in-flight save and reports the new position.
func (a *AutoSaver) Navigate(ctx context.Context, nav Navigation) (*Outcome, error) {
	a.mu.Lock()
	if a.inflight != nil {
		a.inflight()
		a.inflight = nil
	}
	a.mu.Unlock()
	return a.client.Navigate(ctx, a.code, nav)
}

func (a *AutoSaver) takePending() []pendingAnswer {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]pendingAnswer, 0, len(a.pending))
	for _, p := range a.pending {
		out = append(out, p)
	}
	a.pending = make(map[string]pendingAnswer)
	slices.SortFunc(out, func(x, y pendingAnswer) int { return cmp.Compare(x.version, y.version) })
	return out
}

// requeue puts p back unless a newer answer for the same question was
// queued meanwhile.
func (a *AutoSaver) requeue(p pendingAnswer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := answerKey(p.answer)
	if cur, ok := a.pending[key]; ok && cur.version > p.version {
		return
	}
	a.pending[key] = p
}

func (a *AutoSaver) setInflight(cancel context.CancelFunc) {
	a.mu.Lock()
	a.inflight = cancel
	a.mu.Unlock()
}

func (a *AutoSaver) setErr(err error) {
	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()
}

func answerKey(ans Answer) string {
	return ans.SectionID + "/" + ans.QuestionID
}
