package encounter

import "time"

// DefaultSettleMargin is added to the movement duration before a timed move is
// considered finished.
const DefaultSettleMargin = 100 * time.Millisecond

// TimedPresenter is a presenter whose moves report nothing when they end.
type TimedPresenter interface {
	SetAppearance(characterID int, skinName string, onComplete func(error))
	Enter()
	Move(dir Direction)
	ResetPosition()
}

// DelayedMotion adapts a TimedPresenter to CharacterPresenter by assuming a
// move has finished once its duration plus a settle margin has elapsed.
type DelayedMotion struct {
	TimedPresenter
	scheduler    Scheduler
	moveDuration time.Duration
	settleMargin time.Duration
	cancel       func()
}

var _ CharacterPresenter = (*DelayedMotion)(nil)

func NewDelayedMotion(p TimedPresenter, scheduler Scheduler, moveDuration, settleMargin time.Duration) *DelayedMotion {
	return &DelayedMotion{
		TimedPresenter: p,
		scheduler:      scheduler,
		moveDuration:   moveDuration,
		settleMargin:   settleMargin,
	}
}

// MoveTo cancels any pending completion, starts the move and schedules the
// new completion.
func (d *DelayedMotion) MoveTo(dir Direction, onComplete func()) {
	d.stop()
	d.TimedPresenter.Move(dir)
	d.cancel = d.scheduler.Schedule(d.moveDuration+d.settleMargin, func() {
		d.cancel = nil
		onComplete()
	})
}

// ResetPosition drops any pending completion before resetting.
func (d *DelayedMotion) ResetPosition() {
	d.stop()
	d.TimedPresenter.ResetPosition()
}

func (d *DelayedMotion) stop() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
