package script

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceWT588/pkg/wt588"
)

// Target is what a script drives. *player.Player implements it.
type Target interface {
	Play(index uint8) error
	PlayList(list []uint8) error
	PlayLoop(index uint8) error
	PlayLoopAdvance(index uint8) error
	PlayLoopAll() error
	Stop() error
	SetVolume(vol uint8) error
	Update(index uint8, name string) error
	UpdateAll(name string) error
	Poll(ctx context.Context) error
}

// Runner executes programs against a target.
type Runner struct {
	Target Target
	// Delay implements sleep. It should be the delay the target's bus uses so
	// simulated and real time agree.
	Delay wt588.Delayer
	// Logger receives one debug line per step (optional).
	Logger *slog.Logger
	// OnStep is called before each step (optional).
	OnStep func(Step)
}

// Run executes prog step by step and stops at the first failure. ctx is
// checked between steps and bounds every wait.
func (r *Runner) Run(ctx context.Context, prog *Program) error {
	for _, step := range prog.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.OnStep != nil {
			r.OnStep(step)
		}
		if r.Logger != nil {
			r.Logger.Debug("script step", "pos", step.Pos.String(), "step", step.String())
		}
		if err := r.exec(ctx, step); err != nil {
			return fmt.Errorf("%s: %s: %w", step.Pos, step.Op, err)
		}
	}
	return nil
}

func (r *Runner) exec(ctx context.Context, s Step) error {
	t := r.Target
	switch s.Op {
	case OpVolume:
		return t.SetVolume(s.Value)
	case OpPlay:
		return t.Play(s.Value)
	case OpList:
		return t.PlayList(s.List)
	case OpLoop:
		return t.PlayLoop(s.Value)
	case OpLoopAdvance:
		return t.PlayLoopAdvance(s.Value)
	case OpLoopAll:
		return t.PlayLoopAll()
	case OpStop:
		return t.Stop()
	case OpWait:
		if s.Duration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.Duration)
			defer cancel()
		}
		return t.Poll(ctx)
	case OpSleep:
		r.Delay.Delay(s.Duration)
		return nil
	case OpUpdate:
		return t.Update(s.Value, s.Path)
	case OpUpdateAll:
		return t.UpdateAll(s.Path)
	}
	return fmt.Errorf("unknown op %v", s.Op)
}
