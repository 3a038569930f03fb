package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/testops/taskwatch/internal/api"
	"github.com/testops/taskwatch/internal/logging"
	"github.com/testops/taskwatch/internal/monitor"
	"github.com/testops/taskwatch/internal/task"
)

// Controller is the part of the monitor the UI drives.
type Controller interface {
	Watch() (<-chan monitor.Snapshot, func())
	Select(id string) error
	Deselect() error
	SetFilter(f task.State) error
	DismissError() error
	Refresh() error
	Resume(ctx context.Context, id string) (*api.ResumeResponse, error)
}

// Runner connects the TUI to a monitor: snapshots flow in, key presses are
// turned into monitor commands.
type Runner struct {
	tui      *TUI
	ctl      Controller
	notifier *Notifier
	log      *logging.Logger
}

// NewRunner creates a new Runner for the given TUI and controller.
func NewRunner(tui *TUI, ctl Controller, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.Default()
	}
	return &Runner{
		tui:      tui,
		ctl:      ctl,
		notifier: NewNotifier(tui.out),
		log:      log.Component("tui"),
	}
}

// Run executes the TUI event loop until the user quits, the monitor stops or
// ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	snaps, cancel := r.ctl.Watch()
	defer cancel()

	term := r.tui.terminal
	if err := term.EnterRaw(); err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer term.ExitRaw()
	term.EnterAltScreen()
	defer term.ExitAltScreen()
	term.HideCursor()
	defer term.ShowCursor()

	r.tui.setRunning(true)
	defer r.tui.setRunning(false)

	r.tui.keyReader = NewKeyReader(term)
	term.Clear()
	r.tui.Update()

	keyCh := make(chan KeyEvent, 10)
	keyErr := make(chan error, 1)
	go func() {
		for {
			ev, err := r.tui.keyReader.ReadKey()
			if err != nil {
				keyErr <- err
				return
			}
			select {
			case keyCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-keyErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err

		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			r.apply(snap)

		case ev := <-keyCh:
			action := r.tui.handleKeyEvent(ev)
			if action.Action == ActionQuit {
				return nil
			}
			if err := r.handleAction(ctx, action); err != nil {
				r.log.Warn("failed to handle TUI action", "error", err, "action", action.Action)
			}
			r.tui.Update()
		}
	}
}

// apply shows snap and notifies on transitions of the selected task.
func (r *Runner) apply(snap monitor.Snapshot) {
	prev := r.tui.Snapshot()
	r.tui.SetSnapshot(snap)
	if reason := TransitionReason(prev, snap); reason != NotifyReasonNone {
		if err := r.notifier.NotifyForReason(reason, snap.SelectedID, r.tui.IsRunning()); err != nil {
			r.log.Debug("notification failed", "error", err)
		}
	}
	r.tui.Update()
}

// handleAction converts a TUI action to a monitor command.
func (r *Runner) handleAction(ctx context.Context, action ActionEvent) error {
	switch action.Action {
	case ActionSelect:
		return r.ctl.Select(action.TaskID)
	case ActionDeselect:
		return r.ctl.Deselect()
	case ActionFilter:
		return r.ctl.SetFilter(action.Filter)
	case ActionDismiss:
		return r.ctl.DismissError()
	case ActionRefresh:
		return r.ctl.Refresh()
	case ActionResume:
		// The request blocks on the network; its outcome reaches the screen
		// through the next snapshot.
		go func() {
			if _, err := r.ctl.Resume(ctx, action.TaskID); err != nil {
				r.log.Debug("resume failed", "task", action.TaskID, "error", err)
			}
		}()
		return nil
	default:
		return nil
	}
}
