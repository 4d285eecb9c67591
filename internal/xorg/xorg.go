// Package xorg controls keyboard indicators through the X11 command line tools
// xset, numlockx and xmodmap.
package xorg

import (
	"context"
	"errors"

	"github.com/smazurov/lockkeys/internal/callback"
	"github.com/smazurov/lockkeys/internal/keyboard"
	"github.com/smazurov/lockkeys/internal/process"
	"golang.org/x/sync/errgroup"
)

// Key names as reported by `xset q`.
const (
	CapsLock   = "Caps Lock"
	NumLock    = "Num Lock"
	ScrollLock = "Scroll Lock"
)

// Tools runs the X11 utilities through an Executor.
type Tools struct {
	exec    process.Executor
	prepare *callback.Once[context.Context, struct{}]
}

// New creates Tools using ex.
func New(ex process.Executor) *Tools {
	t := &Tools{exec: ex}
	t.prepare = callback.NewOnce(func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t.PrepareScrollLock(ctx)
	})
	return t
}

// RequiredTools lists the executables Tools needs in PATH.
func RequiredTools() []string {
	return []string{"xset", "numlockx", "xmodmap"}
}

// Query runs `xset q` and parses the indicator states.
func (t *Tools) Query(ctx context.Context) ([]keyboard.Status, error) {
	out, err := t.exec.Execute(ctx, "xset", "q")
	if err != nil {
		return nil, err
	}
	return keyboard.ParseStatus(out.Stdout)
}

// LED switches the indicator called name.
func (t *Tools) LED(ctx context.Context, name string, on bool) error {
	flag := "-led"
	if on {
		flag = "led"
	}
	_, err := t.exec.Execute(ctx, "xset", flag, "named", name)
	return err
}

// NumLockX switches Num Lock with numlockx.
func (t *Tools) NumLockX(ctx context.Context, on bool) error {
	_, err := t.exec.Execute(ctx, "numlockx", string(keyboard.StateOf(on)))
	return err
}

// PrepareScrollLock maps Scroll_Lock to mod3 so that its indicator can be driven.
func (t *Tools) PrepareScrollLock(ctx context.Context) error {
	_, err := t.exec.Execute(ctx, "xmodmap", "-e", "add mod3 = Scroll_Lock")
	return err
}

// prepareOnce runs PrepareScrollLock the first time only.
func (t *Tools) prepareOnce(ctx context.Context) error {
	_, err := t.prepare.Call(ctx)
	if errors.Is(err, callback.ErrAlreadyCalled) {
		return nil
	}
	return err
}

// NumLockKey switches the Num Lock indicator and the Num Lock modifier together.
func (t *Tools) NumLockKey() keyboard.Key {
	apply := func(on bool) keyboard.Action {
		return func(ctx context.Context) error {
			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return t.LED(ctx, NumLock, on) })
			g.Go(func() error { return t.NumLockX(ctx, on) })
			return g.Wait()
		}
	}
	return keyboard.Key{Name: NumLock, TurnOn: apply(true), TurnOff: apply(false)}
}

// ScrollLockKey prepares the keymap on first use, then switches the indicator.
func (t *Tools) ScrollLockKey() keyboard.Key {
	apply := func(on bool) keyboard.Action {
		return func(ctx context.Context) error {
			if err := t.prepareOnce(ctx); err != nil {
				return err
			}
			return t.LED(ctx, ScrollLock, on)
		}
	}
	return keyboard.Key{Name: ScrollLock, TurnOn: apply(true), TurnOff: apply(false)}
}

// Key switches the indicator called name with xset only.
func (t *Tools) Key(name string) keyboard.Key {
	return keyboard.Key{
		Name:    name,
		TurnOn:  func(ctx context.Context) error { return t.LED(ctx, name, true) },
		TurnOff: func(ctx context.Context) error { return t.LED(ctx, name, false) },
	}
}

// CapsLockKey switches the Caps Lock indicator.
func (t *Tools) CapsLockKey() keyboard.Key {
	return t.Key(CapsLock)
}

// Builtin returns the key called name when Tools knows how to drive it.
func (t *Tools) Builtin(name string) (keyboard.Key, bool) {
	switch name {
	case NumLock:
		return t.NumLockKey(), true
	case ScrollLock:
		return t.ScrollLockKey(), true
	case CapsLock:
		return t.CapsLockKey(), true
	}
	return keyboard.Key{}, false
}
