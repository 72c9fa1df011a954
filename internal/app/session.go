package app

import (
	"context"
	"sync"
	"time"

	"checkout-trainer/internal/domain"
	"checkout-trainer/internal/game"
)

// Machine is a game state machine driven by an ActiveSession.
type Machine interface {
	Handle(ev game.Event, now time.Time) error
	Tick(now time.Time)
	Abort(now time.Time) error
	Running() bool
	Terminal() bool
	Completed() int
	View() game.View
}

// ActiveSession owns one machine: it serializes events and timer ticks,
// fans snapshots out to subscribers and reports each completed round once.
type ActiveSession struct {
	id        string
	player    domain.Player
	mode      game.Mode
	createdAt time.Time
	now       func() time.Time
	interval  time.Duration

	mu          sync.Mutex
	machine     Machine
	completed   int
	onComplete  func(s *ActiveSession, m Machine)
	subscribers map[chan game.View]struct{}
	stopTicker  context.CancelFunc
	tickerDone  <-chan struct{}
	closed      bool
}

// NewActiveSession wraps machine. onComplete runs under the session lock each
// time the machine finishes a round; it must not block.
func NewActiveSession(id string, player domain.Player, mode game.Mode, machine Machine, now func() time.Time, interval time.Duration, onComplete func(*ActiveSession, Machine)) *ActiveSession {
	return &ActiveSession{
		id:          id,
		player:      player,
		mode:        mode,
		createdAt:   now(),
		now:         now,
		interval:    interval,
		machine:     machine,
		onComplete:  onComplete,
		subscribers: make(map[chan game.View]struct{}),
	}
}

func (s *ActiveSession) ID() string            { return s.id }
func (s *ActiveSession) Player() domain.Player { return s.player }
func (s *ActiveSession) Mode() game.Mode       { return s.mode }

// CreatedAt is when the session was registered.
func (s *ActiveSession) CreatedAt() time.Time { return s.createdAt }

// Handle applies a player event and returns the resulting snapshot.
func (s *ActiveSession) Handle(ev game.Event) (game.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return s.machine.View(), domain.ErrSessionClosed
	}
	err := s.machine.Handle(ev, s.now())
	return s.afterChangeLocked(), err
}

// Abort moves the machine to its discarded state.
func (s *ActiveSession) Abort() (game.View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.machine.Abort(s.now())
	view := s.afterChangeLocked()
	s.stopTickerLocked()
	return view, err
}

// View returns the current snapshot.
func (s *ActiveSession) View() game.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.View()
}

// Start kicks off timers for a machine that begins in a timed phase.
func (s *ActiveSession) Start() game.View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.afterChangeLocked()
}

func (s *ActiveSession) tick(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.machine.Tick(now)
	s.afterChangeLocked()
	if !s.machine.Running() {
		s.stopTicker = nil
		s.tickerDone = nil
		return false
	}
	return true
}

func (s *ActiveSession) afterChangeLocked() game.View {
	if n := s.machine.Completed(); n > s.completed {
		s.completed = n
		if s.onComplete != nil {
			s.onComplete(s, s.machine)
		}
	}
	if s.machine.Running() && s.tickerDone == nil && !s.closed {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopTicker = cancel
		s.tickerDone = game.RunTicker(ctx, s.interval, s.now, s.tick)
	}
	return s.broadcastLocked()
}

func (s *ActiveSession) stopTickerLocked() <-chan struct{} {
	done := s.tickerDone
	if s.stopTicker != nil {
		s.stopTicker()
	}
	s.stopTicker = nil
	s.tickerDone = nil
	return done
}

// Close stops timers and closes every subscription. It waits for the ticker
// goroutine to exit.
func (s *ActiveSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	done := s.stopTickerLocked()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
	s.mu.Unlock()

	if done != nil {
		<-done
	}
}

// TickerRunning reports whether a timer goroutine is live.
func (s *ActiveSession) TickerRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickerDone != nil
}

func (s *ActiveSession) subscribe() (<-chan game.View, func()) {
	ch := make(chan game.View, 8)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subscribers[ch] = struct{}{}
	ch <- s.machine.View()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *ActiveSession) broadcastLocked() game.View {
	view := s.machine.View()
	for ch := range s.subscribers {
		select {
		case ch <- view:
		default:
			// drop the oldest snapshot so a slow client never blocks the session
			select {
			case <-ch:
			default:
			}
			ch <- view
		}
	}
	return view
}
