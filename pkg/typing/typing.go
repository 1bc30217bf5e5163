// Package typing coordinates the ephemeral "is typing" signal. The
// sending side throttles keystrokes into at most one start signal per
// interval and always tries to send a stop; the receiving side expires
// stale indicators on its own so a dropped stop can never wedge the UI.
package typing

import (
	"sync"
	"time"
)

const (
	// DefaultThrottle bounds start-signal volume regardless of keystroke rate.
	DefaultThrottle = 2 * time.Second
	// DefaultQuiet is the keystroke silence after which typing stops.
	DefaultQuiet = 2 * time.Second
)

// PublishFunc delivers a typing signal. Best-effort; the coordinator
// never inspects the outcome.
type PublishFunc func(isTyping bool)

// Notifier is the sender-side state machine for one (channel, user) pair.
type Notifier struct {
	mu       sync.Mutex
	throttle time.Duration
	quiet    time.Duration
	publish  PublishFunc

	typing   bool
	lastSent time.Time
	timer    *time.Timer
}

func NewNotifier(publish PublishFunc, throttle, quiet time.Duration) *Notifier {
	if throttle <= 0 {
		throttle = DefaultThrottle
	}
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Notifier{throttle: throttle, quiet: quiet, publish: publish}
}

// Keystroke registers input activity. A start signal goes out on the
// first keystroke after idle and then at most once per throttle window;
// every keystroke re-arms the quiet timeout.
func (n *Notifier) Keystroke() {
	n.mu.Lock()
	now := time.Now()
	send := !n.typing || now.Sub(n.lastSent) >= n.throttle
	if send {
		n.lastSent = now
	}
	n.typing = true
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.quiet, n.quietTimeout)
	n.mu.Unlock()

	if send {
		n.publish(true)
	}
}

// Blur transitions back to idle immediately, as on input focus loss.
func (n *Notifier) Blur() {
	n.stop()
}

func (n *Notifier) quietTimeout() {
	n.stop()
}

func (n *Notifier) stop() {
	n.mu.Lock()
	wasTyping := n.typing
	n.typing = false
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.mu.Unlock()

	if wasTyping {
		n.publish(false)
	}
}

type indicatorKey struct {
	channelID string
	userID    string
}

type indicator struct {
	userName string
	timer    *time.Timer
}

// IndicatorSet is the receiver-side view of who is typing where. Each
// entry self-expires after the safety window (2x the sender's quiet
// timeout) in case the stop signal was lost.
type IndicatorSet struct {
	mu     sync.Mutex
	expiry time.Duration
	active map[indicatorKey]*indicator
}

func NewIndicatorSet(quiet time.Duration) *IndicatorSet {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &IndicatorSet{
		expiry: 2 * quiet,
		active: make(map[indicatorKey]*indicator),
	}
}

// Apply folds in a user-typing signal.
func (s *IndicatorSet) Apply(channelID, userID, userName string, isTyping bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := indicatorKey{channelID: channelID, userID: userID}
	if cur, ok := s.active[key]; ok {
		cur.timer.Stop()
		delete(s.active, key)
	}
	if !isTyping {
		return
	}
	s.active[key] = &indicator{
		userName: userName,
		timer:    time.AfterFunc(s.expiry, func() { s.expire(key) }),
	}
}

func (s *IndicatorSet) expire(key indicatorKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, key)
}

// Typists returns the display names currently typing in a channel.
func (s *IndicatorSet) Typists(channelID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for key, ind := range s.active {
		if key.channelID == channelID {
			names = append(names, ind.userName)
		}
	}
	return names
}
