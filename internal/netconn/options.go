package netconn

import (
	"time"

	"github.com/JamaalDavis/holochain-rust/internal/logging"
)

// Options configures a relay
type Options struct {
	// Logger receives lifecycle and failure logs (optional)
	Logger *logging.Logger

	// Metrics records relay activity (optional)
	Metrics *Metrics

	// MinPoll is the sleep after an iteration that did work
	MinPoll time.Duration

	// MaxPoll caps the sleep of an idle connection
	MaxPoll time.Duration

	// SharedThread lets the poll goroutine run on any OS thread instead of
	// locking it to a dedicated one
	SharedThread bool

	sleep func(time.Duration)
}

// DefaultOptions returns the default relay options
func DefaultOptions() *Options {
	return &Options{
		Logger:  logging.Nop(),
		MinPoll: DefaultMinPoll,
		MaxPoll: DefaultMaxPoll,
	}
}

// withDefaults returns a copy of o with unset fields filled in
func (o *Options) withDefaults() *Options {
	out := DefaultOptions()
	if o == nil {
		out.sleep = time.Sleep
		return out
	}
	*out = *o
	if out.Logger == nil {
		out.Logger = logging.Nop()
	}
	if out.MinPoll <= 0 {
		out.MinPoll = DefaultMinPoll
	}
	if out.MaxPoll <= 0 {
		out.MaxPoll = DefaultMaxPoll
	}
	if out.sleep == nil {
		out.sleep = time.Sleep
	}
	return out
}
