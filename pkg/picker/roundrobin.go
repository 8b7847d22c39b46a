package picker

import (
	"sync/atomic"

	"github.com/angeloszaimis/steer/pkg/steer"
)

type roundRobinPicker[Req, Res any] struct {
	current uint64
}

func (rb *roundRobinPicker[Req, Res]) Pick(_ Req, handlers []steer.Handler[Req, Res]) int {
	n := atomic.AddUint64(&rb.current, 1)

	return int((n - 1) % uint64(len(handlers)))
}

// RoundRobin returns a picker that cycles through handlers in order,
// ignoring the request.
func RoundRobin[Req, Res any]() steer.Picker[Req, Res] {
	return &roundRobinPicker[Req, Res]{
		current: 0,
	}
}
