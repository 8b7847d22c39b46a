package picker

import (
	"math/rand"

	"github.com/angeloszaimis/steer/pkg/steer"
)

type randomPicker[Req, Res any] struct{}

func (r *randomPicker[Req, Res]) Pick(_ Req, handlers []steer.Handler[Req, Res]) int {
	return rand.Intn(len(handlers))
}

// Random returns a picker that selects a uniformly random handler,
// ignoring the request.
func Random[Req, Res any]() steer.Picker[Req, Res] {
	return &randomPicker[Req, Res]{}
}
