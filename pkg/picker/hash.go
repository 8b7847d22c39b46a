package picker

import (
	"hash/crc32"

	"github.com/angeloszaimis/steer/pkg/steer"
)

type hashPicker[Req, Res any] struct {
	key func(req Req) string
}

func (h *hashPicker[Req, Res]) Pick(req Req, handlers []steer.Handler[Req, Res]) int {
	sum := crc32.ChecksumIEEE([]byte(h.key(req)))

	return int(sum % uint32(len(handlers)))
}

// Hash returns a picker that maps each request to a handler by hashing
// the string key extracts from it. Requests with the same key always land
// on the same handler as long as the handler set is the same, which gives
// session affinity for key choices like a client IP or a tenant ID.
func Hash[Req, Res any](key func(req Req) string) steer.Picker[Req, Res] {
	return &hashPicker[Req, Res]{key: key}
}
