package steer

// Picker decides which handler a request corresponds to. It returns an
// index into the handler slice passed to New; the order of that slice is
// therefore significant. Returning an index out of range is a contract
// violation and makes Invoke panic.
//
// Pickers may be stateless functions or stateful objects that inspect the
// handler slice. Steer never caches a pick.
type Picker[Req, Res any] interface {
	Pick(req Req, handlers []Handler[Req, Res]) int
}

// PickerFunc adapts a plain function to the Picker interface.
type PickerFunc[Req, Res any] func(req Req, handlers []Handler[Req, Res]) int

func (f PickerFunc[Req, Res]) Pick(req Req, handlers []Handler[Req, Res]) int {
	return f(req, handlers)
}
