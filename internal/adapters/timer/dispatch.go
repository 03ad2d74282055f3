package timer

import "context"

// Dispatcher recibe los callbacks de disparo para correrlos fuera del hilo del timer.
// Lo implementa worker.Queue.
type Dispatcher interface {
	Submit(name string, fn func(ctx context.Context)) error
}
