package httpapi

import "context"

// serverBaseCtx is canceled on process shutdown so in-flight generations
// stop instead of finishing into a closed listener.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process-level context handlers derive from.
// Passing nil resets to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts derives a context from primary that is additionally canceled
// when secondary is done. Values and deadline of primary are preserved.
func joinContexts(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(secondary, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
