package common

import (
	"context"
	"fmt"
	"io"
)

// Invoke thunk repeatedly until ctx is done, protecting it against panics.  Panic messages are
// printed to `log`.  The thunk is expected to block for a while (eg on a poll) so that the loop does
// not spin.

func Forever(ctx context.Context, thunk func(context.Context), log io.Writer) {
	t2 := func() {
		defer func() {
			if msg := recover(); msg != nil {
				fmt.Fprintln(log, "PANIC:", msg)
			}
		}()
		thunk(ctx)
	}
	for ctx.Err() == nil {
		t2()
	}
}
