// The watch daemon keeps the store up to date by running an engine pass at startup and whenever a
// trigger record arrives on the trigger topic.  The trigger's content is ignored, a pass always
// considers the whole catalog, so several triggers that arrive together cause one pass.
//
// The daemon is the only writer of the store while it runs.

package watch

import (
	"context"
	"errors"
	"os"

	"github.com/twmb/franz-go/pkg/kgo"

	. "ecloudframes/common"
)

// A Trigger blocks until at least one trigger has arrived or ctx is done, and returns the number of
// triggers received.
type Trigger interface {
	Wait(ctx context.Context) (int, error)
}

// Returned by a Trigger that can never deliver again.  The daemon stops.
var ErrTriggerClosed = errors.New("Trigger closed")

type Daemon struct {
	Trigger Trigger

	// Run one pass.  An error is logged and the daemon carries on.
	Pass func(ctx context.Context) error
}

// Run until ctx is done or the trigger is closed.  A panic in a pass is logged and the daemon
// resumes waiting.  The result is ErrTriggerClosed if the trigger went away, otherwise nil.
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var closed error
	d.pass(ctx)
	Forever(ctx, func(ctx context.Context) {
		if err := d.step(ctx); err != nil {
			closed = err
			cancel()
		}
	}, os.Stderr)
	return closed
}

// The error is non-nil only if the trigger is closed.
func (d *Daemon) step(ctx context.Context) error {
	n, err := d.Trigger.Wait(ctx)
	if ctx.Err() != nil {
		return nil
	}
	if errors.Is(err, ErrTriggerClosed) {
		return err
	}
	if err != nil {
		Log.Warningf("Trigger: %v", err)
	}
	if n > 0 {
		Log.Infof("%d triggers received", n)
		d.pass(ctx)
	}
	return nil
}

func (d *Daemon) pass(ctx context.Context) {
	if err := d.Pass(ctx); err != nil && ctx.Err() == nil {
		Log.Errorf("Pass failed: %v", err)
	}
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Kafka triggers.

type KafkaTrigger struct {
	client *kgo.Client
}

var _ Trigger = (*KafkaTrigger)(nil)

func NewKafkaTrigger(broker, topic, group string) (*KafkaTrigger, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaTrigger{client: cl}, nil
}

func (kt *KafkaTrigger) Close() {
	kt.client.Close()
}

func (kt *KafkaTrigger) Wait(ctx context.Context) (int, error) {
	fetches := kt.client.PollFetches(ctx)
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	if fetches.IsClientClosed() {
		return 0, ErrTriggerClosed
	}
	// All errors are retried internally when fetching, what surfaces here is worth logging but not
	// fatal.
	for _, fe := range fetches.Errors() {
		Log.Warningf("Fetching %s/%d: %v", fe.Topic, fe.Partition, fe.Err)
	}
	n := fetches.NumRecords()
	if err := kt.client.CommitUncommittedOffsets(ctx); err != nil {
		return n, err
	}
	return n, nil
}
