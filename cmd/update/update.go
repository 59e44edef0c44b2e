package update

import (
	"context"
	"fmt"
	"io"

	"ecloudframes/catalog"
	"ecloudframes/channels"
	. "ecloudframes/command"
	. "ecloudframes/common"
	"ecloudframes/config"
	"ecloudframes/engine"
	"ecloudframes/notify"
	"ecloudframes/store"
)

type UpdateCommand struct {
	VerboseArgs
	SourceArgs
	KafkaArgs
}

var _ Command = (*UpdateCommand)(nil)

func (uc *UpdateCommand) Summary() []string {
	return []string{
		"Extract the feature rows of every run that is not yet in the store, and persist the",
		"store after each run.  With a Kafka broker the new rows are also published.",
	}
}

func (uc *UpdateCommand) Add(fs *CLI) {
	uc.VerboseArgs.Add(fs)
	uc.SourceArgs.Add(fs)
	uc.KafkaArgs.Add(fs)
}

func (uc *UpdateCommand) Validate() error {
	if err := uc.VerboseArgs.Validate(); err != nil {
		return err
	}
	if err := uc.SourceArgs.Validate(); err != nil {
		return err
	}
	uc.KafkaArgs.Apply(uc.Config)
	return nil
}

func (uc *UpdateCommand) Perform(ctx context.Context, stdout, stderr io.Writer) error {
	summary, err := Update(ctx, uc.Config, uc.Verbose, nil)
	if summary != nil {
		fmt.Fprintln(stdout, summary)
	}
	if err != nil && ctx.Err() != nil {
		Log.Info("Interrupted, the store is consistent")
		return nil
	}
	return err
}

// Run one engine pass over a freshly loaded catalog and store.  If metrics is not nil it receives
// the engine metrics.  Shared with the watch verb.
func Update(ctx context.Context, cfg *config.Config, verbose bool, metrics *engine.Metrics) (*engine.Summary, error) {
	cat, err := catalog.LoadFolders(cfg.DataFolders)
	if err != nil {
		return nil, err
	}
	st, err := store.Load(cfg.StoreFile)
	if err != nil {
		return nil, err
	}
	e := engine.New(cfg, cat, &channels.FileLoader{Verbose: verbose}, st)
	e.Metrics = metrics
	if cfg.KafkaBroker != "" {
		p, err := notify.Dial(cfg.KafkaBroker, cfg.NotifyTopicPrefix)
		if err != nil {
			return nil, err
		}
		defer p.Close()
		e.Notifier = p
	}
	return e.Update(ctx)
}
