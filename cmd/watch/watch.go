package watch

import (
	"context"
	"errors"
	"io"

	"github.com/prometheus/client_golang/prometheus"

	"ecloudframes/cmd/serve"
	"ecloudframes/cmd/update"
	. "ecloudframes/command"
	. "ecloudframes/common"
	"ecloudframes/engine"
	"ecloudframes/server"
	"ecloudframes/status"
	watchd "ecloudframes/watch"
)

const DefaultGroup = "ecloudframes-watch"

type WatchCommand struct {
	VerboseArgs
	SourceArgs
	KafkaArgs
	Group  string
	Port   int
	Syslog bool

	Version string
}

var _ Command = (*WatchCommand)(nil)

func (wc *WatchCommand) Summary() []string {
	return []string{
		"Run as a daemon: update the store at startup and whenever a record arrives on the",
		"trigger topic.  With -port, also serve the rows and the engine metrics over HTTP.",
	}
}

func (wc *WatchCommand) Add(fs *CLI) {
	wc.VerboseArgs.Add(fs)
	wc.SourceArgs.Add(fs)
	wc.KafkaArgs.Add(fs)
	fs.StringVar(&wc.Group, "group", DefaultGroup, "Consume triggers in the consumer group `name`")
	fs.IntVar(&wc.Port, "port", 0, "Serve rows and metrics on `port` [default: don't]")
	fs.BoolVar(&wc.Syslog, "syslog", false, "Also log to syslog")
}

func (wc *WatchCommand) Validate() error {
	if err := errors.Join(wc.VerboseArgs.Validate(), wc.SourceArgs.Validate()); err != nil {
		return err
	}
	wc.KafkaArgs.Apply(wc.Config)
	var es []error
	if wc.Config.KafkaBroker == "" {
		es = append(es, errors.New("A Kafka broker is required, use -kafka or the configuration file"))
	}
	if wc.Config.TriggerTopic == "" {
		es = append(es, errors.New("The trigger topic must not be empty"))
	}
	if wc.Group == "" {
		es = append(es, errors.New("-group must not be empty"))
	}
	if wc.Port < 0 || wc.Port > 65535 {
		es = append(es, errors.New("Bad -port"))
	}
	return errors.Join(es...)
}

func (wc *WatchCommand) Perform(ctx context.Context, _, _ io.Writer) error {
	if wc.Syslog {
		status.Start("ecloudframes")
	}
	cfg := wc.Config
	trigger, err := watchd.NewKafkaTrigger(cfg.KafkaBroker, cfg.TriggerTopic, wc.Group)
	if err != nil {
		return err
	}
	defer trigger.Close()

	metrics := engine.NewMetrics(prometheus.DefaultRegisterer)
	if wc.Port > 0 {
		handler := server.NewHandler(server.NewSnapshot(cfg.StoreFile), nil, wc.Version)
		go func() {
			if err := serve.Run(ctx, wc.Verbose, wc.Port, handler); err != nil {
				Log.Errorf("Server failed: %v", err)
			}
		}()
	}

	d := &watchd.Daemon{
		Trigger: trigger,
		Pass: func(ctx context.Context) error {
			_, err := update.Update(ctx, cfg, wc.Verbose, metrics)
			return err
		},
	}
	Log.Infof("Watching %s on %s", cfg.TriggerTopic, cfg.KafkaBroker)
	return d.Run(ctx)
}
