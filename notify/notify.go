// Publication of committed rows to Kafka.
//
// Every row goes to the topic <prefix>.<tag> with the run number as key and a JSON object as value:
//
//   {"tag": "end_of_squeeze", "run": 8000, "features": {"timestamp": 1657535112, ...}}
//
// The record carries a "pass" header with the identifier of the engine pass that committed it, so
// that consumers can group the rows of one pass.

package notify

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/twmb/franz-go/pkg/kgo"

	"ecloudframes/engine"
	"ecloudframes/store"
)

const PassHeader = "pass"

// The part of the Kafka client the publisher uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

var _ Producer = (*kgo.Client)(nil)

type Publisher struct {
	producer Producer
	prefix   string
	client   *kgo.Client // nil if the producer was supplied
}

var _ engine.Notifier = (*Publisher)(nil)

// Connect to the broker.  The client connects lazily, so an unreachable broker shows up as
// publication errors later.
func Dial(broker, prefix string) (*Publisher, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, err
	}
	return &Publisher{producer: cl, prefix: prefix, client: cl}, nil
}

func NewPublisher(producer Producer, prefix string) *Publisher {
	return &Publisher{producer: producer, prefix: prefix}
}

func (p *Publisher) Close() {
	if p.client != nil {
		p.client.Close()
	}
}

func Topic(prefix, tag string) string {
	return prefix + "." + tag
}

type message struct {
	Tag      string    `json:"tag"`
	Run      int64     `json:"run"`
	Features store.Row `json:"features"`
}

func (p *Publisher) Records(pass string, rows []engine.CommittedRow) ([]*kgo.Record, error) {
	records := make([]*kgo.Record, 0, len(rows))
	for _, r := range rows {
		value, err := json.Marshal(message{Tag: r.Tag, Run: r.Run, Features: r.Row})
		if err != nil {
			return nil, err
		}
		records = append(records, &kgo.Record{
			Topic:   Topic(p.prefix, r.Tag),
			Key:     []byte(strconv.FormatInt(r.Run, 10)),
			Value:   value,
			Headers: []kgo.RecordHeader{{Key: PassHeader, Value: []byte(pass)}},
		})
	}
	return records, nil
}

// Publish the rows and wait for the broker to acknowledge them.
func (p *Publisher) Publish(ctx context.Context, pass string, rows []engine.CommittedRow) error {
	if len(rows) == 0 {
		return nil
	}
	records, err := p.Records(pass, rows)
	if err != nil {
		return err
	}
	return p.producer.ProduceSync(ctx, records...).FirstErr()
}
