package health

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type rabbitIndicator struct {
	url string
}

// Rabbit dials the broker at url, reads its version and closes the
// connection again.  No connection is held between checks.
func Rabbit(url string) Indicator {
	return rabbitIndicator{url: url}
}

func (rabbitIndicator) Name() string { return "rabbit" }

func (r rabbitIndicator) Check(ctx context.Context) Health {
	timeout := DefaultTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
	}
	conn, err := amqp.DialConfig(r.url, amqp.Config{Dial: amqp.DefaultDial(timeout)})
	if err != nil {
		return Down(fmt.Errorf("dial broker: %w", err), nil)
	}
	defer func() { _ = conn.Close() }()

	details := map[string]any{}
	if v, ok := conn.Properties["version"]; ok {
		details["version"] = fmt.Sprint(v)
	}
	return Up(details)
}
