package notification

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/expense-tracker/internal/core/events"
)

type Failure struct {
	To  string
	Err error
}

// Report summarizes one dispatch. A failed recipient never stops the others.
type Report struct {
	Attempted int
	Sent      int
	Failures  []Failure
}

func (r Report) Failed() bool {
	return len(r.Failures) > 0
}

type Dispatcher struct {
	sender Sender
	admins []string
	logger *slog.Logger
}

func NewDispatcher(sender Sender, adminEmails []string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		sender: sender,
		admins: adminEmails,
		logger: logger,
	}
}

func (d *Dispatcher) Dispatch(ctx context.Context, p events.Payload) Report {
	var report Report
	for _, msg := range Compose(p, d.admins) {
		report.Attempted++
		if err := d.sender.Send(ctx, msg); err != nil {
			d.logger.Error("failed to send notification",
				"error", err,
				"to", msg.To,
				"kind", msg.Kind,
				"expense_id", msg.ExpenseID)
			report.Failures = append(report.Failures, Failure{To: msg.To, Err: err})
			continue
		}
		report.Sent++
	}

	d.logger.Info("notification dispatched",
		"kind", p.Type,
		"expense_id", p.Expense.ID,
		"sent", report.Sent,
		"failed", len(report.Failures))
	return report
}

// HandleEvent is the bus subscription. Delivery problems are logged and
// never returned to the bus.
func (d *Dispatcher) HandleEvent(ctx context.Context, event events.Event) error {
	expenseEvent, ok := event.(*events.ExpenseEvent)
	if !ok {
		d.logger.Warn("ignoring non-expense event", "event_type", event.EventType())
		return nil
	}
	d.Dispatch(ctx, expenseEvent.WirePayload())
	return nil
}

func (d *Dispatcher) Register(bus *events.EventBus) {
	bus.SubscribeAll(events.ExpenseEventTypes, d.HandleEvent)
}
