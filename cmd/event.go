package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/frahmantamala/expense-tracker/internal/core/events"
	"github.com/frahmantamala/expense-tracker/internal/expense"
	"github.com/frahmantamala/expense-tracker/internal/notification"
	"github.com/frahmantamala/expense-tracker/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish sample expense events to check notification delivery`,
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [new-expense|status-change|expense-closed]",
	Short:     "Publish a sample expense event",
	Long:      `Build a sample expense event and dispatch its notifications through the configured transport`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{events.KindNewExpense, events.KindStatusChange, events.KindExpenseClosed},
	Run: func(cmd *cobra.Command, args []string) {
		publishTestEvent(args[0])
	},
}

var eventSubmitter string

func sampleEvent(kind, submitter string) (*events.ExpenseEvent, error) {
	now := time.Now()
	snapshot := events.ExpenseSnapshot{
		ID:        fmt.Sprintf("test-%d", now.Unix()),
		User:      events.SubmitterSnapshot{Name: "Test Submitter", Email: submitter, Department: "Operations"},
		Date:      now.Format("2006-01-02"),
		Purpose:   "Notification delivery check",
		Hotel:     120,
		Meals:     35.5,
		Total:     155.5,
		Status:    string(expense.StatusUnderReview),
		CreatedAt: now,
	}
	actionBy := events.StampSnapshot{Name: "CLI", Email: "cli@localhost", Timestamp: now}

	switch kind {
	case events.KindNewExpense:
		return events.NewExpenseSubmittedEvent(snapshot), nil
	case events.KindStatusChange:
		snapshot.Status = string(expense.StatusApprove)
		return events.NewExpenseStatusChangedEvent(snapshot, string(expense.StatusUnderReview), snapshot.Status, actionBy), nil
	case events.KindExpenseClosed:
		snapshot.Status = string(expense.StatusFinalApproved)
		return events.NewExpenseClosedEvent(snapshot, actionBy, snapshot.Total), nil
	default:
		return nil, fmt.Errorf("unknown event kind %q", kind)
	}
}

func publishTestEvent(kind string) {
	cfg, err := loadConfigAndLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	lg := logger.Component("event")

	event, err := sampleEvent(kind, eventSubmitter)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	sender, closeSender, err := newSender(cfg, lg)
	if err != nil {
		lg.Error("failed to build notification transport", "error", err)
		os.Exit(1)
	}

	lg.Info("publishing test event", "event_type", event.EventType(), "event_id", event.EventID())

	report := notification.NewDispatcher(sender, notificationAdmins(cfg), lg).Dispatch(context.Background(), event.WirePayload())
	for _, f := range report.Failures {
		lg.Error("notification failed", "to", f.To, "error", f.Err)
	}
	lg.Info("test event published", "attempted", report.Attempted, "sent", report.Sent)
	if err := closeSender(); err != nil {
		lg.Warn("failed to close notification transport", "error", err)
	}
	if report.Failed() {
		os.Exit(1)
	}
}

func init() {
	publishEventCmd.Flags().StringVar(&eventSubmitter, "submitter", "employee@example.com", "submitter email on the sample expense")

	eventCmd.AddCommand(publishEventCmd)
}
