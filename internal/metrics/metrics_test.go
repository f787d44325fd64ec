package metrics

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(OrderTransitions.WithLabelValues("pending", "confirmed"))
	RecordTransition("pending", "confirmed")
	RecordTransition("pending", "confirmed")
	after := testutil.ToFloat64(OrderTransitions.WithLabelValues("pending", "confirmed"))
	if after-before != 2 {
		t.Errorf("transitions delta = %v, want 2", after-before)
	}
}

func TestRecordPublish(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		okDelta  float64
		errDelta float64
	}{
		{"success", nil, 1, 0},
		{"failure", errors.New("broker down"), 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok := testutil.ToFloat64(EventsPublished.WithLabelValues("new-order"))
			failed := testutil.ToFloat64(EventPublishFailures.WithLabelValues("new-order"))

			RecordPublish("new-order", tt.err)

			if d := testutil.ToFloat64(EventsPublished.WithLabelValues("new-order")) - ok; d != tt.okDelta {
				t.Errorf("published delta = %v, want %v", d, tt.okDelta)
			}
			if d := testutil.ToFloat64(EventPublishFailures.WithLabelValues("new-order")) - failed; d != tt.errDelta {
				t.Errorf("failures delta = %v, want %v", d, tt.errDelta)
			}
		})
	}
}

func TestRecordKOTPrint(t *testing.T) {
	before := testutil.ToFloat64(KOTPrints.WithLabelValues("true"))
	RecordKOTPrint(true)
	if d := testutil.ToFloat64(KOTPrints.WithLabelValues("true")) - before; d != 1 {
		t.Errorf("reprint delta = %v, want 1", d)
	}
}

func TestMiddlewareObservesRoute(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/orders/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	before := testutil.CollectAndCount(HTTPRequestDuration)
	resp, err := app.Test(httptest.NewRequest("GET", "/orders/42", nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got := testutil.CollectAndCount(HTTPRequestDuration); got < before || got == 0 {
		t.Errorf("histogram series = %d, want at least one", got)
	}
}
