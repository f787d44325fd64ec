package apperr

import (
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation("bad"), 400},
		{InsufficientStock("rice", 1, 2), 400},
		{NotFound("missing"), 404},
		{Forbidden("nope"), 403},
		{Conflict("dup"), 409},
		{Unauthorized("who"), 401},
		{&Error{Kind: KindInternal, Message: "x"}, 500},
	}
	for _, tt := range tests {
		t.Run(tt.err.Kind.String(), func(t *testing.T) {
			if got := tt.err.Status(); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrapAndKindOf(t *testing.T) {
	if Wrap(nil, "x") != nil {
		t.Error("Wrap(nil) should be nil")
	}

	nf := NotFound("order not found")
	if got := Wrap(nf, "load order"); got != error(nf) {
		t.Error("Wrap should pass taxonomy errors through")
	}

	cause := errors.New("connection reset")
	wrapped := Wrap(cause, "load order")
	if KindOf(wrapped) != KindInternal {
		t.Errorf("KindOf(wrapped) = %v", KindOf(wrapped))
	}
	if !errors.Is(wrapped, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}

	outer := fmt.Errorf("service: %w", Conflict("duplicate"))
	if !Is(outer, KindConflict) {
		t.Error("Is should see through fmt wrapping")
	}
	if Is(nil, KindInternal) {
		t.Error("Is(nil) should be false")
	}
}

func render(t *testing.T, production bool, handlerErr error) (int, map[string]any) {
	t.Helper()
	app := fiber.New(fiber.Config{ErrorHandler: Handler(production)})
	app.Get("/", func(c *fiber.Ctx) error { return handlerErr })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("body is not JSON: %s", raw)
	}
	return resp.StatusCode, body
}

func TestHandler_ValidationDetailsOutsideProduction(t *testing.T) {
	verr := Validation("invalid request")
	verr.Fields = map[string]string{"orderType": "orderType is required"}

	status, body := render(t, false, verr)
	if status != 400 {
		t.Fatalf("status = %d", status)
	}
	if body["message"] != "invalid request" {
		t.Errorf("message = %v", body["message"])
	}
	fields, ok := body["validation"].(map[string]any)
	if !ok || fields["orderType"] != "orderType is required" {
		t.Errorf("validation = %v", body["validation"])
	}

	_, prodBody := render(t, true, verr)
	if _, ok := prodBody["validation"]; ok {
		t.Error("production responses must not carry validation details")
	}
}

func TestHandler_InternalSuppressedInProduction(t *testing.T) {
	cause := errors.New("pq: relation does not exist")

	status, body := render(t, true, Wrap(cause, "could not load orders"))
	if status != 500 {
		t.Fatalf("status = %d", status)
	}
	if body["message"] != "internal server error" {
		t.Errorf("message = %v", body["message"])
	}
	if _, ok := body["error"]; ok {
		t.Error("production responses must not carry error detail")
	}

	_, devBody := render(t, false, Wrap(cause, "could not load orders"))
	if devBody["message"] != "could not load orders" || devBody["error"] != cause.Error() {
		t.Errorf("dev body = %v", devBody)
	}
}

func TestHandler_FiberErrorKeepsCode(t *testing.T) {
	status, body := render(t, true, fiber.NewError(fiber.StatusMethodNotAllowed, "nope"))
	if status != fiber.StatusMethodNotAllowed || body["message"] != "nope" {
		t.Errorf("got %d %v", status, body)
	}
}
