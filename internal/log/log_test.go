package log

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLogger_Component(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Component: ComponentFinance, Output: &buf})
	logger.Info("created", FieldTransactionID, "t1")

	out := buf.String()
	if !strings.Contains(out, "component=finance") || !strings.Contains(out, "transaction_id=t1") {
		t.Errorf("output = %q", out)
	}

	buf.Reset()
	logger.WithComponent(ComponentWorker).Info("sync")
	if !strings.Contains(buf.String(), "component=worker") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})
	logger.LogError(context.Background(), "save failed", errors.New("disk full"), OpCreate, NewFields().WithPeriod(2024, 7))

	out := buf.String()
	for _, want := range []string{"level=ERROR", `error="disk full"`, "operation=create", "year=2024", "month=7"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithError(nil).WithRequestID("").WithHTTPResponse(404, 12)
	if _, ok := f[FieldError]; ok {
		t.Error("nil error added a field")
	}
	if _, ok := f[FieldRequestID]; ok {
		t.Error("empty request id added a field")
	}
	if f[FieldSuccess] != false {
		t.Errorf("success = %v, want false", f[FieldSuccess])
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Errorf("ToSlice() length = %d", len(f.ToSlice()))
	}
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})
	requestID := func(context.Context) string { return "req_abc" }

	h := Middleware(logger, requestID)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	out := buf.String()
	if !strings.Contains(out, "request_id=req_abc") || !strings.Contains(out, "component=http") {
		t.Errorf("output = %q", out)
	}
}

func TestFromContext_Default(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != ComponentApp {
		t.Errorf("FromContext() = %+v", l)
	}
}
