package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"household_finance/internal/app"
	"household_finance/internal/infra/logger"

	"github.com/google/uuid"
)

const testKey = "secret-key"

type runnerStub struct {
	summary app.TickSummary
	err     error
	calls   int
}

func (r *runnerStub) RunSchedulerTickAll(ctx context.Context) error {
	_, err := r.RunTick(ctx)
	return err
}

func (r *runnerStub) RunTick(ctx context.Context) (app.TickSummary, error) {
	r.calls++
	return r.summary, r.err
}

type materializeCall struct {
	seriesID uuid.UUID
	opts     app.MaterializeOptions
}

type materializerStub struct {
	calls  []materializeCall
	sweeps int
	err    error
}

func (m *materializerStub) MaterializeOccurrences(ctx context.Context, seriesID uuid.UUID, opts app.MaterializeOptions) error {
	m.calls = append(m.calls, materializeCall{seriesID: seriesID, opts: opts})
	return m.err
}

func (m *materializerStub) MaterializeAllActive(ctx context.Context) error {
	m.sweeps++
	return m.err
}

func newTestServer(runner *runnerStub, mat *materializerStub) http.Handler {
	return NewRouter(NewHandler(runner, mat, logger.Discard()), testKey)
}

func doRequest(t *testing.T, h http.Handler, method, path, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set("X-Internal-API-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := doRequest(t, newTestServer(&runnerStub{}, &materializerStub{}), http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestInternalRoutesRequireKey(t *testing.T) {
	runner := &runnerStub{}
	srv := newTestServer(runner, &materializerStub{})

	for _, key := range []string{"", "wrong"} {
		rec := doRequest(t, srv, http.MethodPost, "/internal/notifications/tick", key, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("key %q: expected 401, got %d", key, rec.Code)
		}
	}
	if runner.calls != 0 {
		t.Fatal("runner must not be called without a valid key")
	}
}

func TestInternalRoutesDisabledWithoutConfiguredKey(t *testing.T) {
	srv := NewRouter(NewHandler(&runnerStub{}, &materializerStub{}, logger.Discard()), "")
	rec := doRequest(t, srv, http.MethodPost, "/internal/notifications/tick", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRunTick(t *testing.T) {
	tests := []struct {
		name       string
		runner     *runnerStub
		wantStatus int
	}{
		{name: "success", runner: &runnerStub{summary: app.TickSummary{Sent: 2, Candidates: 3}}, wantStatus: http.StatusOK},
		{name: "failure", runner: &runnerStub{err: errors.New("db down")}, wantStatus: http.StatusInternalServerError},
		{name: "tick already running", runner: &runnerStub{err: app.ErrTickInProgress}, wantStatus: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, newTestServer(tt.runner, &materializerStub{}), http.MethodPost, "/internal/notifications/tick", testKey, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got app.TickSummary
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("invalid JSON response: %v", err)
			}
			if got.Sent != 2 || got.Candidates != 3 {
				t.Fatalf("unexpected summary %+v", got)
			}
		})
	}
}

func TestMaterializeSeries(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name       string
		path       string
		body       string
		err        error
		wantStatus int
		wantCalls  int
	}{
		{name: "no body", path: fmt.Sprintf("/internal/series/%s/materialize", id), wantStatus: http.StatusOK, wantCalls: 1},
		{name: "with options", path: fmt.Sprintf("/internal/series/%s/materialize", id), body: `{"horizon_months":12,"description":"IPTU"}`, wantStatus: http.StatusOK, wantCalls: 1},
		{name: "bad id", path: "/internal/series/not-a-uuid/materialize", wantStatus: http.StatusBadRequest},
		{name: "bad body", path: fmt.Sprintf("/internal/series/%s/materialize", id), body: `{`, wantStatus: http.StatusBadRequest},
		{name: "negative horizon", path: fmt.Sprintf("/internal/series/%s/materialize", id), body: `{"horizon_months":-1}`, wantStatus: http.StatusBadRequest},
		{name: "horizon above cap", path: fmt.Sprintf("/internal/series/%s/materialize", id), body: `{"horizon_months":100000000}`, wantStatus: http.StatusBadRequest},
		{name: "horizon at cap", path: fmt.Sprintf("/internal/series/%s/materialize", id), body: `{"horizon_months":120}`, wantStatus: http.StatusOK, wantCalls: 1},
		{name: "invalid interval", path: fmt.Sprintf("/internal/series/%s/materialize", id), err: app.ErrInvalidRecurrenceInterval, wantStatus: http.StatusUnprocessableEntity, wantCalls: 1},
		{name: "storage failure", path: fmt.Sprintf("/internal/series/%s/materialize", id), err: errors.New("timeout"), wantStatus: http.StatusInternalServerError, wantCalls: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mat := &materializerStub{err: tt.err}
			rec := doRequest(t, newTestServer(&runnerStub{}, mat), http.MethodPost, tt.path, testKey, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d (%s)", tt.wantStatus, rec.Code, rec.Body.String())
			}
			if len(mat.calls) != tt.wantCalls {
				t.Fatalf("expected %d materializer calls, got %d", tt.wantCalls, len(mat.calls))
			}
			if tt.name == "with options" {
				opts := mat.calls[0].opts
				if mat.calls[0].seriesID != id || opts.HorizonMonths != 12 || opts.Description != "IPTU" {
					t.Fatalf("unexpected call %+v", mat.calls[0])
				}
			}
		})
	}
}

func TestMaterializeAll(t *testing.T) {
	mat := &materializerStub{}
	rec := doRequest(t, newTestServer(&runnerStub{}, mat), http.MethodPost, "/internal/series/materialize", testKey, "")
	if rec.Code != http.StatusOK || mat.sweeps != 1 {
		t.Fatalf("expected one sweep with 200, got %d after %d sweeps", rec.Code, mat.sweeps)
	}
}
