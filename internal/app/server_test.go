package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wollering/CTF-Assessment-Engine/internal/assessment"
	"github.com/Wollering/CTF-Assessment-Engine/internal/fault"
)

type fakeRunner struct {
	result  *assessment.Result
	err     error
	lastReq assessment.Request
}

func (f *fakeRunner) Run(_ context.Context, req assessment.Request) (*assessment.Result, error) {
	f.lastReq = req
	return f.result, f.err
}

func testApp(runner Runner) *App {
	return &App{
		outW:   io.Discard,
		logger: newLogger("error", "text", io.Discard),
		cfg:    &Config{ListenAddr: ":0"},
		runner: runner,
	}
}

func postAssessment(t *testing.T, a *App, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/assessments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleAssessment(t *testing.T) {
	runner := &fakeRunner{result: &assessment.Result{
		AssessmentID: "2f1a9c3e",
		SubjectID:    "team-7",
		ChallengeID:  "multi-az-101",
		Score:        10,
		MaxScore:     25,
	}}
	a := testApp(runner)

	rec := postAssessment(t, a, `{"subjectId":"team-7","challengeId":"multi-az-101","tenantId":"123456789012"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got assessment.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 10, got.Score)
	assert.Equal(t, "team-7", runner.lastReq.SubjectID)
	assert.Equal(t, "123456789012", runner.lastReq.TenantID)
}

func TestHandleAssessmentDefaultsTenant(t *testing.T) {
	runner := &fakeRunner{result: &assessment.Result{}}
	a := testApp(runner)
	a.cfg.DefaultTenant = "210987654321"

	rec := postAssessment(t, a, `{"subjectId":"team-7","challengeId":"multi-az-101"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "210987654321", runner.lastReq.TenantID)
}

func TestHandleAssessmentBadJSON(t *testing.T) {
	a := testApp(&fakeRunner{})
	rec := postAssessment(t, a, `{"subjectId":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAssessmentFaultMapping(t *testing.T) {
	cases := []struct {
		kind   fault.Kind
		status int
	}{
		{fault.BadInput, http.StatusBadRequest},
		{fault.NotFound, http.StatusNotFound},
		{fault.Inactive, http.StatusConflict},
		{fault.InvalidDefinition, http.StatusUnprocessableEntity},
		{fault.LoadError, http.StatusBadGateway},
		{fault.AssumeRole, http.StatusBadGateway},
		{fault.Kind("Unclassified"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			a := testApp(&fakeRunner{err: fault.New(tc.kind, "test", "rejected")})
			rec := postAssessment(t, a, `{"subjectId":"s","challengeId":"c","tenantId":"t"}`)
			assert.Equal(t, tc.status, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, string(tc.kind), resp.Kind)
		})
	}
}

func TestHandleHealth(t *testing.T) {
	a := testApp(&fakeRunner{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestHandleMethodNotAllowed(t *testing.T) {
	a := testApp(&fakeRunner{})
	req := httptest.NewRequest(http.MethodGet, "/assessments", nil)
	rec := httptest.NewRecorder()
	a.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRunOnceWritesResult(t *testing.T) {
	runner := &fakeRunner{result: &assessment.Result{
		AssessmentID: "2f1a9c3e",
		Score:        25,
		MaxScore:     25,
		Passed:       true,
	}}

	var out bytes.Buffer
	a := testApp(runner)
	a.outW = &out
	a.cfg = &Config{SubjectID: "team-7", ChallengeID: "multi-az-101", TenantID: "123456789012"}

	require.NoError(t, a.Run(context.Background()))

	var got assessment.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.True(t, got.Passed)
}

func TestRunOnceFaultPropagates(t *testing.T) {
	a := testApp(&fakeRunner{err: fault.New(fault.NotFound, "test", "no such challenge")})
	a.cfg = &Config{SubjectID: "team-7", ChallengeID: "ghost", TenantID: "123456789012"}

	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, fault.NotFound, fault.KindOf(err))
}
