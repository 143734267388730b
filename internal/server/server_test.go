package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/john-shalamon/exam-hall-system/constants"
	"github.com/john-shalamon/exam-hall-system/internal/async"
	"github.com/john-shalamon/exam-hall-system/internal/commit"
	"github.com/john-shalamon/exam-hall-system/internal/export"
	"github.com/john-shalamon/exam-hall-system/internal/metrics"
	"github.com/john-shalamon/exam-hall-system/internal/pipeline"
	"github.com/john-shalamon/exam-hall-system/internal/repository"
)

type fixture struct {
	repo  repository.AllocationRepository
	queue *async.RunQueue
	srv   *httptest.Server
}

func newFixture(t *testing.T, provision bool) *fixture {
	t.Helper()
	ctx := context.Background()
	repo, err := repository.OpenSQLite(ctx, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	if provision {
		require.NoError(t, repo.Provision(ctx, false))
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))
	proc := pipeline.NewProcessor(commit.NewEngine(repo, nil, commit.WithMetrics(m)), nil, nil, nil, pipeline.WithMetrics(m))
	queue := async.NewRunQueue(proc, nil, async.WithMetrics(m))
	t.Cleanup(func() { queue.Shutdown(context.Background()) })

	srv := httptest.NewServer(New(repo, queue, nil, WithGatherer(reg), WithMaxUploadBytes(1<<20)).Handler())
	t.Cleanup(srv.Close)
	return &fixture{repo: repo, queue: queue, srv: srv}
}

func (f *fixture) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (f *fixture) upload(t *testing.T, name string, payload []byte) (*http.Response, map[string]string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(payload)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(f.srv.URL+"/api/uploads", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	out := map[string]string{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (f *fixture) waitRun(t *testing.T, id string) pipeline.RunStatus {
	t.Helper()
	var st pipeline.RunStatus
	require.Eventually(t, func() bool {
		st = pipeline.RunStatus{}
		code := f.get(t, "/api/runs/"+id, &st)
		return code == http.StatusOK && st.Stage.Terminal()
	}, 5*time.Second, 10*time.Millisecond)
	return st
}

func TestUpload_CSVRunsToCompletion(t *testing.T) {
	f := newFixture(t, true)

	resp, body := f.upload(t, "halls.csv", export.TemplateCSV())
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.NotEmpty(t, body["run_id"])
	assert.Equal(t, "/api/runs/"+body["run_id"], resp.Header.Get("Location"))

	st := f.waitRun(t, body["run_id"])
	assert.Equal(t, constants.StageDone, st.Stage)
	assert.Equal(t, 3, st.Records)
	assert.Equal(t, float64(100), st.Progress)

	var got map[string]any
	require.Equal(t, http.StatusOK, f.get(t, "/api/allocations/REG12346", &got))
	assert.Equal(t, "Jane Smith", got["student_name"])
	assert.Equal(t, "A102", got["seat_number"])
}

func TestUpload_FailedRunReportsError(t *testing.T) {
	f := newFixture(t, false) // no table: the commit fails

	resp, body := f.upload(t, "halls.csv", export.TemplateCSV())
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	st := f.waitRun(t, body["run_id"])
	assert.Equal(t, constants.StageFailed, st.Stage)
	assert.Equal(t, "COMMIT_ERROR", st.ErrorCode)
	assert.Equal(t, "committing", st.ErrorStage)
}

func TestUpload_Rejections(t *testing.T) {
	f := newFixture(t, true)

	resp, body := f.upload(t, "notes.txt", []byte("hello"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "FORMAT_ERROR", body["code"])

	r, err := http.Post(f.srv.URL+"/api/uploads", "text/plain", bytes.NewBufferString("x"))
	require.NoError(t, err)
	_ = r.Body.Close()
	assert.Equal(t, http.StatusBadRequest, r.StatusCode)
}

func TestRunStatus_NotFoundAndInvalid(t *testing.T) {
	f := newFixture(t, true)
	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/runs/8f1c7a7e-0d55-4c3a-9d4e-3c2b1a000000", nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/runs/not-a-uuid", nil))
}

func TestSetupFlow(t *testing.T) {
	f := newFixture(t, false)

	var st setupResponse
	require.Equal(t, http.StatusOK, f.get(t, "/api/setup", &st))
	assert.False(t, st.TableExists)
	assert.Equal(t, "sqlite", st.Dialect)
	assert.Contains(t, st.SQL, "CREATE TABLE IF NOT EXISTS hall_allocations")

	resp, err := http.Post(f.srv.URL+"/api/setup?seed=true", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, http.StatusOK, f.get(t, "/api/setup", &st))
	assert.True(t, st.TableExists)

	var list listResponse
	require.Equal(t, http.StatusOK, f.get(t, "/api/allocations?page=1&page_size=2", &list))
	assert.Equal(t, 5, list.Total)
	assert.Len(t, list.Items, 2)
	assert.Equal(t, 2, list.PageSize)
}

func TestLookupAndList(t *testing.T) {
	f := newFixture(t, true)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/allocations/REG00000", nil))
	long := bytes.Repeat([]byte("R"), maxRegisterNumberLen+1)
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/allocations/"+string(long), nil))

	var list listResponse
	require.Equal(t, http.StatusOK, f.get(t, "/api/allocations", &list))
	assert.Equal(t, 0, list.Total)
	assert.NotNil(t, list.Items)
	assert.Equal(t, repository.DefaultPageSize, list.PageSize)

	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/allocations?page=zero", nil))
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/api/allocations?page_size=-1", nil))
}

func TestTemplateDownload(t *testing.T) {
	f := newFixture(t, true)

	resp, err := http.Get(f.srv.URL + "/api/template")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), constants.TemplateFileName)
	assert.Equal(t, export.TemplateCSV(), buf.Bytes())

	resp, err = http.Get(f.srv.URL + "/api/template?format=xlsx")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "hall-allocation-template.xlsx")
}

func TestHealthMetricsAndCORS(t *testing.T) {
	f := newFixture(t, true)

	var h map[string]string
	require.Equal(t, http.StatusOK, f.get(t, "/healthz", &h))
	assert.Equal(t, "ok", h["status"])

	resp, body := f.upload(t, "halls.csv", export.TemplateCSV())
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	f.waitRun(t, body["run_id"])

	mresp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(mresp.Body)
	_ = mresp.Body.Close()
	assert.Contains(t, buf.String(), "examhall_runs_total")

	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+"/healthz", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	cresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = cresp.Body.Close()
	assert.Equal(t, "*", cresp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, cresp.Header.Get("X-Request-ID"))
}
