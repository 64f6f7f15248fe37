package sandbox

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"judgeworker/internal/catalog"
	"judgeworker/internal/common/cache"
	"judgeworker/internal/judgment"
	"judgeworker/internal/repository"
	"judgeworker/internal/webhook"
	appErr "judgeworker/pkg/errors"
)

// scriptBuilder swaps the docker sandbox for a shell script fixture.
type scriptBuilder string

func (s scriptBuilder) Build(Spec) ([]string, error) {
	return []string{"/bin/sh", "-c", string(s)}, nil
}

type recordedEvent struct {
	path string
	body map[string]any
}

// eventRecorder is an httptest webhook receiver capturing every event.
type eventRecorder struct {
	srv *httptest.Server

	mu            sync.Mutex
	events        []recordedEvent
	verdictStatus int
}

func newEventRecorder(t *testing.T, verdictStatus int) *eventRecorder {
	t.Helper()
	rec := &eventRecorder{verdictStatus: verdictStatus}
	rec.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		rec.mu.Lock()
		rec.events = append(rec.events, recordedEvent{path: r.URL.Path, body: body})
		rec.mu.Unlock()
		if r.URL.Path == "/verdict" && rec.verdictStatus != http.StatusOK {
			w.WriteHeader(rec.verdictStatus)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(rec.srv.Close)
	return rec
}

func (r *eventRecorder) byPath(path string) []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []map[string]any
	for _, ev := range r.events {
		if ev.path == path {
			out = append(out, ev.body)
		}
	}
	return out
}

type harness struct {
	repo        *repository.JobRepository
	recorder    *eventRecorder
	dispatcher  *webhook.Dispatcher
	catalog     *catalog.Catalog
	scratchRoot string
	job         *judgment.Job
}

func newHarness(t *testing.T, verdictStatus int) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := cache.NewRedisCacheWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	dir := t.TempDir()
	docs := map[string]string{
		"test_cases.json": `{"7": [[["3 4"], "7"], [["10 20"], "30"]], "8": [[["1"], "1"]]}`,
		"limits.json":     `{"timeLimits": {"7": 1.0, "8": 0.1}, "memoryLimits": {"7": 64, "8": 64}}`,
		"bonuses.json":    `{"timeBonus": {"NODEJS20": 0}, "memoryBonus": {"NODEJS20": 0}}`,
	}
	for name, body := range docs {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	cat, err := catalog.Load(context.Background(), catalog.NewLocalSource(dir))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	recorder := newEventRecorder(t, verdictStatus)
	dispatcher := webhook.NewDispatcher(webhook.Config{
		VerdictURL:          recorder.srv.URL + "/verdict",
		SubmissionResultURL: recorder.srv.URL + "/result",
		ErrorURL:            recorder.srv.URL + "/error",
	})
	t.Cleanup(dispatcher.Shutdown)

	return &harness{
		repo:        repository.NewJobRepository(store),
		recorder:    recorder,
		dispatcher:  dispatcher,
		catalog:     cat,
		scratchRoot: t.TempDir(),
		job: &judgment.Job{
			JobID:          "j1",
			UserID:         42,
			ChallengeID:    7,
			CodeLanguage:   judgment.LangNodeJS20,
			Code:           base64.StdEncoding.EncodeToString([]byte("console.log(1)")),
			SubmittedAt:    "2026-08-20T10:30:00",
			TotalTestCases: 2,
		},
	}
}

func (h *harness) saveJob(t *testing.T) {
	t.Helper()
	if _, err := h.repo.Save(context.Background(), h.job, time.Minute); err != nil {
		t.Fatalf("save job: %v", err)
	}
}

func (h *harness) execute(t *testing.T, script string) error {
	t.Helper()
	sup := NewSupervisor(h.catalog, h.repo, scriptBuilder(script), h.scratchRoot)
	err := sup.Execute(context.Background(), h.job, h.dispatcher)
	h.checkCleanedUp(t)
	return err
}

// checkCleanedUp asserts the post-exit invariants: scratch removed and job
// record gone.
func (h *harness) checkCleanedUp(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(h.scratchRoot)
	if err != nil {
		t.Fatalf("read scratch root: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("scratch root not cleaned: %d entries left", len(entries))
	}
	if _, err := h.repo.FindByJobID(context.Background(), h.job.JobID); !appErr.Is(err, appErr.JobNotFound) {
		t.Errorf("job record still present (err = %v)", err)
	}
}

func TestSupervisorHappyPath(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusOK)
	h.saveJob(t)

	script := `echo '{"passed":true,"testCaseIndex":1,"elapsedTimeMs":50,"memoryUsageMb":1.5}'
echo '{"passed":true,"testCaseIndex":2,"elapsedTimeMs":60,"memoryUsageMb":2.0}'`
	if err := h.execute(t, script); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	verdicts := h.recorder.byPath("/verdict")
	if len(verdicts) != 2 {
		t.Fatalf("verdict events = %d, want 2", len(verdicts))
	}
	for _, v := range verdicts {
		idx := int(v["testCaseIndex"].(float64))
		if idx < 1 || idx > h.job.TotalTestCases {
			t.Errorf("testCaseIndex %d out of range", idx)
		}
	}

	results := h.recorder.byPath("/result")
	if len(results) != 1 {
		t.Fatalf("result events = %d, want 1", len(results))
	}
	final := results[0]
	if final["maxElapsedTimeMs"] != float64(60) || final["maxMemoryUsedMb"] != 2.0 {
		t.Errorf("final judgment maxima wrong: %v", final)
	}
	if _, unpassed := final["failureCause"]; unpassed {
		t.Errorf("expected passed judgment, got %v", final)
	}
	if errs := h.recorder.byPath("/error"); len(errs) != 0 {
		t.Errorf("unexpected error events: %v", errs)
	}
}

func TestSupervisorCompileError(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusOK)
	h.saveJob(t)

	script := `echo '{"status":"compileError","exitCode":0,"error":"syntax error"}'; exit 1`
	if err := h.execute(t, script); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	results := h.recorder.byPath("/result")
	if len(results) != 1 {
		t.Fatalf("result events = %d, want 1", len(results))
	}
	if results[0]["failureCause"] != string(judgment.CauseCompileError) {
		t.Errorf("failureCause = %v", results[0]["failureCause"])
	}
	if results[0]["failureDetail"] != "syntax error" {
		t.Errorf("failureDetail = %v", results[0]["failureDetail"])
	}
}

func TestSupervisorRuntimeErrorOnSecondCase(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusOK)
	h.saveJob(t)

	script := `echo '{"passed":true,"testCaseIndex":1,"elapsedTimeMs":50,"memoryUsageMb":1.5}'
echo '{"status":"runtimeError","exitCode":0,"testCaseIndex":2,"error":"segmentation fault"}'
exit 1`
	if err := h.execute(t, script); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if verdicts := h.recorder.byPath("/verdict"); len(verdicts) != 2 {
		t.Errorf("verdict events = %d, want 2 (passed case still dispatched)", len(verdicts))
	}
	results := h.recorder.byPath("/result")
	if len(results) != 1 {
		t.Fatalf("result events = %d, want 1", len(results))
	}
	if results[0]["failureCause"] != string(judgment.CauseRuntimeError) {
		t.Errorf("failureCause = %v", results[0]["failureCause"])
	}
	if results[0]["failureDetail"] != "segmentation fault" {
		t.Errorf("failureDetail = %v", results[0]["failureDetail"])
	}
}

func TestSupervisorWrongAnswer(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusOK)
	h.saveJob(t)

	script := `echo '{"passed":false,"testCaseIndex":1}'`
	if err := h.execute(t, script); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	results := h.recorder.byPath("/result")
	if len(results) != 1 {
		t.Fatalf("result events = %d, want 1", len(results))
	}
	if results[0]["failureCause"] != string(judgment.CauseWrongAnswer) {
		t.Errorf("failureCause = %v", results[0]["failureCause"])
	}
	if _, present := results[0]["failureDetail"]; present {
		t.Errorf("wrong answer must carry no detail: %v", results[0])
	}
}

func TestSupervisorSandboxDeadline(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusOK)
	h.job.ChallengeID = 8 // T=0.1s, one case: D = 0.1 + 3s
	h.job.TotalTestCases = 1
	h.saveJob(t)

	start := time.Now()
	if err := h.execute(t, `sleep 60`); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("deadline not enforced, took %s", elapsed)
	}

	verdicts := h.recorder.byPath("/verdict")
	if len(verdicts) != 1 {
		t.Fatalf("verdict events = %d, want 1", len(verdicts))
	}
	if verdicts[0]["failureCause"] != string(judgment.CauseSandboxTimeout) {
		t.Errorf("verdict cause = %v", verdicts[0]["failureCause"])
	}
	results := h.recorder.byPath("/result")
	if len(results) != 1 {
		t.Fatalf("result events = %d, want 1", len(results))
	}
	if results[0]["failureCause"] != string(judgment.CauseSandboxTimeout) {
		t.Errorf("failureCause = %v", results[0]["failureCause"])
	}
	if results[0]["failureDetail"] != "maximum execution time limit exceeded" {
		t.Errorf("failureDetail = %v", results[0]["failureDetail"])
	}
}

func TestSupervisorOOMExit(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusOK)
	h.saveJob(t)

	script := `echo '{"passed":true,"testCaseIndex":1,"elapsedTimeMs":10,"memoryUsageMb":1}'; exit 137`
	if err := h.execute(t, script); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if verdicts := h.recorder.byPath("/verdict"); len(verdicts) != 2 {
		t.Errorf("verdict events = %d, want 2 (pass + terminal)", len(verdicts))
	}
	results := h.recorder.byPath("/result")
	if len(results) != 1 {
		t.Fatalf("result events = %d, want 1", len(results))
	}
	if results[0]["failureCause"] != string(judgment.CauseSandboxOutOfMemory) {
		t.Errorf("failureCause = %v", results[0]["failureCause"])
	}
	if results[0]["failureDetail"] != "maximum memory usage limit exceeded" {
		t.Errorf("failureDetail = %v", results[0]["failureDetail"])
	}
}

func TestSupervisorEarlierFailureBeatsOOMExit(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusOK)
	h.saveJob(t)

	script := `echo '{"passed":false,"testCaseIndex":1}'; exit 137`
	if err := h.execute(t, script); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if verdicts := h.recorder.byPath("/verdict"); len(verdicts) != 1 {
		t.Errorf("verdict events = %d, want 1 (no OOM verdict appended)", len(verdicts))
	}
	results := h.recorder.byPath("/result")
	if len(results) != 1 {
		t.Fatalf("result events = %d, want 1", len(results))
	}
	if results[0]["failureCause"] != string(judgment.CauseWrongAnswer) {
		t.Errorf("failureCause = %v, want wrong answer to win", results[0]["failureCause"])
	}
}

func TestSupervisorWebhookRefusal(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusServiceUnavailable)
	h.saveJob(t)

	script := `echo '{"passed":true,"testCaseIndex":1,"elapsedTimeMs":10,"memoryUsageMb":1}'; sleep 60`
	if err := h.execute(t, script); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if results := h.recorder.byPath("/result"); len(results) != 0 {
		t.Errorf("no final judgment expected, got %v", results)
	}
	errs := h.recorder.byPath("/error")
	if len(errs) != 1 {
		t.Fatalf("error events = %d, want 1", len(errs))
	}
	if errs[0]["detail"] != "Internal server error" {
		t.Errorf("error detail = %v", errs[0]["detail"])
	}
}

func TestSupervisorTerminalVerdictRefusal(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusServiceUnavailable)
	h.job.ChallengeID = 8 // T=0.1s, one case: D = 0.1 + 3s
	h.job.TotalTestCases = 1
	h.saveJob(t)

	// No mid-run verdicts; the refusal hits the deadline verdict itself.
	if err := h.execute(t, `sleep 60`); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if results := h.recorder.byPath("/result"); len(results) != 0 {
		t.Errorf("no final judgment expected, got %v", results)
	}
	errs := h.recorder.byPath("/error")
	if len(errs) != 1 {
		t.Fatalf("error events = %d, want 1", len(errs))
	}
	if errs[0]["detail"] != "Internal server error" {
		t.Errorf("error detail = %v", errs[0]["detail"])
	}
}

func TestSupervisorStopFlag(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusOK)
	h.job.StopFlag = true
	h.saveJob(t)

	if err := h.execute(t, `echo should-not-run; sleep 60`); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if verdicts := h.recorder.byPath("/verdict"); len(verdicts) != 0 {
		t.Errorf("no verdicts expected, got %v", verdicts)
	}
	errs := h.recorder.byPath("/error")
	if len(errs) != 1 {
		t.Fatalf("cancellation events = %d, want 1", len(errs))
	}
	if errs[0]["jobId"] != h.job.JobID {
		t.Errorf("cancellation jobId = %v", errs[0]["jobId"])
	}
	if _, isError := errs[0]["detail"]; isError {
		t.Errorf("expected jobCancellation payload, got error payload: %v", errs[0])
	}
}

func TestSupervisorJobMissingMidRun(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusOK)
	// Job never saved: the first mid-run update finds no record.

	script := `echo '{"passed":true,"testCaseIndex":1,"elapsedTimeMs":10,"memoryUsageMb":1}'; sleep 60`
	if err := h.execute(t, script); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if results := h.recorder.byPath("/result"); len(results) != 0 {
		t.Errorf("no final judgment expected, got %v", results)
	}
	if errs := h.recorder.byPath("/error"); len(errs) != 1 {
		t.Errorf("error events = %d, want 1", len(errs))
	}
}

func TestSupervisorCatalogMissingChallenge(t *testing.T) {
	t.Parallel()
	h := newHarness(t, http.StatusOK)
	h.job.ChallengeID = 999
	h.saveJob(t)

	err := h.execute(t, `true`)
	if !appErr.Is(err, appErr.ConfigMissing) {
		t.Fatalf("err = %v, want ConfigMissing", err)
	}
	if errs := h.recorder.byPath("/error"); len(errs) != 1 {
		t.Errorf("error events = %d, want 1", len(errs))
	}
}
