package sandbox

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"judgeworker/internal/catalog"
	"judgeworker/internal/judgment"
	"judgeworker/internal/repository"
	appErr "judgeworker/pkg/errors"
)

const (
	// sandboxGrace pads the wall deadline beyond the per-case budget to
	// cover container startup and teardown.
	sandboxGrace = 3 * time.Second

	oomExitCode = 137

	timeLimitDetail   = "maximum execution time limit exceeded"
	memoryLimitDetail = "maximum memory usage limit exceeded"
)

// errRunAborted stops stream readers once the cleanup flag is set.
var errRunAborted = errors.New("run aborted")

// EventDispatcher is the webhook surface the supervisor needs.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event judgment.Event) int
}

// Supervisor drives one judgment job end to end: scratch setup, sandbox
// launch, concurrent stream parsing, webhook fan-out, termination
// classification and final aggregation.
type Supervisor struct {
	catalog     *catalog.Catalog
	repo        *repository.JobRepository
	builder     CommandBuilder
	scratchRoot string
}

// NewSupervisor creates a supervisor. scratchRoot may be empty to use the
// system temp directory.
func NewSupervisor(cat *catalog.Catalog, repo *repository.JobRepository, builder CommandBuilder, scratchRoot string) *Supervisor {
	return &Supervisor{
		catalog:     cat,
		repo:        repo,
		builder:     builder,
		scratchRoot: scratchRoot,
	}
}

// run is the per-job mutable state shared between the supervisor, the
// stream readers and the dispatch tasks.
type run struct {
	job        *judgment.Job
	dispatcher EventDispatcher
	kill       func()

	// cleanup is monotonic: set once, never cleared. When set, result
	// emission is abandoned and the job is torn down.
	cleanup   atomic.Bool
	abortOnce sync.Once

	mu       sync.Mutex
	verdicts []judgment.Verdict

	dispatches sync.WaitGroup
}

// abort sets the cleanup flag, notifies the receiver and kills the
// sandbox. Only the first caller wins.
func (r *run) abort(ctx context.Context) {
	r.abortOnce.Do(func() {
		r.cleanup.Store(true)
		r.dispatcher.Dispatch(ctx, judgment.NewErrorEvent(r.job.JobID))
		r.kill()
	})
}

func (r *run) append(v judgment.Verdict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verdicts = append(r.verdicts, v)
}

func (r *run) snapshot() []judgment.Verdict {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]judgment.Verdict, len(r.verdicts))
	copy(out, r.verdicts)
	return out
}

// Execute judges one job. All failure paths notify the receiver and tear
// the job record down before returning; the returned error reports what
// went wrong but needs no queue-level retry.
func (s *Supervisor) Execute(ctx context.Context, job *judgment.Job, dispatcher EventDispatcher) error {
	logger := logx.WithContext(ctx)

	if job.StopFlag {
		logger.Infof("job %s: stop flag set, cancelling before execution", job.JobID)
		dispatcher.Dispatch(ctx, judgment.JobCancellation{JobID: job.JobID})
		_, err := s.repo.Delete(ctx, job.UserID, job.JobID)
		return err
	}

	cases, err := s.catalog.GetTestCases(job.ChallengeID)
	if err != nil {
		return s.fail(ctx, job, dispatcher, err)
	}
	timeLimit, err := s.catalog.GetTimeLimit(job.ChallengeID, job.CodeLanguage)
	if err != nil {
		return s.fail(ctx, job, dispatcher, err)
	}
	memLimit, err := s.catalog.GetMemoryLimit(job.ChallengeID, job.CodeLanguage)
	if err != nil {
		return s.fail(ctx, job, dispatcher, err)
	}

	scratchDir, err := os.MkdirTemp(s.scratchRoot, "judge-")
	if err != nil {
		return s.fail(ctx, job, dispatcher, appErr.Wrapf(err, appErr.InternalServerError, "create scratch directory"))
	}
	defer os.RemoveAll(scratchDir)

	src, err := job.DecodeSource()
	if err != nil {
		return s.fail(ctx, job, dispatcher, err)
	}
	codePath := filepath.Join(scratchDir, job.CodeLanguage.SourceFileName())
	if err := os.WriteFile(codePath, src, 0o644); err != nil {
		return s.fail(ctx, job, dispatcher, appErr.Wrapf(err, appErr.InternalServerError, "write source file"))
	}

	// Shuffle so repeated submissions cannot memoize case order.
	shuffled := make([]catalog.TestCase, len(cases))
	copy(shuffled, cases)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	argv, err := s.builder.Build(Spec{
		ScratchDir:    scratchDir,
		CodeFilePath:  codePath,
		Language:      job.CodeLanguage,
		TestCases:     shuffled,
		TimeLimitSec:  timeLimit,
		MemoryLimitMb: memLimit,
	})
	if err != nil {
		return s.fail(ctx, job, dispatcher, err)
	}

	deadline := time.Duration(float64(len(shuffled))*timeLimit*float64(time.Second)) +
		job.CodeLanguage.CompileBonus() + sandboxGrace

	// Own process group so a kill reaps the whole sandbox tree and the
	// output pipes always close.
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.fail(ctx, job, dispatcher, appErr.Wrapf(err, appErr.SandboxSpawnFailed, "open stdout pipe"))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return s.fail(ctx, job, dispatcher, appErr.Wrapf(err, appErr.SandboxSpawnFailed, "open stderr pipe"))
	}
	if err := cmd.Start(); err != nil {
		return s.fail(ctx, job, dispatcher, appErr.Wrapf(err, appErr.SandboxSpawnFailed, "spawn sandbox"))
	}
	logger.Infof("job %s: sandbox started, %d cases, deadline %s", job.JobID, len(shuffled), deadline)

	var killOnce sync.Once
	kill := func() {
		killOnce.Do(func() {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		})
	}
	defer kill()

	r := &run{job: job, dispatcher: dispatcher, kill: kill}

	emit := func(v judgment.Verdict) error {
		if r.cleanup.Load() {
			return errRunAborted
		}
		r.append(v)
		if err := s.recordVerdict(ctx, r, v); err != nil {
			logger.Errorf("job %s: record verdict: %v", job.JobID, err)
			r.abort(ctx)
			return errRunAborted
		}
		r.dispatches.Add(1)
		go func() {
			defer r.dispatches.Done()
			status := dispatcher.Dispatch(ctx, judgment.TestCaseResult{JobID: job.JobID, Verdict: v})
			if status != http.StatusOK {
				logger.Errorf("job %s: verdict webhook returned %d", job.JobID, status)
				r.abort(ctx)
			}
		}()
		return nil
	}

	var readers sync.WaitGroup
	readers.Add(2)
	go func() {
		defer readers.Done()
		if err := newStreamParser(emit).consume(stdout); err != nil && !errors.Is(err, errRunAborted) {
			logger.Errorf("job %s: stdout: %v", job.JobID, err)
			r.abort(ctx)
		}
	}()
	go func() {
		defer readers.Done()
		if err := newStreamParser(nil).consume(stderr); err != nil {
			logger.Errorf("job %s: stderr: %v", job.JobID, err)
			r.abort(ctx)
		}
	}()

	// Readers must drain the pipes before Wait reaps the process.
	waitCh := make(chan error, 1)
	go func() {
		readers.Wait()
		waitCh <- cmd.Wait()
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	var timedOut bool
	var waitErr error
	select {
	case waitErr = <-waitCh:
	case <-timer.C:
		timedOut = true
		kill()
		waitErr = <-waitCh
	case <-ctx.Done():
		kill()
		<-waitCh
		return ctx.Err()
	}
	exitCode := cmd.ProcessState.ExitCode()

	// Per-case dispatches complete before the final event goes out.
	r.dispatches.Wait()

	if r.cleanup.Load() {
		logger.Infof("job %s: aborted, skipping final judgment", job.JobID)
		_, err := s.repo.Delete(ctx, job.UserID, job.JobID)
		return err
	}
	if waitErr != nil {
		logger.Infof("job %s: sandbox exited: %v (code %d)", job.JobID, waitErr, exitCode)
	}

	verdicts := r.snapshot()
	if _, failed := judgment.FirstNonPassing(verdicts); !failed {
		var terminal *judgment.Verdict
		switch {
		case timedOut:
			terminal = &judgment.Verdict{
				Passed:        false,
				FailureCause:  judgment.CauseSandboxTimeout,
				FailureDetail: timeLimitDetail,
			}
		case exitCode == oomExitCode:
			terminal = &judgment.Verdict{
				Passed:        false,
				FailureCause:  judgment.CauseSandboxOutOfMemory,
				FailureDetail: memoryLimitDetail,
			}
		}
		if terminal != nil {
			verdicts = append(verdicts, *terminal)
			status := dispatcher.Dispatch(ctx, judgment.TestCaseResult{JobID: job.JobID, Verdict: *terminal})
			if status != http.StatusOK {
				logger.Errorf("job %s: terminal verdict webhook returned %d", job.JobID, status)
				r.abort(ctx)
				_, err := s.repo.Delete(ctx, job.UserID, job.JobID)
				return err
			}
		}
	}

	final, err := judgment.BuildJudgment(job, verdicts)
	if err != nil {
		return s.fail(ctx, job, dispatcher, err)
	}
	if status := dispatcher.Dispatch(ctx, final); status != http.StatusOK {
		logger.Errorf("job %s: final judgment webhook returned %d", job.JobID, status)
	}
	if _, err := s.repo.Delete(ctx, job.UserID, job.JobID); err != nil {
		return err
	}
	logger.Infof("job %s: done (%s)", job.JobID, final.Kind())
	return nil
}

// recordVerdict persists execution progress so the status surface can
// observe a running job. A missing record means the job was torn down (or
// expired) elsewhere and execution must stop.
func (s *Supervisor) recordVerdict(ctx context.Context, r *run, v judgment.Verdict) error {
	verdicts := r.snapshot()
	return s.repo.Update(ctx, r.job.UserID, r.job.JobID, func(j *judgment.Job) {
		if v.TestCaseIndex > j.LastTestCaseIndex {
			j.LastTestCaseIndex = v.TestCaseIndex
		}
		j.Verdicts = verdicts
	})
}

// fail notifies the receiver of an internal failure and removes the job
// record, then reports err to the caller.
func (s *Supervisor) fail(ctx context.Context, job *judgment.Job, dispatcher EventDispatcher, err error) error {
	logx.WithContext(ctx).Errorf("job %s: %v", job.JobID, err)
	dispatcher.Dispatch(ctx, judgment.NewErrorEvent(job.JobID))
	if _, derr := s.repo.Delete(ctx, job.UserID, job.JobID); derr != nil {
		logx.WithContext(ctx).Errorf("job %s: delete after failure: %v", job.JobID, derr)
	}
	return err
}
