package sandbox

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"strings"

	"judgeworker/internal/judgment"
	appErr "judgeworker/pkg/errors"
)

// maxLineBytes bounds one protocol line; the runner's fsize ulimit keeps
// real output far below this.
const maxLineBytes = 1 << 20

// streamParser converts one sandbox output stream into verdicts. Lines
// that do not match the runner protocol accumulate as unexpected output
// and surface as a single protocol error at stream close.
type streamParser struct {
	emit       func(judgment.Verdict) error
	unexpected []string
}

func newStreamParser(emit func(judgment.Verdict) error) *streamParser {
	return &streamParser{emit: emit}
}

// consume reads the stream to EOF. It returns a SandboxSystemError as soon
// as the runner reports one, a SandboxProtocol error at EOF if unexpected
// output accumulated, or the emit callback's error to stop early.
func (p *streamParser) consume(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := p.parseLine(line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, fs.ErrClosed) {
		return appErr.Wrapf(err, appErr.SandboxProtocol, "read sandbox stream")
	}
	if len(p.unexpected) > 0 {
		return appErr.Newf(appErr.SandboxProtocol, "unexpected sandbox output: %s", strings.Join(p.unexpected, "\n"))
	}
	return nil
}

func (p *streamParser) parseLine(line string) error {
	// A nil emit marks a stream that may not carry verdicts (stderr);
	// everything on it is unexpected.
	if p.emit == nil {
		p.unexpected = append(p.unexpected, line)
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(line), &obj); err != nil || obj == nil {
		p.unexpected = append(p.unexpected, line)
		return nil
	}

	if status, ok := obj["status"].(string); ok {
		switch status {
		case "systemError":
			detail, _ := obj["error"].(string)
			return appErr.Newf(appErr.SandboxSystemError, "sandbox runner failed: %s", detail)
		case "compileError", "runtimeError":
			// The exit code decides the failure cause; a failure line
			// without one is not protocol output.
			if _, ok := obj["exitCode"].(float64); !ok {
				return appErr.Newf(appErr.SandboxProtocol, "sandbox %s line missing exitCode: %s", status, line)
			}
			return p.emit(failureVerdict(status, obj))
		}
		p.unexpected = append(p.unexpected, line)
		return nil
	}

	if passed, ok := obj["passed"].(bool); ok {
		if passed {
			return p.emit(judgment.Verdict{
				Passed:        true,
				TestCaseIndex: intField(obj, "testCaseIndex"),
				ElapsedTimeMs: int64(intField(obj, "elapsedTimeMs")),
				MemoryUsedMb:  floatField(obj, "memoryUsageMb"),
			})
		}
		return p.emit(judgment.Verdict{
			Passed:        false,
			TestCaseIndex: intField(obj, "testCaseIndex"),
			FailureCause:  judgment.CauseWrongAnswer,
		})
	}

	p.unexpected = append(p.unexpected, line)
	return nil
}

func failureVerdict(status string, obj map[string]any) judgment.Verdict {
	detail, _ := obj["error"].(string)
	return judgment.Verdict{
		Passed:        false,
		TestCaseIndex: intField(obj, "testCaseIndex"),
		FailureCause:  failureCauseFor(status, intField(obj, "exitCode")),
		FailureDetail: detail,
	}
}

// failureCauseFor maps the runner's exit code to a failure cause. 124 is
// reserved for timeouts and 137 for OOM kills; everything else is a plain
// error in the given phase.
func failureCauseFor(status string, exitCode int) judgment.FailureCause {
	compile := status == "compileError"
	switch exitCode {
	case 124:
		if compile {
			return judgment.CauseCompileTimeout
		}
		return judgment.CauseRuntimeTimeout
	case 137:
		if compile {
			return judgment.CauseCompileOutOfMemory
		}
		return judgment.CauseRuntimeOutOfMemory
	default:
		if compile {
			return judgment.CauseCompileError
		}
		return judgment.CauseRuntimeError
	}
}

func intField(obj map[string]any, key string) int {
	if v, ok := obj[key].(float64); ok {
		return int(v)
	}
	return 0
}

func floatField(obj map[string]any, key string) float64 {
	if v, ok := obj[key].(float64); ok {
		return v
	}
	return 0
}
