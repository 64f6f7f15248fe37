package sandbox

import (
	"strings"
	"testing"

	"judgeworker/internal/judgment"
	appErr "judgeworker/pkg/errors"
)

func collectVerdicts(t *testing.T, input string) ([]judgment.Verdict, error) {
	t.Helper()
	var got []judgment.Verdict
	p := newStreamParser(func(v judgment.Verdict) error {
		got = append(got, v)
		return nil
	})
	err := p.consume(strings.NewReader(input))
	return got, err
}

func TestParserProtocolVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		line string
		want judgment.Verdict
	}{
		{
			"passed case",
			`{"passed":true,"testCaseIndex":1,"elapsedTimeMs":50,"memoryUsageMb":1.5}`,
			judgment.Verdict{Passed: true, TestCaseIndex: 1, ElapsedTimeMs: 50, MemoryUsedMb: 1.5},
		},
		{
			"wrong answer",
			`{"passed":false,"testCaseIndex":2}`,
			judgment.Verdict{Passed: false, TestCaseIndex: 2, FailureCause: judgment.CauseWrongAnswer},
		},
		{
			"compile error",
			`{"status":"compileError","exitCode":0,"error":"syntax error"}`,
			judgment.Verdict{Passed: false, FailureCause: judgment.CauseCompileError, FailureDetail: "syntax error"},
		},
		{
			"compile timeout",
			`{"status":"compileError","exitCode":124,"error":"timed out"}`,
			judgment.Verdict{Passed: false, FailureCause: judgment.CauseCompileTimeout, FailureDetail: "timed out"},
		},
		{
			"compile oom",
			`{"status":"compileError","exitCode":137,"error":"killed"}`,
			judgment.Verdict{Passed: false, FailureCause: judgment.CauseCompileOutOfMemory, FailureDetail: "killed"},
		},
		{
			"runtime error",
			`{"status":"runtimeError","exitCode":1,"testCaseIndex":2,"error":"segmentation fault"}`,
			judgment.Verdict{Passed: false, TestCaseIndex: 2, FailureCause: judgment.CauseRuntimeError, FailureDetail: "segmentation fault"},
		},
		{
			"runtime timeout",
			`{"status":"runtimeError","exitCode":124,"testCaseIndex":3,"error":"timed out"}`,
			judgment.Verdict{Passed: false, TestCaseIndex: 3, FailureCause: judgment.CauseRuntimeTimeout, FailureDetail: "timed out"},
		},
		{
			"runtime oom",
			`{"status":"runtimeError","exitCode":137,"testCaseIndex":1,"error":"killed"}`,
			judgment.Verdict{Passed: false, TestCaseIndex: 1, FailureCause: judgment.CauseRuntimeOutOfMemory, FailureDetail: "killed"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := collectVerdicts(t, tt.line+"\n")
			if err != nil {
				t.Fatalf("consume: %v", err)
			}
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("verdicts = %+v, want [%+v]", got, tt.want)
			}
		})
	}
}

func TestParserSystemErrorIsTerminal(t *testing.T) {
	t.Parallel()
	input := `{"passed":true,"testCaseIndex":1,"elapsedTimeMs":5,"memoryUsageMb":1}
{"status":"systemError","error":"runner broke"}
{"passed":true,"testCaseIndex":2,"elapsedTimeMs":5,"memoryUsageMb":1}
`
	got, err := collectVerdicts(t, input)
	if !appErr.Is(err, appErr.SandboxSystemError) {
		t.Fatalf("err = %v, want SandboxSystemError", err)
	}
	if len(got) != 1 {
		t.Errorf("verdicts after terminal error = %+v", got)
	}
}

func TestParserUnexpectedOutput(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input string
	}{
		{"plain text", "Exception in thread main\n"},
		{"non-object json", `[1,2,3]` + "\n"},
		{"unknown status", `{"status":"mystery"}` + "\n"},
		{"object without markers", `{"foo":"bar"}` + "\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := collectVerdicts(t, tt.input)
			if !appErr.Is(err, appErr.SandboxProtocol) {
				t.Fatalf("err = %v, want SandboxProtocol", err)
			}
			if len(got) != 0 {
				t.Errorf("verdicts = %+v", got)
			}
		})
	}
}

func TestParserFailureLineMissingExitCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		line string
	}{
		{"compile error", `{"status":"compileError","error":"syntax error"}`},
		{"runtime error", `{"status":"runtimeError","testCaseIndex":1,"error":"segmentation fault"}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := collectVerdicts(t, tt.line+"\n")
			if !appErr.Is(err, appErr.SandboxProtocol) {
				t.Fatalf("err = %v, want SandboxProtocol", err)
			}
			if len(got) != 0 {
				t.Errorf("verdicts = %+v, want none", got)
			}
		})
	}
}

func TestParserMixedOutputStillEmitsVerdicts(t *testing.T) {
	t.Parallel()
	input := `{"passed":true,"testCaseIndex":1,"elapsedTimeMs":5,"memoryUsageMb":1}
garbage line
{"passed":false,"testCaseIndex":2}
`
	got, err := collectVerdicts(t, input)
	if !appErr.Is(err, appErr.SandboxProtocol) {
		t.Fatalf("err = %v, want SandboxProtocol at stream close", err)
	}
	if len(got) != 2 {
		t.Errorf("verdicts = %+v, want 2", got)
	}
}

func TestParserStderrModeTreatsEverythingAsUnexpected(t *testing.T) {
	t.Parallel()
	p := newStreamParser(nil)
	err := p.consume(strings.NewReader(`{"passed":true,"testCaseIndex":1,"elapsedTimeMs":5,"memoryUsageMb":1}` + "\n"))
	if !appErr.Is(err, appErr.SandboxProtocol) {
		t.Fatalf("err = %v, want SandboxProtocol", err)
	}
}

func TestParserEmptyStream(t *testing.T) {
	t.Parallel()
	got, err := collectVerdicts(t, "\n\n")
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("verdicts = %+v", got)
	}
}
