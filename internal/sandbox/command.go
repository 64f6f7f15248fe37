package sandbox

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"judgeworker/internal/catalog"
	"judgeworker/internal/judgment"
	appErr "judgeworker/pkg/errors"
)

// Spec describes one sandbox launch.
type Spec struct {
	ScratchDir    string
	CodeFilePath  string
	Language      judgment.CodeLanguage
	TestCases     []catalog.TestCase
	TimeLimitSec  float64
	MemoryLimitMb int
}

// CommandBuilder produces the argv that launches a single-use sandbox.
type CommandBuilder interface {
	Build(spec Spec) ([]string, error)
}

// DockerConfig holds the docker-backed sandbox settings.
type DockerConfig struct {
	// Binary is the docker client binary. Default "docker".
	Binary string `yaml:"binary"`

	// ImagePrefix is prepended to the lowercased language name to form
	// the runner image, e.g. "judge-runner-" + "java17".
	ImagePrefix string `yaml:"imagePrefix"`

	// SeccompProfile is the host path of the seccomp profile applied to
	// every container.
	SeccompProfile string `yaml:"seccompProfile"`

	// RunnerRoot is the host directory holding one run.sh per language,
	// laid out as {runnerRoot}/{language}/run.sh.
	RunnerRoot string `yaml:"runnerRoot"`

	// CPUFraction caps the container CPU share. Default 0.5.
	CPUFraction float64 `yaml:"cpuFraction"`
}

// DockerCommandBuilder builds `docker run` invocations for hardened,
// network-isolated, self-cleaning containers.
type DockerCommandBuilder struct {
	cfg DockerConfig
}

// NewDockerCommandBuilder creates a builder, filling config defaults.
func NewDockerCommandBuilder(cfg DockerConfig) *DockerCommandBuilder {
	if cfg.Binary == "" {
		cfg.Binary = "docker"
	}
	if cfg.ImagePrefix == "" {
		cfg.ImagePrefix = "judge-runner-"
	}
	if cfg.CPUFraction <= 0 {
		cfg.CPUFraction = 0.5
	}
	return &DockerCommandBuilder{cfg: cfg}
}

// Build returns the full docker argv for one job. The container root stays
// read-only; only the scratch directory is writable, mounted at /tmp. Swap
// equals the memory cap so OOM kills stay observable as exit 137.
func (b *DockerCommandBuilder) Build(spec Spec) ([]string, error) {
	casesJSON, err := json.Marshal(spec.TestCases)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidFormat, "encode test cases")
	}

	langDir := strings.ToLower(string(spec.Language))
	runnerScript := filepath.Join(b.cfg.RunnerRoot, langDir, "run.sh")
	memory := fmt.Sprintf("%dm", spec.MemoryLimitMb)

	argv := []string{
		b.cfg.Binary, "run", "--rm", "-t",
		"-v", spec.ScratchDir + ":/tmp",
		"-v", spec.CodeFilePath + ":/tmp/" + spec.Language.SourceFileName() + ":ro",
		"-v", runnerScript + ":/tmp/run.sh:ro",
		"--read-only",
		"--ulimit", "nofile=32:32",
		"--ulimit", "fsize=1572864",
		"--memory", memory,
		"--memory-swap", memory,
		"--cpus", strconv.FormatFloat(b.cfg.CPUFraction, 'f', -1, 64),
		"--pids-limit", "50",
		"--network", "none",
		"--cap-drop", "ALL",
		"--security-opt", "no-new-privileges",
		"--security-opt", "seccomp=" + b.cfg.SeccompProfile,
		"--workdir", "/tmp",
		"--init",
		b.cfg.ImagePrefix + langDir,
		"/bin/bash", "/tmp/run.sh",
		string(casesJSON),
		strconv.FormatFloat(spec.TimeLimitSec, 'f', -1, 64),
		strconv.Itoa(spec.MemoryLimitMb),
	}
	return argv, nil
}

var _ CommandBuilder = (*DockerCommandBuilder)(nil)
