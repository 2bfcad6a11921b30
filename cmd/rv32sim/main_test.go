package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rv32sim/rv32sim/cpu"
)

// writeProgram writes a hex listing to a temp file and returns its path.
func writeProgram(t *testing.T, words ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prog.hex")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(words, "\n")+"\n"), 0o644))
	return path
}

func runCLI(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"rv32sim"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

const (
	addiA0Seven = "00700513" // addi a0, zero, 7
	ecall       = "00000073"
	jalSelf     = "0000006f" // jal zero, 0
)

func TestRun_ExitCode(t *testing.T) {
	prog := writeProgram(t, addiA0Seven, ecall)
	code, out, _ := runCLI("run", "--log.level", "error", prog)
	require.Equal(t, 7, code)
	require.Contains(t, out, "steps=2")
	require.Contains(t, out, "exit=7")
}

func TestRun_CleanExit(t *testing.T) {
	prog := writeProgram(t, ecall)
	code, out, _ := runCLI("run", "--log.level", "error", prog)
	require.Equal(t, 0, code)
	require.Contains(t, out, "exit=0")
}

func TestRun_DumpRegs(t *testing.T) {
	prog := writeProgram(t, addiA0Seven, ecall)
	_, out, _ := runCLI("run", "--log.level", "error", "--regs", prog)
	require.Contains(t, out, "pc   00000008")
	require.Contains(t, out, "a0   00000007")
	require.Contains(t, out, "zero 00000000")
}

func TestRun_Fault(t *testing.T) {
	prog := writeProgram(t, "ffffffff")
	code, _, errOut := runCLI("run", "--log.level", "error", prog)
	require.Equal(t, exitFault, code)
	require.Contains(t, errOut, "illegal instruction")
	require.Contains(t, errOut, "pc=0x00000000")
}

func TestRun_StepLimit(t *testing.T) {
	prog := writeProgram(t, jalSelf)
	code, out, errOut := runCLI("run", "--log.level", "error", "--max-steps", "5", prog)
	require.Equal(t, exitStepLimit, code)
	require.Contains(t, out, "steps=5")
	require.Contains(t, errOut, "step limit")
}

func TestRun_TraceAndMetrics(t *testing.T) {
	prog := writeProgram(t, addiA0Seven, ecall)
	traceOut := filepath.Join(t.TempDir(), "run.trace")
	code, out, _ := runCLI("run", "--log.level", "error",
		"--trace.out", traceOut, "--metrics.out", "-", prog)
	require.Equal(t, 7, code)
	require.Contains(t, out, "trace steps=2 commitment=0x")
	require.Contains(t, out, "rv32sim_cpu_instructions_retired 2")
	require.Contains(t, out, "rv32sim_cpu_halts 1")

	raw, err := os.ReadFile(traceOut)
	require.NoError(t, err)
	tr, err := cpu.DecodeTrace(raw)
	require.NoError(t, err)
	require.Equal(t, 2, tr.Len())
	require.Equal(t, uint32(7), tr.Steps[0].RegsAfter[10])
}

func TestRun_TraceLimit(t *testing.T) {
	prog := writeProgram(t, jalSelf)
	code, out, errOut := runCLI("run", "--log.level", "error", "--trace", "--trace.limit", "4", prog)
	require.Equal(t, exitStepLimit, code)
	require.Contains(t, out, "steps=4")
	require.Contains(t, out, "trace steps=4 commitment=0x")
	require.Contains(t, errOut, "trace limit")
}

func TestRun_SummaryLog(t *testing.T) {
	prog := writeProgram(t, addiA0Seven, ecall)
	_, _, errOut := runCLI("run", "--log.level", "info", "--log.format", "json", prog)
	require.Contains(t, errOut, `"msg":"run finished"`)
	require.Contains(t, errOut, `"cpu.exit_code":7`)
	require.Contains(t, errOut, `"cpu.instructions_retired":2`)
}

func TestRun_MetricsFile(t *testing.T) {
	prog := writeProgram(t, ecall)
	path := filepath.Join(t.TempDir(), "metrics.prom")
	code, _, _ := runCLI("run", "--log.level", "error", "--metrics.out", path, prog)
	require.Equal(t, 0, code)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "# TYPE rv32sim_cpu_instructions_retired counter")
}

func TestRun_Logging(t *testing.T) {
	prog := writeProgram(t, addiA0Seven, ecall)
	_, _, errOut := runCLI("run", "--log.level", "debug", "--log.format", "json", prog)
	require.Contains(t, errOut, `"msg":"image loaded"`)
	require.Contains(t, errOut, `"module":"loader"`)
	require.Contains(t, errOut, `"asm":"addi a0, zero, 7"`)
	require.Contains(t, errOut, `"msg":"halted"`)
}

func TestRun_EntryOverride(t *testing.T) {
	// Entry skips the addi, so the program exits with 0.
	prog := writeProgram(t, addiA0Seven, ecall)
	code, out, _ := runCLI("run", "--log.level", "error", "--entry", "0x4", prog)
	require.Equal(t, 0, code)
	require.Contains(t, out, "steps=1")
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	prog := writeProgram(t, jalSelf)
	cfgPath := filepath.Join(dir, "rv32sim.yaml")
	yml := "program: " + prog + "\nmax_steps: 3\nlog_level: error\ninstruction_words: 16\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yml), 0o644))

	code, out, _ := runCLI("run", "--config", cfgPath)
	require.Equal(t, exitStepLimit, code)
	require.Contains(t, out, "steps=3")

	// Flags override the file.
	code, out, _ = runCLI("run", "--config", cfgPath, "--max-steps", "4")
	require.Equal(t, exitStepLimit, code)
	require.Contains(t, out, "steps=4")
}

func TestRun_BadInput(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("max_stepz: 3\n"), 0o644))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no program", []string{"run"}, "no program given"},
		{"missing file", []string{"run", filepath.Join(dir, "nope.bin")}, "no such file"},
		{"unknown config key", []string{"run", "--config", bad, "x.bin"}, "invalid configuration"},
		{"missing config", []string{"run", "--config", filepath.Join(dir, "nope.yaml"), "x.bin"}, "config file not found"},
		{"bad entry", []string{"run", "--entry", "zz", "x.bin"}, "--entry"},
		{"bad format", []string{"run", "--format", "srec", "x.bin"}, "unknown image format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(tt.args...)
			require.Equal(t, exitError, code)
			require.Contains(t, errOut, tt.want)
		})
	}
}

func TestDecode(t *testing.T) {
	code, out, _ := runCLI("decode", "0x00c00293", "00000073", "0x402081b3")
	require.Equal(t, 0, code)
	require.Contains(t, out, "addi t0, zero, 12")
	require.Contains(t, out, "ecall")
	require.Contains(t, out, "sub gp, ra, sp")

	code, out, errOut := runCLI("decode", "0xffffffff", "xyz")
	require.Equal(t, exitError, code)
	require.Contains(t, out, "unknown opcode")
	require.Contains(t, errOut, "malformed hex word")
	require.Contains(t, errOut, "2 of 2 words failed")

	code, _, _ = runCLI("decode")
	require.Equal(t, exitError, code)
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI("version")
	require.Equal(t, 0, code)
	require.Equal(t, "rv32sim "+version+" (commit "+commit+")\n", out)
}
