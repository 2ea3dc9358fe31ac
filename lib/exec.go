// exec - drives external cvs/ci/rcs/rlog commands.
//
// Grounded on reposurgeon's runProcess (surgeon/inner.go): a command string
// is shlex.Split into argv, executed, and a non-zero exit promoted to a
// typed, stderr-carrying error. logCOMMANDS-style gating becomes the
// DebugCommand channel here.
//
// SPDX-License-Identifier: BSD-2-Clause

package cvs

import (
	"bytes"
	"os/exec"
	"strings"

	shlex "github.com/anmitsu/go-shlex"
)

// commandResult carries the captured output of a completed external command.
type commandResult struct {
	Stdout string
	Stderr string
}

// runCommand executes command (already split into argv) with cwd as its
// working directory, capturing stdout/stderr into memory. Grounded on the
// design notes' guidance to capture stderr into a bounded buffer rather
// than a temp file; our commands (ci/rcs/cvs) never produce output large
// enough to warrant true streaming.
func runCommand(logger *Logger, cwd string, argv []string) (commandResult, error) {
	if len(argv) == 0 {
		return commandResult{}, &CVSCommandFailure{Command: "", Err: errEmptyCommand}
	}
	if logger.Enabled(DebugCommand) {
		logger.Logit(DebugCommand, "executing %q in %s", strings.Join(argv, " "), cwd)
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = cwd
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return commandResult{Stdout: stdout.String(), Stderr: stderr.String()}, err
}

// runCVS runs the cvs client, promoting failure to *CVSCommandFailure. A
// "nothing known about" stderr message on a 256-ish exit is treated as a
// benign empty-directory warning, not an error: the caller inspects
// Stderr itself to distinguish that case from a real failure.
func runCVS(logger *Logger, cwd, commandLine string) (commandResult, error) {
	argv, serr := shlex.Split(commandLine, true)
	if serr != nil {
		return commandResult{}, &CVSCommandFailure{Command: commandLine, Err: serr}
	}
	res, err := runCommand(logger, cwd, argv)
	if err != nil {
		return res, &CVSCommandFailure{Command: commandLine, Stderr: res.Stderr, Err: err}
	}
	return res, nil
}

// runRCS runs ci/rcs/rlog, promoting failure to *RCSCommandFailure.
func runRCS(logger *Logger, cwd, commandLine string) (commandResult, error) {
	argv, serr := shlex.Split(commandLine, true)
	if serr != nil {
		return commandResult{}, &RCSCommandFailure{Command: commandLine, Err: serr}
	}
	res, err := runCommand(logger, cwd, argv)
	if err != nil {
		return res, &RCSCommandFailure{Command: commandLine, Stderr: res.Stderr, Err: err}
	}
	return res, nil
}

var errEmptyCommand = &emptyCommandError{}

type emptyCommandError struct{}

func (e *emptyCommandError) Error() string { return "empty command line" }
