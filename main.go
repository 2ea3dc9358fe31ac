// cvssuck - mirrors a remote CVS repository into a local RCS-on-disk
// repository using only the ordinary CVS client/server protocol.
//
// Grounded on kfsone-svn-go's main.go (parseCommandLine, then a run()
// returning error, then os.Exit on failure) for overall shape; the
// per-directory re-exec child is dispatched through runInternal below
// rather than through the public grammar, since Go has no fork(2).
//
// SPDX-License-Identifier: BSD-2-Clause

package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	cvs "gitlab.com/esr/cvssuck/lib"
)

func main() {
	argv := os.Args[1:]
	if isInternalInvocation(argv) {
		os.Exit(runInternal(argv))
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defaults, err := cvs.LoadRunDefaults(cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cvssuck: reading .cvssuckrc.yaml: %v\n", err)
		os.Exit(1)
	}

	cfg, err := parseCommandLine(argv, defaults)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cvssuck:", err)
		printUsage(os.Stderr)
		os.Exit(1)
	}

	logger := cvs.NewLogger(os.Stderr, cfg.debugMask)
	os.Exit(runAll(cfg, logger))
}

// runAll drives every module job in turn, each against its own scratch
// workspace so a failure setting one up can't corrupt another's state.
func runAll(cfg *runConfig, logger *cvs.Logger) int {
	status := 0
	for _, job := range cfg.jobs {
		if err := cvs.EnsureDir(logger, job.output); err != nil {
			logger.Croak("could not create output directory %s: %v", job.output, err)
			status = 1
			continue
		}
		if err := cvs.EnsureDir(logger, job.lock); err != nil {
			logger.Croak("could not create lock directory %s: %v", job.lock, err)
			status = 1
			continue
		}
		if err := runOneModule(cfg, job, logger); err != nil {
			logger.Croak("module %s failed: %v", job.module, err)
			status = 1
		}
	}
	return status
}

func runOneModule(cfg *runConfig, job moduleJob, logger *cvs.Logger) error {
	scratch, cleanup, err := newScratchWorkspace(logger)
	if err != nil {
		return fmt.Errorf("setting up scratch workspace: %w", err)
	}
	defer cleanup()

	work, err := cvs.NewCVSWork(cfg.cvsRoot, scratch, logger)
	if err != nil {
		return fmt.Errorf("attaching scratch workspace: %w", err)
	}
	repo := cvs.NewLocalRepository(job.output, job.lock, logger)

	orch := &cvs.CVSSuck{
		Work:        work,
		Repo:        repo,
		Logger:      logger,
		MakePlanner: plannerFactory(cfg),
		NoFork:      cfg.noFork,
		ReexecArgs:  reexecArgs(cfg, job, scratch),
	}
	return orch.UpdateModule(job.module, cfg.breadthFirst)
}

// plannerFactory builds a fresh Planner per file: an ExactPlanner at the
// base, wrapped in cfg.skeletonWraps layers of SkeletonPlanner, per
// the "each -s wraps the current planner" stacking rule.
func plannerFactory(cfg *runConfig) func() cvs.Planner {
	return func() cvs.Planner {
		var p cvs.Planner = cvs.ExactPlanner{Introduce11: cfg.introduce11}
		for i := 0; i < cfg.skeletonWraps; i++ {
			p = cvs.SkeletonPlanner{Wrapped: p, Introduce11: cfg.introduce11}
		}
		return p
	}
}

// newScratchWorkspace allocates a fresh temp tree under TMPDIR (or /tmp),
// honoring TMPDIR if set, removed on return unless the
// leavetmp debug channel asked it preserved.
func newScratchWorkspace(logger *cvs.Logger) (string, func(), error) {
	parent := os.Getenv("TMPDIR")
	if parent == "" {
		parent = os.TempDir()
	}
	dir, err := os.MkdirTemp(parent, "cvssuck-")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		if logger.Enabled(cvs.DebugLeaveTmp) {
			logger.Logit(cvs.DebugLeaveTmp, "leaving scratch workspace in place: %s", dir)
			return
		}
		os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

// reexecArgs is the argv (excluding argv[0] and the orchestrator's own
// trailing -internal-process-dir) used to re-invoke this binary for one
// directory of job, carrying enough of cfg and the already-established
// scratch workspace for the child to rebuild an equivalent CVSSuck.
func reexecArgs(cfg *runConfig, job moduleJob, scratch string) []string {
	return []string{
		"-internal-cvsroot=" + cfg.cvsRoot,
		"-internal-scratch=" + scratch,
		"-internal-output=" + job.output,
		"-internal-lock=" + job.lock,
		"-internal-debug=" + strconv.FormatUint(uint64(cfg.debugMask), 10),
		"-internal-skeleton=" + strconv.Itoa(cfg.skeletonWraps),
		"-internal-introduce11=" + strconv.FormatBool(cfg.introduce11),
	}
}

func isInternalInvocation(argv []string) bool {
	for _, a := range argv {
		if strings.HasPrefix(a, "-internal-process-dir") {
			return true
		}
	}
	return false
}

// runInternal is the re-exec child entry point: it rebuilds just enough of
// the parent's CVSSuck to process a single already-discovered directory,
// since Go has no fork(2) to share the parent's in-memory state directly.
func runInternal(argv []string) int {
	fs := flag.NewFlagSet("cvssuck-internal", flag.ContinueOnError)
	dir := fs.String("internal-process-dir", "", "")
	cvsRoot := fs.String("internal-cvsroot", "", "")
	scratch := fs.String("internal-scratch", "", "")
	output := fs.String("internal-output", "", "")
	lock := fs.String("internal-lock", "", "")
	debugMask := fs.Uint64("internal-debug", 0, "")
	skeleton := fs.Int("internal-skeleton", 0, "")
	introduce11 := fs.Bool("internal-introduce11", false, "")
	if err := fs.Parse(argv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	logger := cvs.NewLogger(os.Stderr, uint(*debugMask))
	work, err := cvs.NewCVSWork(*cvsRoot, *scratch, logger)
	if err != nil {
		logger.Croak("could not attach to scratch workspace %s: %v", *scratch, err)
		return 1
	}
	repo := cvs.NewLocalRepository(*output, *lock, logger)
	orch := &cvs.CVSSuck{
		Work:   work,
		Repo:   repo,
		Logger: logger,
		MakePlanner: plannerFactory(&runConfig{
			skeletonWraps: *skeleton,
			introduce11:   *introduce11,
		}),
		NoFork: true,
	}
	if err := orch.ProcessDirectory(*dir); err != nil {
		logger.Croak("processing %s failed: %v", *dir, err)
		return 1
	}
	return 0
}
