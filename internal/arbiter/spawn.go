package arbiter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/zippy1981/gunicorn/internal/config"
	"github.com/zippy1981/gunicorn/internal/liveness"
	"github.com/zippy1981/gunicorn/internal/listener"
	"github.com/zippy1981/gunicorn/internal/worker"
)

// spawn re-execs the current binary as worker id, handing it the listener
// set and a fresh liveness channel. This is the re-exec analogue of
// cluster.Worker.Spawn: instead of launching an external node/bun runtime,
// the child is this same binary invoked with GUNICORN_PROCESS_MODE=worker
// (spec.md §4.1 "a worker is a process, never a thread, of the arbiter's
// own binary").
func (a *Arbiter) spawn(rec *Record) error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("arbiter: resolve executable: %w", err)
	}

	env, listenerFiles, err := a.listeners.ExecEnv(os.Environ())
	if err != nil {
		return fmt.Errorf("arbiter: listener exec env: %w", err)
	}

	mode := liveness.DetectMode()
	prep, err := liveness.Prepare(mode, os.TempDir(), rec.ID)
	if err != nil {
		return fmt.Errorf("arbiter: liveness prepare for worker %d: %w", rec.ID, err)
	}

	extraFiles := append([]*os.File{}, listenerFiles...)
	livenessEnv := append([]string{}, prep.Env...)
	if prep.ExtraFile != nil {
		fdNum := 3 + len(extraFiles)
		extraFiles = append(extraFiles, prep.ExtraFile)
		livenessEnv = append(livenessEnv, liveness.EnvMmapFD+"="+strconv.Itoa(fdNum))
	}

	snapJSON, err := a.snapshot.MarshalEnv()
	if err != nil {
		return fmt.Errorf("arbiter: worker %d: %w", rec.ID, err)
	}

	env = append(env, livenessEnv...)
	env = append(env,
		worker.EnvMode+"="+worker.ModeWorker,
		worker.EnvWorkerID+"="+strconv.Itoa(rec.ID),
		worker.EnvParentPID+"="+strconv.Itoa(os.Getpid()),
		config.EnvConfigJSON+"="+snapJSON,
	)

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, exe, "worker")
	cmd.Env = env
	cmd.ExtraFiles = extraFiles

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("arbiter: worker %d stdout pipe: %w", rec.ID, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("arbiter: worker %d stderr pipe: %w", rec.ID, err)
	}

	restoreRlimit := applyWorkerProcAttrs(cmd, a.snapshot)
	startErr := cmd.Start()
	restoreRlimit()
	if startErr != nil {
		cancel()
		prep.Source.Close()
		return fmt.Errorf("arbiter: worker %d start: %w", rec.ID, startErr)
	}

	setWorkerPriority(cmd.Process.Pid, a.snapshot.WorkerPriority)

	done := make(chan struct{})

	rec.Cmd = cmd
	rec.Process = cmd.Process
	rec.Liveness = liveness.NewTracker(prep.Source)
	rec.StartTime = time.Now()
	rec.cancel = cancel
	rec.done = done
	rec.setState(StateRunning)

	go streamLogs(rec.ID, stdout, a.logger, "INFO")
	go streamLogs(rec.ID, stderr, a.logger, "WARN")

	go func() {
		defer close(done)
		defer cancel()
		waitErr := cmd.Wait()
		prep.Source.Close()

		rec.mu.Lock()
		if waitErr != nil {
			if exitErr, ok := waitErr.(*exec.ExitError); ok {
				rec.exitCode = exitErr.ExitCode()
			} else {
				rec.exitCode = -1
			}
			if rec.state != StateStopping {
				rec.state = StateCrashed
			} else {
				rec.state = StateStopped
			}
		} else {
			rec.exitCode = 0
			rec.state = StateStopped
		}
		rec.mu.Unlock()

		a.notifyExit(rec)
	}()

	// listenerFiles are cached on their *listener.Listener (see
	// listener.Listener.File) and reused for every future spawn, so they are
	// deliberately left open here rather than closed per-spawn.
	return nil
}

func closeListenerSet(set *listener.Set) {
	if set != nil {
		_ = set.Close()
	}
}
