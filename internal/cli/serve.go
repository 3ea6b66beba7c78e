package cli

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zippy1981/gunicorn/internal/admin"
	"github.com/zippy1981/gunicorn/internal/app"
	"github.com/zippy1981/gunicorn/internal/arbiter"
	"github.com/zippy1981/gunicorn/internal/config"
	"github.com/zippy1981/gunicorn/internal/reload"
)

var serveFlags struct {
	binds             []string
	workerClass       string
	workers           int
	timeout           time.Duration
	gracefulTimeout   time.Duration
	keepAlive         time.Duration
	maxRequests       int
	workerConns       int
	heartbeatInterval time.Duration

	pidFile string
	user    string
	group   string
	umask   uint32
	daemon  bool

	reloadOnChange bool
	watchPaths     []string

	adminAddr     string
	adminRate     float64
	controlSocket string

	maxMemoryMB       int
	maxCPUPercent     int
	enforceHardLimits bool
	workerPriority    int
	fdMax             uint64
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Bind listeners and supervise the worker pool",
	RunE:  runServe,
}

// runServe is the `serve` entry point: build a Snapshot from flags (spec.md
// §6's full flag surface), construct an Arbiter, start the admin surface
// alongside it, and block in Arbiter.Run until a stop is requested. Grounded on the
// teacher's serverStartCmd.Run, generalized from a fixed parameter list to
// this domain's config.Snapshot and from server.StartServer's IPC/cluster
// wiring to arbiter.New/Run.
func runServe(cmd *cobra.Command, args []string) error {
	snap := config.Default()
	snap.Binds = serveFlags.binds
	snap.WorkerClass = config.WorkerClass(serveFlags.workerClass)
	snap.Workers = serveFlags.workers
	snap.Timeout = serveFlags.timeout
	snap.GracefulTimeout = serveFlags.gracefulTimeout
	snap.KeepAlive = serveFlags.keepAlive
	snap.MaxRequests = serveFlags.maxRequests
	snap.WorkerConns = serveFlags.workerConns
	snap.HeartbeatInterval = serveFlags.heartbeatInterval
	snap.PidFile = serveFlags.pidFile
	snap.User = serveFlags.user
	snap.Group = serveFlags.group
	snap.Umask = serveFlags.umask
	snap.Daemon = serveFlags.daemon
	snap.ReloadOnChange = serveFlags.reloadOnChange
	snap.WatchPaths = serveFlags.watchPaths
	snap.AdminAddr = serveFlags.adminAddr
	snap.ControlSocket = serveFlags.controlSocket
	snap.MaxMemoryMB = serveFlags.maxMemoryMB
	snap.MaxCPUPercent = serveFlags.maxCPUPercent
	snap.EnforceHardLimits = serveFlags.enforceHardLimits
	snap.WorkerPriority = serveFlags.workerPriority
	snap.FileDescriptorMax = serveFlags.fdMax

	if err := snap.Validate(); err != nil {
		return err
	}

	logger := log.New(os.Stderr, "[arbiter] ", log.LstdFlags)

	a, err := arbiter.New(snap, app.Echo, logger)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	a.SetExecReloader(reload.Exec)

	if snap.ReloadOnChange && len(snap.WatchPaths) > 0 {
		watcher, err := reload.NewWatcher(snap.WatchPaths, func() {
			logger.Printf("watched path changed, requesting soft reload")
			a.SoftReload()
		})
		if err != nil {
			logger.Printf("reload-on-change: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	if snap.AdminAddr != "" {
		adminSrv := admin.New(snap.AdminAddr, serveFlags.adminRate, a, a.Control(), logger)
		go func() {
			if err := adminSrv.Serve(); err != nil {
				logger.Printf("admin surface: %v", err)
			}
		}()
	}

	os.Exit(a.Run())
	return nil
}

func init() {
	f := serveCmd.Flags()
	f.StringSliceVar(&serveFlags.binds, "bind", []string{"127.0.0.1:8000"}, "Address to bind (host:port or unix:/path), repeatable")
	f.StringVar(&serveFlags.workerClass, "worker-class", string(config.WorkerClassSync), "Worker class: sync or async")
	f.IntVarP(&serveFlags.workers, "workers", "w", 1, "Number of worker processes")
	f.DurationVar(&serveFlags.timeout, "timeout", 30*time.Second, "Worker silence timeout before the arbiter kills it")
	f.DurationVar(&serveFlags.gracefulTimeout, "graceful-timeout", 30*time.Second, "Time to let workers drain before force-killing")
	f.DurationVar(&serveFlags.keepAlive, "keep-alive", 2*time.Second, "Idle keep-alive connection timeout")
	f.IntVar(&serveFlags.maxRequests, "max-requests", 0, "Requests served before a worker recycles itself (0 disables)")
	f.IntVar(&serveFlags.workerConns, "worker-connections", 1000, "Max simultaneous connections per async worker")
	f.DurationVar(&serveFlags.heartbeatInterval, "heartbeat-interval", 5*time.Second, "Liveness heartbeat interval")

	f.StringVar(&serveFlags.pidFile, "pid", "", "Write the arbiter's pid to this file")
	f.StringVar(&serveFlags.user, "user", "", "Drop worker privileges to this user")
	f.StringVar(&serveFlags.group, "group", "", "Drop worker privileges to this group")
	f.Uint32Var(&serveFlags.umask, "umask", 0o22, "File mode creation mask for worker processes")
	f.BoolVar(&serveFlags.daemon, "daemon", false, "Daemonize the arbiter process")

	f.BoolVar(&serveFlags.reloadOnChange, "reload-on-change", false, "Soft-reload whenever a watched path changes")
	f.StringSliceVar(&serveFlags.watchPaths, "watch", nil, "Paths to watch for --reload-on-change, repeatable")

	f.StringVar(&serveFlags.adminAddr, "admin-addr", "", "Bind an admin HTTP surface (status/health/metrics/sys) at this address")
	f.Float64Var(&serveFlags.adminRate, "admin-rate-limit", 0, "Requests/sec per client IP on the admin surface (0 disables limiting)")
	f.StringVar(&serveFlags.controlSocket, "control-socket", "", "Unix socket path workers use to report stats (empty disables)")

	f.IntVar(&serveFlags.maxMemoryMB, "max-memory-mb", 0, "Per-worker RSS limit in MB (0 disables)")
	f.IntVar(&serveFlags.maxCPUPercent, "max-cpu-percent", 0, "Per-worker CPU%% limit (0 disables)")
	f.BoolVar(&serveFlags.enforceHardLimits, "enforce-hard-limits", false, "Kill (not just warn) workers that exceed resource limits")
	f.IntVar(&serveFlags.workerPriority, "worker-priority", 0, "setpriority(2) nice value for worker processes")
	f.Uint64Var(&serveFlags.fdMax, "file-descriptor-max", 0, "RLIMIT_NOFILE for worker processes (0 leaves the inherited limit)")

	rootCmd.AddCommand(serveCmd)
}
