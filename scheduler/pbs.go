package scheduler

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cisgate/gatequeue/job"
	"github.com/cisgate/gatequeue/schema"
)

// PBS drives a PBS-style cluster queue via its qsub/qstat/qdel command
// line tools. It keeps its own map from gatequeue job id to the backend's
// job id, mirrored onto disk as marker files under QueuePath so a restart
// can reconcile handles against whatever the main loop still has in
// memory.
type PBS struct {
	ScriptsDir string
	QueueDir   string
	CmdTimeout time.Duration

	mu      sync.Mutex
	handles map[string]string // gatequeue id -> pbs job id
}

// NewPBS constructs a PBS adapter writing submission scripts to
// scriptsDir and scheduler-handle markers to queueDir.
func NewPBS(scriptsDir, queueDir string, cmdTimeout time.Duration) *PBS {
	return &PBS{
		ScriptsDir: scriptsDir,
		QueueDir:   queueDir,
		CmdTimeout: cmdTimeout,
		handles:    make(map[string]string),
	}
}

var _ Adapter = (*PBS)(nil)

// Name implements Adapter.
func (p *PBS) Name() string { return "pbs" }

// QueuePath implements Adapter.
func (p *PBS) QueuePath() string { return p.QueueDir }

// GenerateScripts implements Adapter: it renders a PBS submission script
// from the job's validated parameters.
func (p *PBS) GenerateScripts(j *job.Job) (bool, error) {
	nproc, _ := schema.Get[int64](j.ValidData, "CIS_NPROC")
	if nproc <= 0 {
		nproc = 1
	}
	walltime, _ := schema.Get[int64](j.ValidData, "CIS_WALLTIME")
	if walltime <= 0 {
		walltime = 1
	}
	command, ok := schema.Get[string](j.ValidData, "CIS_COMMAND")
	if !ok || command == "" {
		return false, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#!/bin/sh\n")
	fmt.Fprintf(&b, "#PBS -N gatequeue-%s\n", j.ID)
	fmt.Fprintf(&b, "#PBS -l nodes=1:ppn=%d\n", nproc)
	fmt.Fprintf(&b, "#PBS -l walltime=%d:00:00\n", walltime)
	fmt.Fprintf(&b, "#PBS -o %s\n", filepath.Join(p.ScriptsDir, j.ID+".out"))
	fmt.Fprintf(&b, "#PBS -e %s\n", filepath.Join(p.ScriptsDir, j.ID+".err"))
	fmt.Fprintf(&b, "%s\n", command)

	path := filepath.Join(p.ScriptsDir, j.ID+".sh")
	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		return false, fmt.Errorf("pbs: write script for %s: %w", j.ID, err)
	}
	return true, nil
}

// ChainInputData implements Adapter: it symlinks each chained job's
// output directory into this job's staging area so the generated script
// can read it by a predictable name.
func (p *PBS) ChainInputData(j *job.Job) (bool, error) {
	if len(j.Chain) == 0 {
		return true, nil
	}
	stageDir := filepath.Join(p.ScriptsDir, j.ID+".chain")
	if err := os.MkdirAll(stageDir, 0o755); err != nil {
		return false, fmt.Errorf("pbs: chain stage dir for %s: %w", j.ID, err)
	}
	for _, upstream := range j.Chain {
		src := filepath.Join(filepath.Dir(p.ScriptsDir), "output", upstream)
		dst := filepath.Join(stageDir, upstream)
		if err := os.Symlink(src, dst); err != nil && !os.IsExist(err) {
			return false, fmt.Errorf("pbs: chain link %s -> %s: %w", dst, src, err)
		}
	}
	return true, nil
}

// Submit implements Adapter: it runs qsub against the generated script.
// Any failure to invoke or parse qsub's output is treated as "backend
// queue temporarily full" rather than fatal, since PBS's own exit codes
// don't reliably distinguish resource-limit rejections from transient
// connectivity problems to the server.
func (p *PBS) Submit(j *job.Job) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), p.CmdTimeout)
	defer cancel()

	script := filepath.Join(p.ScriptsDir, j.ID+".sh")
	out, err := exec.CommandContext(ctx, "qsub", script).Output()
	if err != nil {
		return false, nil
	}
	pbsID := strings.TrimSpace(string(out))
	if pbsID == "" {
		return false, nil
	}

	p.mu.Lock()
	p.handles[j.ID] = pbsID
	p.mu.Unlock()

	marker := filepath.Join(p.QueueDir, j.ID)
	if err := os.WriteFile(marker, []byte(pbsID), 0o644); err != nil {
		return false, fmt.Errorf("pbs: write handle for %s: %w", j.ID, err)
	}
	return true, nil
}

// Update implements Adapter: it polls qstat once for the whole queue and
// finishes any job it no longer reports as queued or running.
func (p *PBS) Update(jobs []*job.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.CmdTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "qstat", "-f").Output()
	if err != nil {
		return fmt.Errorf("pbs: qstat: %w", err)
	}
	states := parseQstat(out)

	for _, j := range jobs {
		p.mu.Lock()
		pbsID := p.handles[j.ID]
		p.mu.Unlock()
		if pbsID == "" {
			continue
		}

		st, seen := states[pbsID]
		switch {
		case !seen:
			if err := j.Finish("backend reports job gone", job.Done, job.Success); err != nil {
				return fmt.Errorf("pbs: finish %s: %w", j.ID, err)
			}
		case st.state == "R" && j.State() == job.Queued:
			if err := j.Run(); err != nil {
				return fmt.Errorf("pbs: run %s: %w", j.ID, err)
			}
		case st.state == "C":
			if st.exitStatus == 0 {
				if err := j.Finish("job completed", job.Done, job.Success); err != nil {
					return fmt.Errorf("pbs: finish %s: %w", j.ID, err)
				}
			} else {
				msg := fmt.Sprintf("job exited with status %d", st.exitStatus)
				if err := j.Finish(msg, job.Failed, job.Success); err != nil {
					return fmt.Errorf("pbs: finish %s: %w", j.ID, err)
				}
			}
		}
	}
	return nil
}

// Stop implements Adapter: it runs qdel against the job's PBS handle.
func (p *PBS) Stop(j *job.Job, message string, code job.ExitCode) error {
	p.mu.Lock()
	pbsID := p.handles[j.ID]
	p.mu.Unlock()

	if pbsID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), p.CmdTimeout)
		defer cancel()
		_ = exec.CommandContext(ctx, "qdel", pbsID).Run()
	}
	return j.Finish(message, job.Killed, code)
}

// Finalise implements Adapter.
func (p *PBS) Finalise(j *job.Job) error {
	p.forgetHandle(j.ID)
	return j.Exit()
}

// Abort implements Adapter.
func (p *PBS) Abort(j *job.Job) error {
	p.forgetHandle(j.ID)
	return j.Exit()
}

func (p *PBS) forgetHandle(id string) {
	p.mu.Lock()
	delete(p.handles, id)
	p.mu.Unlock()
	_ = os.Remove(filepath.Join(p.QueueDir, id))
}

type qstatEntry struct {
	state      string
	exitStatus int
}

// parseQstat extracts job_state and exit_status attributes from `qstat
// -f` output, keyed by PBS job id. It tolerates the handful of attribute
// names different PBS/Torque versions use by matching case-insensitively.
func parseQstat(out []byte) map[string]qstatEntry {
	entries := make(map[string]qstatEntry)
	var current string

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Job Id:"):
			current = strings.TrimSpace(strings.TrimPrefix(line, "Job Id:"))
			entries[current] = qstatEntry{}
		case strings.HasPrefix(line, "job_state =") && current != "":
			e := entries[current]
			e.state = strings.TrimSpace(strings.TrimPrefix(line, "job_state ="))
			entries[current] = e
		case strings.HasPrefix(line, "exit_status =") && current != "":
			e := entries[current]
			if n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "exit_status ="))); err == nil {
				e.exitStatus = n
			}
			entries[current] = e
		}
	}
	return entries
}
