package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/cisgate/gatequeue/job"
	"github.com/cisgate/gatequeue/schema"
)

// SSH drives a plain SSH-dispatched shell executor: it backgrounds the
// job's command on a remote host via nohup, tracks the remote PID, and
// polls liveness with `kill -0`.
type SSH struct {
	Addr          string
	Config        *ssh.ClientConfig
	RemoteWorkDir string
	QueueDir      string

	mu      sync.Mutex
	scripts map[string]string
	pids    map[string]int
}

// NewSSH constructs an SSH adapter dispatching to addr with the given
// client config, staging remote work under remoteWorkDir and mirroring
// live-handle markers to queueDir.
func NewSSH(addr string, cfg *ssh.ClientConfig, remoteWorkDir, queueDir string) *SSH {
	return &SSH{
		Addr:          addr,
		Config:        cfg,
		RemoteWorkDir: remoteWorkDir,
		QueueDir:      queueDir,
		scripts:       make(map[string]string),
		pids:          make(map[string]int),
	}
}

var _ Adapter = (*SSH)(nil)

// Name implements Adapter.
func (s *SSH) Name() string { return "ssh" }

// QueuePath implements Adapter.
func (s *SSH) QueuePath() string { return s.QueueDir }

// GenerateScripts implements Adapter: it renders the job's command into a
// shell fragment kept in memory until Submit dispatches it.
func (s *SSH) GenerateScripts(j *job.Job) (bool, error) {
	command, ok := schema.Get[string](j.ValidData, "CIS_COMMAND")
	if !ok || command == "" {
		return false, nil
	}
	s.mu.Lock()
	s.scripts[j.ID] = command
	s.mu.Unlock()
	return true, nil
}

// ChainInputData implements Adapter. It does nothing and reports success:
// chained jobs' outputs are not copied to the remote host, and the
// dispatched command is not told about them.
func (s *SSH) ChainInputData(j *job.Job) (bool, error) {
	return true, nil
}

// Submit implements Adapter: it dials the remote host and backgrounds the
// job's command, capturing its PID.
func (s *SSH) Submit(j *job.Job) (bool, error) {
	s.mu.Lock()
	command := s.scripts[j.ID]
	s.mu.Unlock()
	if command == "" {
		return false, nil
	}

	client, err := ssh.Dial("tcp", s.Addr, s.Config)
	if err != nil {
		return false, nil
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return false, nil
	}
	defer session.Close()

	remoteDir := filepath.Join(s.RemoteWorkDir, j.ID)
	wrapped := fmt.Sprintf("sh -c %s; echo $? > exitcode", shellQuote(command))
	dispatch := fmt.Sprintf(
		"mkdir -p %s && cd %s && nohup sh -c %s > out.log 2> err.log < /dev/null & echo $!",
		shellQuote(remoteDir), shellQuote(remoteDir), shellQuote(wrapped),
	)

	out, err := session.Output(dispatch)
	if err != nil {
		return false, nil
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return false, nil
	}

	s.mu.Lock()
	s.pids[j.ID] = pid
	s.mu.Unlock()

	if err := os.WriteFile(filepath.Join(s.QueueDir, j.ID), []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return false, fmt.Errorf("ssh: write handle for %s: %w", j.ID, err)
	}
	return true, nil
}

// Update implements Adapter: for each tracked job it checks remote
// liveness with `kill -0` and, once the process has exited, reads back
// its exit code.
func (s *SSH) Update(jobs []*job.Job) error {
	for _, j := range jobs {
		s.mu.Lock()
		pid, ok := s.pids[j.ID]
		s.mu.Unlock()
		if !ok {
			continue
		}

		alive, exitCode, err := s.probe(j.ID, pid)
		if err != nil {
			return fmt.Errorf("ssh: probe %s: %w", j.ID, err)
		}
		if alive {
			if j.State() == job.Queued {
				if err := j.Run(); err != nil {
					return fmt.Errorf("ssh: run %s: %w", j.ID, err)
				}
			}
			continue
		}

		if exitCode == 0 {
			if err := j.Finish("remote command exited", job.Done, job.Success); err != nil {
				return fmt.Errorf("ssh: finish %s: %w", j.ID, err)
			}
		} else {
			msg := fmt.Sprintf("remote command exited with status %d", exitCode)
			if err := j.Finish(msg, job.Failed, job.Success); err != nil {
				return fmt.Errorf("ssh: finish %s: %w", j.ID, err)
			}
		}
	}
	return nil
}

func (s *SSH) probe(id string, pid int) (alive bool, exitCode int, err error) {
	client, err := ssh.Dial("tcp", s.Addr, s.Config)
	if err != nil {
		return false, 0, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return false, 0, err
	}
	defer session.Close()

	remoteDir := filepath.Join(s.RemoteWorkDir, id)
	cmd := fmt.Sprintf("kill -0 %d 2>/dev/null && echo alive || cat %s/exitcode 2>/dev/null || echo 0",
		pid, shellQuote(remoteDir))
	out, err := session.Output(cmd)
	if err != nil {
		return false, 0, err
	}
	text := strings.TrimSpace(string(out))
	if text == "alive" {
		return true, 0, nil
	}
	code, _ := strconv.Atoi(text)
	return false, code, nil
}

// Stop implements Adapter: it signals the remote process to terminate.
func (s *SSH) Stop(j *job.Job, message string, code job.ExitCode) error {
	s.mu.Lock()
	pid, ok := s.pids[j.ID]
	s.mu.Unlock()

	if ok {
		if client, err := ssh.Dial("tcp", s.Addr, s.Config); err == nil {
			if session, err := client.NewSession(); err == nil {
				_, _ = session.Output(fmt.Sprintf("kill %d 2>/dev/null", pid))
				session.Close()
			}
			client.Close()
		}
	}
	return j.Finish(message, job.Killed, code)
}

// Finalise implements Adapter.
func (s *SSH) Finalise(j *job.Job) error {
	s.forget(j.ID)
	return j.Exit()
}

// Abort implements Adapter.
func (s *SSH) Abort(j *job.Job) error {
	s.forget(j.ID)
	return j.Exit()
}

func (s *SSH) forget(id string) {
	s.mu.Lock()
	delete(s.pids, id)
	delete(s.scripts, id)
	s.mu.Unlock()
	_ = os.Remove(filepath.Join(s.QueueDir, id))
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
