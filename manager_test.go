package gatequeue

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisgate/gatequeue/gatefs"
	"github.com/cisgate/gatequeue/job"
	"github.com/cisgate/gatequeue/quota"
	"github.com/cisgate/gatequeue/schema"
	"github.com/cisgate/gatequeue/scheduler"
)

var canonicalStates = []string{
	"waiting", "queued", "running", "closing", "cleanup",
	"done", "failed", "aborted", "killed",
}

func testSchema() *schema.ServiceSchema {
	return &schema.ServiceSchema{
		Name: "demo",
		Vars: map[string]*schema.VarSchema{
			"CIS_SCHEDULER": {Type: schema.String, Enum: []string{"fake"}},
			"CIS_COMMAND":   {Type: schema.String, Enum: nil},
		},
	}
}

func newTestManager(t *testing.T) (*JobManager, *gatefs.Gate, *scheduler.Fake) {
	t.Helper()
	root := t.TempDir()
	gate := gatefs.NewGate(gatefs.NewPaths(root, canonicalStates))
	require.NoError(t, gate.EnsureDirs())

	fake := scheduler.NewFake("fake")
	registry := quota.NewRegistry(map[string]quota.Config{
		"demo": {QuotaMB: 100, JobSizeMB: 1, MinLifetime: time.Hour, MaxLifetime: 0, MaxRuntime: 0},
	})

	m := New(gate, registry, []scheduler.Adapter{fake}, Config{
		SleepTime:     time.Millisecond,
		ShutdownTime:  10 * time.Millisecond,
		CleanupPool:   2,
		CleanupQueue:  8,
		ServiceSchema: map[string]*schema.ServiceSchema{"demo": testSchema()},
	}, slog.New(slog.NewTextHandler(os.Stdout, nil)))
	return m, gate, fake
}

func dropRequest(t *testing.T, gate *gatefs.Gate, id string, body map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(gate.JobsDir(), id), data, 0o644))
	require.NoError(t, os.Symlink(filepath.Join(gate.JobsDir(), id), filepath.Join(gate.StateDir("waiting"), id)))
}

// S1: happy path — a valid request is admitted, submitted, and becomes
// queued.
func TestHappyPathAdmitsAndQueues(t *testing.T) {
	m, gate, fake := newTestManager(t)
	dropRequest(t, gate, "job-1", map[string]any{
		"service":       "demo",
		"CIS_SCHEDULER": "fake",
		"CIS_COMMAND":   "echo hi",
	})

	m.checkNewJobs(context.Background())

	j, ok := m.getJob("job-1", false)
	require.True(t, ok)
	assert.Equal(t, job.Queued, j.State())
	assert.True(t, fake.Queued("job-1"))
}

// S4: a request that fails schema validation is aborted outright.
func TestBadSchedulerAbortsJob(t *testing.T) {
	m, gate, _ := newTestManager(t)
	dropRequest(t, gate, "job-bad", map[string]any{
		"service":       "demo",
		"CIS_SCHEDULER": "nonexistent",
		"CIS_COMMAND":   "echo hi",
	})

	m.checkNewJobs(context.Background())

	j, ok := m.getJob("job-bad", false)
	require.True(t, ok)
	assert.Equal(t, job.Aborted, j.ExitState())
}

// S2: a user kill request against a queued job is forwarded to the
// scheduler and the job ends up killed.
func TestUserKillStopsQueuedJob(t *testing.T) {
	m, gate, fake := newTestManager(t)
	dropRequest(t, gate, "job-2", map[string]any{
		"service":       "demo",
		"CIS_SCHEDULER": "fake",
		"CIS_COMMAND":   "sleep 100",
	})
	m.checkNewJobs(context.Background())
	require.True(t, fake.Queued("job-2"))

	require.NoError(t, os.Symlink(filepath.Join(gate.JobsDir(), "job-2"), filepath.Join(filepath.Dir(gate.JobsDir()), "stop", "job-2")))
	m.checkJobKillRequests()

	j, ok := m.getJob("job-2", false)
	require.True(t, ok)
	assert.Equal(t, job.Killed, j.ExitState())
	assert.Equal(t, job.Closing, j.State())
	assert.False(t, fake.Queued("job-2"))

	_, err := os.Lstat(filepath.Join(filepath.Dir(gate.JobsDir()), "stop", "job-2"))
	assert.True(t, os.IsNotExist(err))
}

// A waiting job's kill request finishes it directly, without ever
// reaching a scheduler.
func TestUserKillFinishesWaitingJob(t *testing.T) {
	m, gate, _ := newTestManager(t)
	dropRequest(t, gate, "job-3", map[string]any{
		"service":       "demo",
		"CIS_SCHEDULER": "fake",
		"CIS_COMMAND":   "echo hi",
	})

	require.NoError(t, os.Symlink(filepath.Join(gate.JobsDir(), "job-3"), filepath.Join(filepath.Dir(gate.JobsDir()), "stop", "job-3")))
	m.checkJobKillRequests()

	j, ok := m.getJob("job-3", false)
	require.True(t, ok)
	assert.Equal(t, job.Killed, j.ExitState())
	assert.Equal(t, job.Closing, j.State())
}

// S3: quota pressure blocks admission once current_size plus job_size
// would reach the quota and no eligible candidate can be reclaimed.
func TestQuotaPressureDefersAdmission(t *testing.T) {
	root := t.TempDir()
	gate := gatefs.NewGate(gatefs.NewPaths(root, canonicalStates))
	require.NoError(t, gate.EnsureDirs())
	fake := scheduler.NewFake("fake")
	registry := quota.NewRegistry(map[string]quota.Config{
		"demo": {QuotaMB: 1, JobSizeMB: 1, MinLifetime: time.Hour},
	})
	m := New(gate, registry, []scheduler.Adapter{fake}, Config{
		SleepTime:     time.Millisecond,
		ShutdownTime:  10 * time.Millisecond,
		CleanupPool:   1,
		CleanupQueue:  4,
		ServiceSchema: map[string]*schema.ServiceSchema{"demo": testSchema()},
	}, slog.New(slog.NewTextHandler(os.Stdout, nil)))

	svc, err := registry.Get("demo")
	require.NoError(t, err)
	svc.AddJobProxy("job-filler") // saturate current_size so the fast path can't apply

	dropRequest(t, gate, "job-4", map[string]any{
		"service":       "demo",
		"CIS_SCHEDULER": "fake",
		"CIS_COMMAND":   "echo hi",
	})
	m.checkNewJobs(context.Background())

	j, ok := m.getJob("job-4", false)
	require.True(t, ok)
	assert.Equal(t, job.Waiting, j.State())
	assert.False(t, fake.Queued("job-4"))
}

// S5: a running job older than max_runtime is marked for deletion by the
// ageing sweep.
func TestOldRunningJobIsMarkedForDeletion(t *testing.T) {
	m, gate, _ := newTestManager(t)
	svc, err := m.registry.Get("demo")
	require.NoError(t, err)
	svc.Config.MaxRuntime = time.Millisecond

	dropRequest(t, gate, "job-5", map[string]any{
		"service":       "demo",
		"CIS_SCHEDULER": "fake",
		"CIS_COMMAND":   "sleep 100",
	})
	j, ok := m.getJob("job-5", true)
	require.True(t, ok)
	require.NoError(t, j.Run())
	j.Service = "demo"

	time.Sleep(5 * time.Millisecond)
	m.checkOldJobs()

	_, err = os.Lstat(filepath.Join(filepath.Dir(gate.JobsDir()), "delete", "job-5"))
	assert.NoError(t, err)
}

// S6: shutdown drains live jobs, stopping or killing each, and the pools
// join within the grace period.
func TestShutdownDrainsLiveJobs(t *testing.T) {
	m, gate, fake := newTestManager(t)
	dropRequest(t, gate, "job-6", map[string]any{
		"service":       "demo",
		"CIS_SCHEDULER": "fake",
		"CIS_COMMAND":   "sleep 100",
	})
	m.checkNewJobs(context.Background())
	require.True(t, fake.Queued("job-6"))

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Shutdown(ctx))

	j, ok := m.getJob("job-6", false)
	require.True(t, ok)
	assert.True(t, job.IsTerminal(j.State()))
}
