// Package job defines the stateful representation of a compute job within
// the gatequeue lifecycle.
//
// A Job augments a client's raw request with delivery state: its current
// State, a pending ExitState set before cleanup completes, an ExitCode, and
// the accumulated ExitMessage shown to the client.
//
// Unlike the raw request body, Job carries state-machine fields that are
// maintained exclusively by the JobManager and by cleanup workers acting on
// its behalf (via Finish/Exit). Job is not intended to be constructed
// directly by user code; it is created by loading a request file and
// probing the gate directories for the job's current state.
package job
