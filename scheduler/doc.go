// Package scheduler defines the contract the job lifecycle drives batch
// scheduler backends through, plus two concrete adapters: a PBS-style
// cluster queue driven via qsub/qstat/qdel, and an SSH-dispatched shell
// executor driven via golang.org/x/crypto/ssh.
//
// The core only ever talks to the Adapter interface; GenerateScripts,
// ChainInputData, Submit, Update and Stop run on the JobManager's own
// goroutine and may block on backend I/O, while Finalise and Abort are
// expected to be called from a cleanup worker.
package scheduler
