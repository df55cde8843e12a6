// Package quota implements per-service disk accounting and the garbage
// collector that reclaims space from terminal jobs under quota pressure.
//
// Registry tracks, per service, a current_size (the sum of job_size
// estimates for jobs the registry has been told are in flight) and a
// real_size (the service's last measured bytes on disk). CollectGarbage
// schedules deletions of old terminal jobs to bring current_size back
// under a service's quota; it never reclaims bytes itself — that happens
// once the scheduled deletions are carried out by the job deletion sweep.
package quota
