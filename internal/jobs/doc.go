// Package jobs keeps the progress of background extractions started
// through the HTTP API.
//
// A Store persists model.JobState records. Three backends exist:
//   - MemoryStore for a single process
//   - SQLStore on the sqlite history database, so jobs survive restarts
//   - RedisStore so several API processes can share job states
//
// The Tracker turns pipeline step events and progress into JobState
// updates, and the Runner executes jobs in the background with a bounded
// number of workers. The crawler and the asset pipeline never see a job;
// progress flows out of them through callbacks only.
package jobs
