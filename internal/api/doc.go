// Package api serves brand extractions over HTTP.
//
// # Endpoints
//
//   - POST /api/scrape: start a background extraction, returns 202 and a job ID
//   - GET /api/progress/{id}: current state of a job
//   - GET /api/download/{id}: zip archive of a completed job's output
//   - GET /api/health: liveness probe
//
// Every response carries CORS headers and OPTIONS preflight requests are
// answered without reaching the handlers, so a browser front end on another
// origin can drive the API.
//
// Jobs are executed by a jobs.Runner, which bounds how many extractions run
// at once. Job states live in the runner's store, so progress is visible
// to every API process sharing a Redis or sqlite store.
package api
