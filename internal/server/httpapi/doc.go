// Package httpapi exposes the sync endpoints over HTTP:
//
//	POST /api/v1/sync/{kind}   push, pull or delete, dispatched on "action"
//	GET  /health/live          process is up
//	GET  /health/ready         the record store answers
//	GET  /metrics              Prometheus metrics
package httpapi
