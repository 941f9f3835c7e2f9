// Package messaging carries re-invocations over NATS.
//
// When a sync runs out of budget the remaining resources document is
// published with a Reinvoker. Workers started with the worker command
// consume the subject in a shared queue group and run the document again.
package messaging
