// Package classroom implements a classroom reservation service: teachers
// file room requests, administrative staff approve or reject them, and an
// approval atomically produces a booking.
//
// The package exposes three layers:
//
//   - Authentication: password verification, JWT session tokens, and fiber
//     middleware that gates routes by session and by role.
//   - Repositories: bun-backed persistence for users, classrooms, requests
//     and bookings behind a RepositoryManager.
//   - Lifecycle: the request state machine. Approval runs a conditional
//     update guarded on the Pending status inside a transaction, so
//     concurrent approvals of the same request resolve to a single winner
//     and a single booking.
//
// cmd/server wires the layers into an HTTP service.
package classroom
