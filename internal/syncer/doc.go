// Package syncer drains the offline submission queue against the remote
// inspection API.
//
// Triggers are deliberately few: an explicit submit (which bypasses the queue
// when online and falls back to it on failure), process start, and an
// offline-to-online connectivity transition. There are no scheduled retries.
//
// A drain attempts pending records strictly sequentially in store key order
// and stops the whole cycle at the first delivery failure. This keeps the
// pending count monotonically non-increasing within a cycle at the cost of
// head-of-line blocking by one persistently failing target. Records are
// acknowledged (deleted) only after confirmed remote success, so a crash
// mid-drain leaves the queue crash-consistent: at-least-once delivery, with
// the per-target key bounding duplication.
//
// Concurrent drain triggers are coalesced, never interleaved: a trigger that
// arrives while a drain is in flight schedules exactly one follow-up pass.
package syncer
