package process

// Notes:
// - Only a PID that cannot exist is exercised. PID 0 would target the test's
//   own process group, and real PIDs would kill unrelated processes.
// - Actual teardown is covered by the browser integration tests.

import "testing"

func TestKillProcessGroup_UnknownPID(t *testing.T) {
	t.Parallel()

	KillProcessGroup(999999999)
}
