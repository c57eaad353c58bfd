package state

import "strings"

// VMState represents a VM lifecycle state. The state space mirrors the
// provider's server states so that sync can map provider status names
// directly onto local states.
type VMState string

func (s VMState) String() string {
	return string(s)
}

const (
	// Initial states
	StateBuilding VMState = "BUILDING"
	StateBuild    VMState = "BUILD"

	// Running states
	StateActive  VMState = "ACTIVE"
	StateRunning VMState = "RUNNING"

	// Stopped states
	StateStopped VMState = "STOPPED"
	StateShutoff VMState = "SHUTOFF"

	// Transitional states
	StatePaused       VMState = "PAUSED"
	StateSuspended    VMState = "SUSPENDED"
	StateReboot       VMState = "REBOOT"
	StateHardReboot   VMState = "HARD_REBOOT"
	StateResize       VMState = "RESIZE"
	StateVerifyResize VMState = "VERIFY_RESIZE"
	StateMigrating    VMState = "MIGRATING"

	// Error state
	StateError VMState = "ERROR"

	// Terminal states
	StateDeleted     VMState = "DELETED"
	StateSoftDeleted VMState = "SOFT_DELETED"
)

// All enumerates every known state. Guards are total over this set.
func All() []VMState {
	return []VMState{
		StateBuilding, StateBuild,
		StateActive, StateRunning,
		StateStopped, StateShutoff,
		StatePaused, StateSuspended,
		StateReboot, StateHardReboot,
		StateResize, StateVerifyResize, StateMigrating,
		StateError,
		StateDeleted, StateSoftDeleted,
	}
}

// Parse returns the state matching name, or false when the name is not a
// known state value.
func Parse(name string) (VMState, bool) {
	for _, s := range All() {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// IsRunning reports whether s counts as a running state.
func IsRunning(s VMState) bool {
	return s == StateActive || s == StateRunning
}

// IsStopped reports whether s counts as a stopped state.
func IsStopped(s VMState) bool {
	return s == StateStopped || s == StateShutoff
}

// IsTransitioning reports whether s is a transitional state.
func IsTransitioning(s VMState) bool {
	switch s {
	case StateBuilding, StateBuild, StateReboot, StateHardReboot,
		StateResize, StateVerifyResize, StateMigrating:
		return true
	}
	return false
}

// CanStart reports whether a VM in state s may be started.
func CanStart(s VMState) bool {
	return IsStopped(s)
}

// CanStop reports whether a VM in state s may be stopped.
func CanStop(s VMState) bool {
	return IsRunning(s)
}

// CanReboot reports whether a VM in state s may be rebooted.
func CanReboot(s VMState) bool {
	return IsRunning(s)
}

// CanDelete reports whether a VM in state s may be deleted. Deletion is
// allowed from any state except the terminal deleted ones.
func CanDelete(s VMState) bool {
	return s != StateDeleted && s != StateSoftDeleted
}

// FromProviderStatus maps a provider-reported server status to a local
// state. Provider status names equal local state names for the overlapping
// set; anything unrecognized maps to ERROR.
func FromProviderStatus(status string) VMState {
	if s, ok := Parse(strings.ToUpper(status)); ok {
		return s
	}
	return StateError
}
