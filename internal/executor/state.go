package executor

// State identifies where the executor is in its decision cycle. State only
// changes inside Tick.
type State string

const (
	// StateIdle means no plan is active and nothing is in flight.
	StateIdle State = "idle"

	// StatePlanning means a plan search is running for the current subgoal.
	StatePlanning State = "planning"

	// StateExecuting means a plan is active and its next action is being
	// dispatched or awaited.
	StateExecuting State = "executing"

	// StateActionFailed means the in-flight action just reported failure
	// and a repair decision is pending.
	StateActionFailed State = "action_failed"

	// StateRepairing means the repairer is searching for a suffix that
	// rescues the active plan.
	StateRepairing State = "repairing"

	// StateReplanning means the active plan was discarded and the supplier
	// has been asked for a fresh subgoal.
	StateReplanning State = "replanning"

	// StateGoalAchieved means the active plan ran to completion.
	StateGoalAchieved State = "goal_achieved"

	// StateReflexActive means a safety reflex preempted the tick. The
	// executor returns to the state it held before the reflex fired.
	StateReflexActive State = "reflex_active"
)

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}

// CanTransitionTo validates whether the current state can transition to the
// target state. It enforces the following state machine:
//
//	idle -> planning
//	planning -> executing, goal_achieved, idle
//	executing -> action_failed, goal_achieved, planning, idle
//	action_failed -> repairing, replanning
//	repairing -> executing, replanning
//	replanning -> planning, idle
//	goal_achieved -> idle
//
// reflex_active is reachable from every state and may return to any state,
// because a reflex preempts whatever the executor was doing and hands back
// control where it left off.
func (s State) CanTransitionTo(target State) bool {
	if s == StateReflexActive || target == StateReflexActive {
		return true
	}

	allowedTransitions := map[State][]State{
		StateIdle: {
			StatePlanning,
		},
		StatePlanning: {
			StateExecuting,
			StateGoalAchieved,
			StateIdle,
		},
		StateExecuting: {
			StateActionFailed,
			StateGoalAchieved,
			StatePlanning,
			StateIdle,
		},
		StateActionFailed: {
			StateRepairing,
			StateReplanning,
		},
		StateRepairing: {
			StateExecuting,
			StateReplanning,
		},
		StateReplanning: {
			StatePlanning,
			StateIdle,
		},
		StateGoalAchieved: {
			StateIdle,
		},
	}

	allowedTargets, exists := allowedTransitions[s]
	if !exists {
		return false
	}

	for _, allowedTarget := range allowedTargets {
		if allowedTarget == target {
			return true
		}
	}
	return false
}
