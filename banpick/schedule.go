// Package banpick implements the map ban/pick ritual played before a match.
//
// Two teams take turns over a shared map pool:
//
//  1. Team A bans a map.
//  2. Team B bans a map.
//  3. Team A picks the map to play.
//
// Every step is decided by a team vote. A step resolves when one map collects
// votes from a majority of the acting team (the quorum). The session ends after
// the pick, or earlier when a single candidate map is left in the pool.
package banpick

type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

func (s Side) Valid() bool {
	return s == SideA || s == SideB
}

type Action string

const (
	ActionBan  Action = "ban"
	ActionPick Action = "pick"
)

func (a Action) Valid() bool {
	return a == ActionBan || a == ActionPick
}

// Step is one prescribed turn of the ritual.
type Step struct {
	Side   Side   `json:"team"`
	Action Action `json:"action"`
}

var schedule = [...]Step{
	{Side: SideA, Action: ActionBan},
	{Side: SideB, Action: ActionBan},
	{Side: SideA, Action: ActionPick},
}

// StepCount is the number of steps in a full ritual.
const StepCount = len(schedule)

// StepAt returns the step prescribed for index i, or false past the end of the ritual.
func StepAt(i int) (Step, bool) {
	if i < 0 || i >= StepCount {
		return Step{}, false
	}
	return schedule[i], true
}

// Quorum is the number of matching votes needed from a team of the given size: ceil(size/2).
func Quorum(teamSize int) int {
	return (teamSize + 1) / 2
}
