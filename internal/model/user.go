package model

// Action is a recorded user interaction with a job.
type Action string

const (
	ActionLike      Action = "like"
	ActionApply     Action = "apply"
	ActionSuperLike Action = "super_like"
	ActionSave      Action = "save"
	ActionDislike   Action = "dislike"
)

// Weight is the signed contribution of the action to the history signal.
func (a Action) Weight() float64 {
	switch a {
	case ActionLike, ActionApply:
		return 1.0
	case ActionSuperLike:
		return 1.5
	case ActionSave:
		return 0.8
	case ActionDislike:
		return -1.0
	}
	return 0
}

// UserProfile is the read-only view of a user needed for ranking.
type UserProfile struct {
	ID               string         `json:"id"`
	Skills           []string       `json:"skills"`
	ExperienceTitles []string       `json:"experienceTitles"`
	Location         string         `json:"location"`
	Resume           map[string]any `json:"resume,omitempty"`
}
