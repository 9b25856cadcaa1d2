package schema

import "github.com/google/uuid"

// Identifier constructors. Ids are opaque to clients; the prefixes exist for
// log readability only.

func NewTaskID() string {
	return "task_" + uuid.NewString()
}

func NewContextID() string {
	return "ctx_" + uuid.NewString()
}

func NewArtifactID() string {
	return "art_" + uuid.NewString()
}

func NewPushConfigID() string {
	return "pnc_" + uuid.NewString()
}
