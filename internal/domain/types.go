package domain

import "time"

type MessageID string
type EntryID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Surface identifies one of the two independent conversation surfaces.
// Each surface owns a disjoint message partition, its own session anchor
// key, and its own quota policy.
type Surface string

const (
	SurfaceChat        Surface = "chat"
	SurfaceReflections Surface = "reflections"
)

type Timestamp = time.Time
