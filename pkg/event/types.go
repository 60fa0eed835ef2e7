package event

// Source identifies the channel that triggered an event.
type Source string

const (
	SourceAPI       Source = "API"
	SourceWeb       Source = "WEB"
	SourceScheduler Source = "SCHEDULER"
	SourceUnknown   Source = "UNKNOWN"
)

// Scope identifies the kind of entity an event is about.
type Scope string

const (
	ScopeFeature       Scope = "FEATURE"
	ScopeStore         Scope = "STORE"
	ScopeProperty      Scope = "PROPERTY"
	ScopePropertyStore Scope = "PROPERTYSTORE"
	ScopeEventStore    Scope = "EVENTSTORE"
	ScopeUnknown       Scope = "UNKNOWN"
)

// Action is what happened to the target.
type Action string

const (
	ActionCreate       Action = "CREATE"
	ActionUpdate       Action = "UPDATE"
	ActionDelete       Action = "DELETE"
	ActionHit          Action = "HIT"
	ActionCreateSchema Action = "CREATE_SCHEMA"
	ActionPurge        Action = "PURGE"
	ActionToggleOn     Action = "TOGGLE_ON"
	ActionToggleOff    Action = "TOGGLE_OFF"
)

// Dimension selects the event field hit counts are grouped by.
type Dimension string

const (
	DimensionTarget Dimension = "target"
	DimensionSource Dimension = "source"
	DimensionUser   Dimension = "user"
	DimensionHost   Dimension = "host"
)

// Key returns the value of e along dimension d.
func (d Dimension) Key(e Event) string {
	switch d {
	case DimensionSource:
		return string(e.Source)
	case DimensionUser:
		return e.User
	case DimensionHost:
		return e.Host
	default:
		return e.TargetUID
	}
}

// Valid reports whether d is a known dimension.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionTarget, DimensionSource, DimensionUser, DimensionHost:
		return true
	}
	return false
}
