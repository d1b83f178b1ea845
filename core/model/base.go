package model

// trainState tracks whether a model has completed a successful Train.
type trainState int

const (
	notTrained trainState = iota
	trained
)

// BaseModel carries the trained-state machine shared by all model
// variants. Embed it and call SetTrained at the end of a successful Train.
type BaseModel struct {
	state trainState
}

// IsTrained reports whether the model has been trained.
func (b *BaseModel) IsTrained() bool {
	return b.state == trained
}

// SetTrained marks the model as trained.
func (b *BaseModel) SetTrained() {
	b.state = trained
}

// Reset returns the model to the untrained state. Train implementations
// call this first so a failed retrain does not leave a stale fit marked
// usable.
func (b *BaseModel) Reset() {
	b.state = notTrained
}
