package pipeline

import "github.com/tempopipe/tempopipe/envelope"

// closable is the type-erased shape a component tracks: a thunk
// capturing a specific Receiver[T]'s Close method, so Component can close
// every receiver it owns without itself being generic.
type closable func(finalTime envelope.DateTime)

// Component is a named unit of pipeline work: a bundle of Emitters and
// Receivers that all execute under one SyncContext, so that within a
// single component, handling one message to completion never races with
// handling another (spec §4.E: "serialized per component").
type Component struct {
	Name     string
	pipeline *Pipeline
	sync     *SyncContext
	closers  []closable
}

// Sync returns the component's synchronization context, for receivers or
// subpipeline bridges that must share its serialization boundary.
func (c *Component) Sync() *SyncContext { return c.sync }

// Pipeline returns the owning pipeline.
func (c *Component) Pipeline() *Pipeline { return c.pipeline }

func (c *Component) trackCloser(fn closable) {
	c.closers = append(c.closers, fn)
}

// Close invokes every tracked receiver's Close with finalTime.
func (c *Component) Close(finalTime envelope.DateTime) {
	for _, fn := range c.closers {
		fn(finalTime)
	}
}
