package pipeline

import "errors"

// ErrPipelineStopped is returned by operations attempted after a
// Pipeline's Stop has been called.
var ErrPipelineStopped = errors.New("pipeline: stopped")

// ErrOutOfOrderPost is returned when a message's OriginatingTime does not
// strictly exceed the last one posted on the same Emitter, violating the
// per-source ordering invariant (spec §3 data-model invariants).
var ErrOutOfOrderPost = errors.New("pipeline: message posted out of originating-time order")

// ErrNoSubpipelineForKey reports that no subpipeline exists for a key.
// Nothing in this module returns it: temporal.Parallel creates a branch
// for every key it is posted.
var ErrNoSubpipelineForKey = errors.New("pipeline: no subpipeline for key")
