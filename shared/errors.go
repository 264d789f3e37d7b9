package shared

import "errors"

// ErrDoubleFree is returned when a Shared value is released more times
// than it was acquired -- a programmer error per spec §7.
var ErrDoubleFree = errors.New("shared: double free")

// ErrUseAfterFree is returned when a released Shared value's resource is
// dereferenced.
var ErrUseAfterFree = errors.New("shared: use after free")

// ErrPoolHasLiveObjects is returned by Pool.Reset when clearLive is
// false and instances are still outstanding.
var ErrPoolHasLiveObjects = errors.New("shared: pool has live objects")
