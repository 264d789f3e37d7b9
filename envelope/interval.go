package envelope

// TimeInterval is a closed-closed [left, right] interval over DateTime,
// with MinDateTime/MaxDateTime sentinels standing in for unbounded ends.
type TimeInterval struct {
	Left  DateTime
	Right DateTime
}

// NewTimeInterval builds a closed-closed interval.
func NewTimeInterval(left, right DateTime) TimeInterval {
	return TimeInterval{Left: left, Right: right}
}

// Infinite is the interval spanning the entire representable range.
func Infinite() TimeInterval {
	return TimeInterval{Left: MinDateTime, Right: MaxDateTime}
}

// Contains reports whether d falls within the closed-closed interval.
func (t TimeInterval) Contains(d DateTime) bool {
	return d >= t.Left && d <= t.Right
}

// Intersects reports whether two intervals overlap.
func (t TimeInterval) Intersects(o TimeInterval) bool {
	return t.Left <= o.Right && o.Left <= t.Right
}

// Intersect returns the overlap of two intervals. The second return
// value is false if they do not intersect.
func (t TimeInterval) Intersect(o TimeInterval) (TimeInterval, bool) {
	if !t.Intersects(o) {
		return TimeInterval{}, false
	}
	left := t.Left
	if o.Left > left {
		left = o.Left
	}
	right := t.Right
	if o.Right < right {
		right = o.Right
	}
	return TimeInterval{Left: left, Right: right}, true
}

// RelativeTimeInterval is a TimeInterval expressed as TimeSpan offsets
// from some future anchor, each end independently inclusive or
// exclusive.
type RelativeTimeInterval struct {
	Left           TimeSpan
	LeftInclusive  bool
	Right          TimeSpan
	RightInclusive bool
}

// NewRelativeTimeInterval builds a closed-closed relative interval, the
// common case for window operators.
func NewRelativeTimeInterval(left, right TimeSpan) RelativeTimeInterval {
	return RelativeTimeInterval{Left: left, LeftInclusive: true, Right: right, RightInclusive: true}
}

// Anchor resolves a RelativeTimeInterval to the absolute closed-closed
// TimeInterval [anchor+Left, anchor+Right]. The inclusivity flags are not
// applied to the result; Contains is the check that honours them.
func (r RelativeTimeInterval) Anchor(anchor DateTime) TimeInterval {
	return TimeInterval{Left: anchor.Add(r.Left), Right: anchor.Add(r.Right)}
}

// Contains reports whether, for the given anchor, d falls within the
// relative interval taking inclusivity flags into account.
func (r RelativeTimeInterval) Contains(anchor, d DateTime) bool {
	left := anchor.Add(r.Left)
	right := anchor.Add(r.Right)
	if r.LeftInclusive {
		if d < left {
			return false
		}
	} else if d <= left {
		return false
	}
	if r.RightInclusive {
		if d > right {
			return false
		}
	} else if d >= right {
		return false
	}
	return true
}
