package face

// DefaultThreshold is the largest distance still accepted as a match.
const DefaultThreshold = 0.4

// Labeled binds a descriptor to a student.
type Labeled struct {
	StudentID  int64
	Descriptor Descriptor
}

// Match is the best candidate for a detected face.
type Match struct {
	StudentID int64
	Distance  float64
}

// Matcher finds the closest known student for a descriptor.
type Matcher struct {
	known     []Labeled
	threshold float64
}

// NewMatcher builds a matcher. A non-positive threshold uses DefaultThreshold.
func NewMatcher(known []Labeled, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{known: known, threshold: threshold}
}

// Len returns the number of known descriptors.
func (m *Matcher) Len() int { return len(m.known) }

// Match returns the closest known student. ok is false when nothing is
// known or the best distance is at or above the threshold.
func (m *Matcher) Match(d Descriptor) (best Match, ok bool) {
	if len(m.known) == 0 {
		return Match{}, false
	}
	best = Match{Distance: -1}
	for _, k := range m.known {
		dist := d.Distance(k.Descriptor)
		if best.Distance < 0 || dist < best.Distance {
			best = Match{StudentID: k.StudentID, Distance: dist}
		}
	}
	return best, best.Distance < m.threshold
}
