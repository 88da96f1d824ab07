package face

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/pkg/errors"
)

// Descriptor is a face embedding produced by the recognition model.
type Descriptor []float32

// ParseDescriptor decodes the JSON array stored in students.face_encoding.
func ParseDescriptor(s string) (Descriptor, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty face encoding")
	}
	var d Descriptor
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return nil, errors.Wrap(err, "decode face encoding")
	}
	if len(d) == 0 {
		return nil, errors.New("empty face encoding")
	}
	return d, nil
}

// String encodes d as the JSON array stored in the database.
func (d Descriptor) String() string {
	b, _ := json.Marshal([]float32(d))
	return string(b)
}

// Distance is the Euclidean distance between two descriptors. Descriptors
// of different length are infinitely far apart.
func (d Descriptor) Distance(other Descriptor) float64 {
	if len(d) != len(other) || len(d) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range d {
		diff := float64(d[i]) - float64(other[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
