package attendance

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	got, err := Normalize([]Mark{
		{StudentID: 1, EventID: 2},
		{StudentID: 1, EventID: 2, Session: "pm", Type: " out "},
	})
	require.NoError(t, err)
	assert.Equal(t, []Mark{
		{StudentID: 1, EventID: 2, Session: "AM", Type: "IN"},
		{StudentID: 1, EventID: 2, Session: "PM", Type: "OUT"},
	}, got)
}

func TestNormalizeRejects(t *testing.T) {
	tests := []struct {
		name  string
		marks []Mark
	}{
		{name: "empty", marks: nil},
		{name: "missing student", marks: []Mark{{EventID: 2}}},
		{name: "missing event", marks: []Mark{{StudentID: 1}}},
		{name: "bad session", marks: []Mark{{StudentID: 1, EventID: 2, Session: "NOON"}}},
		{name: "bad type", marks: []Mark{{StudentID: 1, EventID: 2, Type: "LATE"}}},
		{name: "one bad among good", marks: []Mark{{StudentID: 1, EventID: 2}, {StudentID: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.marks)
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestParseSessionAndType(t *testing.T) {
	s, ok := ParseSession("")
	assert.True(t, ok)
	assert.Equal(t, AM, s)
	s, ok = ParseSession("xx")
	assert.False(t, ok)
	assert.Equal(t, AM, s)
	typ, ok := ParseType("Out")
	assert.True(t, ok)
	assert.Equal(t, Out, typ)
	typ, ok = ParseType("?")
	assert.False(t, ok)
	assert.Equal(t, In, typ)
}
