package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollMessage(t *testing.T) {
	msg, err := NewEnroll(EnrollJob{StudentID: 7, PhotoURL: "https://img/7.jpg"})
	require.NoError(t, err)
	assert.Equal(t, TypeEnroll, msg.Type)

	job, err := msg.Enroll()
	require.NoError(t, err)
	assert.Equal(t, EnrollJob{StudentID: 7, PhotoURL: "https://img/7.jpg"}, job)

	_, err = Message{Type: "other", Body: msg.Body}.Enroll()
	assert.Error(t, err)
	_, err = Message{Type: TypeEnroll, Body: []byte(`{"student_id":7}`)}.Enroll()
	assert.Error(t, err)
}

func TestInMemory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q := NewInMemory(4)

	msg, err := NewEnroll(EnrollJob{StudentID: 1, PhotoURL: "https://img/1.jpg"})
	require.NoError(t, err)
	require.NoError(t, q.Publish(ctx, msg))

	ch, err := q.Consume(ctx)
	require.NoError(t, err)
	select {
	case got := <-ch:
		assert.Equal(t, TypeEnroll, got.Type)
	case <-time.After(time.Second):
		t.Fatal("no message consumed")
	}

	cancel()
	_, open := <-ch
	assert.False(t, open, "consume channel closes on cancel")
}
