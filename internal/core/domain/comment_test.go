package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommentLog_AppendAndOrder(t *testing.T) {
	var log CommentLog

	log.Append(Comment{UserID: 1, Message: "first"})
	log.Append(Comment{UserID: 2, Message: "second"})

	entries := log.Entries()
	assert.Len(t, entries, 2)
	assert.Equal(t, "first", entries[0].Message)
	assert.Equal(t, "second", entries[1].Message)
}

func TestCommentLog_NeverExceedsCap(t *testing.T) {
	var log CommentLog

	for i := 0; i < 500; i++ {
		log.Append(Comment{UserID: UserID(i), Message: fmt.Sprintf("msg-%d", i)})
		assert.LessOrEqual(t, log.Len(), MaxComments)
	}

	entries := log.Entries()
	assert.Len(t, entries, MaxComments)
	// The newest MaxComments entries survive, in arrival order.
	assert.Equal(t, "msg-460", entries[0].Message)
	assert.Equal(t, "msg-499", entries[MaxComments-1].Message)
}

func TestCommentLog_EntriesIsACopy(t *testing.T) {
	var log CommentLog
	log.Append(Comment{UserID: 1, Message: "keep"})

	entries := log.Entries()
	entries[0].Message = "mutated"

	assert.Equal(t, "keep", log.Entries()[0].Message)
}
