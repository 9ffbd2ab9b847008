package domain

// Comment is an ephemeral chat line. No server-side retention; each client
// keeps only its own bounded log.
type Comment struct {
	UserID  UserID `json:"user_id"`
	Message string `json:"message"`
}

// MaxComments bounds the locally retained chat history.
const MaxComments = 40

// CommentLog keeps the newest MaxComments comments in arrival order.
// Not safe for concurrent use; callers confine it to one goroutine.
type CommentLog struct {
	entries []Comment
}

func (l *CommentLog) Append(c Comment) {
	l.entries = append(l.entries, c)
	if len(l.entries) > MaxComments {
		l.entries = l.entries[len(l.entries)-MaxComments:]
	}
}

// Entries returns the retained comments, oldest first.
func (l *CommentLog) Entries() []Comment {
	out := make([]Comment, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *CommentLog) Len() int {
	return len(l.entries)
}
