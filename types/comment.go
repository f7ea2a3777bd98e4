package types

import (
	"unicode/utf8"

	"github.com/bytedance/sonic"
)

// CommentCapacity is the number of bytes an APRS comment may hold, excluding the terminator.
const CommentCapacity = 63

// CommentText is a fixed-capacity, NUL-terminated text buffer.
// The zero value is an empty comment. Values can only grow through Set,
// which truncates, so the terminator always sits inside the buffer.
type CommentText struct {
	buf [CommentCapacity + 1]byte
	n   int
}

// NewCommentText builds a comment from s, truncated to CommentCapacity.
func NewCommentText(s string) CommentText {
	var t CommentText
	t.Set(s)
	return t
}

// Set replaces the content. Text longer than the capacity is cut at the last
// rune boundary that fits.
func (t *CommentText) Set(s string) {
	if len(s) > CommentCapacity {
		cut := CommentCapacity
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	t.buf = [CommentCapacity + 1]byte{}
	t.n = copy(t.buf[:CommentCapacity], s)
}

func (t CommentText) String() string {
	return string(t.buf[:t.n])
}

func (t CommentText) Len() int {
	return t.n
}

// Bytes returns the terminated fixed-size buffer as stored on the device.
func (t CommentText) Bytes() [CommentCapacity + 1]byte {
	return t.buf
}

func (t CommentText) MarshalJSON() ([]byte, error) {
	return sonic.Marshal(t.String())
}

func (t *CommentText) UnmarshalJSON(data []byte) error {
	var s string
	if err := sonic.Unmarshal(data, &s); err != nil {
		return err
	}
	t.Set(s)
	return nil
}
