package unit

import (
	"strings"
	"testing"
	"time"

	"giveback_client/internal/chat/domain"

	"github.com/stretchr/testify/assert"
)

func TestChatGroupPreview(t *testing.T) {
	short := domain.ChatGroup{LastMessage: "see you tomorrow"}
	assert.Equal(t, "see you tomorrow", short.Preview())

	long := domain.ChatGroup{LastMessage: strings.Repeat("a", 60)}
	assert.Equal(t, strings.Repeat("a", 50)+"...", long.Preview())

	// 50 字剛好不截斷
	exact := domain.ChatGroup{LastMessage: strings.Repeat("b", 50)}
	assert.Equal(t, strings.Repeat("b", 50), exact.Preview())

	// 多位元組字元按字數算，不能切在位元組中間
	cjk := domain.ChatGroup{LastMessage: strings.Repeat("謝", 60)}
	assert.Equal(t, strings.Repeat("謝", 50)+"...", cjk.Preview())

	empty := domain.ChatGroup{}
	assert.Equal(t, "", empty.Preview())
}

func TestChatMessageIsDuplicateOf(t *testing.T) {
	now := time.Now()
	base := domain.ChatMessage{
		ID: "msg-1", ChatGroupID: "group-1", Sender: "user-1", Content: "hello", CreatedAt: now,
	}

	sameID := domain.ChatMessage{
		ID: "msg-1", Sender: "user-1", Content: "changed", CreatedAt: now.Add(time.Hour),
	}
	assert.True(t, base.IsDuplicateOf(&sameID), "same id is duplicate")

	echo := domain.ChatMessage{
		ID: "msg-2", Sender: "user-1", Content: "hello", CreatedAt: now.Add(800 * time.Millisecond),
	}
	assert.True(t, base.IsDuplicateOf(&echo), "same sender+content within window is duplicate")
	assert.True(t, echo.IsDuplicateOf(&base), "window check is symmetric")

	repeat := domain.ChatMessage{
		ID: "msg-3", Sender: "user-1", Content: "hello", CreatedAt: now.Add(3 * time.Second),
	}
	assert.False(t, base.IsDuplicateOf(&repeat), "same text outside window is a new message")

	otherSender := domain.ChatMessage{
		ID: "msg-4", Sender: "user-2", Content: "hello", CreatedAt: now,
	}
	assert.False(t, base.IsDuplicateOf(&otherSender))

	// 兩邊都沒有 id 時只看 sender+content+時間
	noID := domain.ChatMessage{Sender: "user-1", Content: "hello", CreatedAt: now}
	noID2 := domain.ChatMessage{Sender: "user-1", Content: "hello", CreatedAt: now.Add(100 * time.Millisecond)}
	assert.True(t, noID.IsDuplicateOf(&noID2))
}
