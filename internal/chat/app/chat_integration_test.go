package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"giveback_client/internal/chat/repository"
	"giveback_client/internal/live"
	noteapp "giveback_client/internal/notification/app"
	noterepo "giveback_client/internal/notification/repository"
	sessionrepo "giveback_client/internal/session/repository"
	"giveback_client/pkg/config"
	"giveback_client/pkg/restclient"
	testtool "giveback_client/pkg/test_tool"

	"github.com/stretchr/testify/assert"
)

type integrationActor struct {
	userID    string
	api       *restclient.Client
	transport live.Transport
	chat      *ChatSession
}

func loginActor(t *testing.T, backend *testtool.FakeBackend, email, password string) *integrationActor {
	ctx := context.Background()

	api := restclient.New(backend.BaseURL, 3*time.Second)
	result, err := sessionrepo.NewAuthRepository(api).Login(ctx, email, password)
	assert.NoError(t, err)
	api.SetToken(result.Token)

	transport := live.NewTransport(config.LiveConfig{
		URL:               backend.WSURL,
		ReconnectAttempts: 2,
		ReconnectDelay:    100 * time.Millisecond,
	}, result.ID, result.Token)
	assert.NoError(t, transport.Connect(ctx))

	return &integrationActor{
		userID:    result.ID,
		api:       api,
		transport: transport,
		chat:      NewChatSession(repository.NewChatRepository(api), transport, result.ID),
	}
}

// 完整流程: donee 對捐贈發起聊天、雙方互傳、echo 去重、通知、preview
func TestChatFlowIntegration(t *testing.T) {
	backend, shutdown, err := testtool.StartFakeBackend()
	assert.NoError(t, err)
	defer shutdown()

	backend.AddUser("Donor Dan", "donor@example.com", "pass1234", "donor")
	backend.AddUser("Donee Dee", "donee@example.com", "pass1234", "donee")

	ctx := context.Background()
	donee := loginActor(t, backend, "donee@example.com", "pass1234")
	donor := loginActor(t, backend, "donor@example.com", "pass1234")
	defer donee.transport.Close()
	defer donor.transport.Close()

	// donee 發起聊天
	exists, err := donee.chat.Exists(ctx, donor.userID, "donation-1")
	assert.NoError(t, err)
	assert.False(t, exists)

	groupID, err := donee.chat.Initiate(ctx, donor.userID, "donation-1", "Winter coat",
		"Hi, I am interested in your Winter coat.")
	assert.NoError(t, err)
	assert.NotEmpty(t, groupID)

	exists, err = donee.chat.Exists(ctx, donor.userID, "donation-1")
	assert.NoError(t, err)
	assert.True(t, exists)

	// 重複發起 (連點) 仍是同一個群組
	again, err := donee.chat.Initiate(ctx, donor.userID, "donation-1", "Winter coat",
		"Hi, I am interested in your Winter coat.")
	assert.NoError(t, err)
	assert.Equal(t, groupID, again)

	// 兩邊都打開該聊天室，等 join 生效
	assert.NoError(t, donee.chat.Select(ctx, groupID))
	assert.NoError(t, donor.chat.Select(ctx, groupID))
	assert.Eventually(t, func() bool {
		return backend.RoomSize(groupID) == 2
	}, 2*time.Second, 20*time.Millisecond)

	// 歷史裡有 initial message
	assert.Len(t, donee.chat.Messages(), 1)
	assert.Equal(t, "Hi, I am interested in your Winter coat.", donee.chat.Messages()[0].Content)

	// donor 掛上通知彙整
	donorNotes := noteapp.NewAggregator(noterepo.NewNotificationRepository(donor.api), donor.transport, donor.userID)
	assert.NoError(t, donorNotes.Load(ctx))
	assert.NoError(t, donorNotes.MarkAllAsRead(ctx))

	// donee 送訊息: donor 即時收到，donee 自己只有一份 (echo 被壓掉)
	sent, err := donee.chat.Send(ctx, "Is it still available?")
	assert.NoError(t, err)
	assert.NotEmpty(t, sent.ID)

	assert.Eventually(t, func() bool {
		msgs := donor.chat.Messages()
		return len(msgs) == 2 && msgs[1].Content == "Is it still available?"
	}, 2*time.Second, 20*time.Millisecond)

	// echo 已經回來 (donor 收到了)，donee 的列表仍只有兩則
	assert.Len(t, donee.chat.Messages(), 2)

	// 房間內收到訊息本體，通知也同步進 badge
	assert.Eventually(t, func() bool {
		return donorNotes.UnreadCount() == 1
	}, 2*time.Second, 20*time.Millisecond)
	note := donorNotes.All()[len(donorNotes.All())-1]
	assert.Equal(t, donee.userID, note.Sender)
	assert.Equal(t, groupID, note.ChatGroupID)

	// donor 回覆，donee 收到
	_, err = donor.chat.Send(ctx, "Yes, when can you pick it up?")
	assert.NoError(t, err)
	assert.Eventually(t, func() bool {
		return len(donee.chat.Messages()) == 3
	}, 2*time.Second, 20*time.Millisecond)

	// 長訊息的列表 preview 截斷到 50 字
	long := strings.Repeat("thanks ", 20)
	_, err = donee.chat.Send(ctx, long)
	assert.NoError(t, err)

	groups, err := donee.chat.Groups(ctx)
	assert.NoError(t, err)
	assert.Len(t, groups, 1)
	assert.Equal(t, []rune(long)[:50], []rune(groups[0].Preview())[:50])
	assert.True(t, strings.HasSuffix(groups[0].Preview(), "..."))

	// 離開聊天室後的訊息不進 view
	donee.chat.Close()
	_, err = donor.chat.Send(ctx, "One more thing")
	assert.NoError(t, err)
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, donee.chat.Messages())
}
