package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	chatapp "giveback_client/internal/chat/app"
	chatrepo "giveback_client/internal/chat/repository"
	donationapp "giveback_client/internal/donation/app"
	donationdomain "giveback_client/internal/donation/domain"
	donationrepo "giveback_client/internal/donation/repository"
	"giveback_client/internal/guard"
	"giveback_client/internal/live"
	noteapp "giveback_client/internal/notification/app"
	noterepo "giveback_client/internal/notification/repository"
	sessionapp "giveback_client/internal/session/app"
	sessiondomain "giveback_client/internal/session/domain"
	sessionrepo "giveback_client/internal/session/repository"
	"giveback_client/pkg/config"
	"giveback_client/pkg/encrypt"
	"giveback_client/pkg/localstore"
	"giveback_client/pkg/logger"
	"giveback_client/pkg/restclient"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.Client, config.EnvConfig.ClientLogPath)
	cfg := config.LoadConfig[config.Client](config.EnvConfig.Client, config.EnvConfig.ClientYAMLPath)

	// 1. 本機儲存 (session 存放)
	db, err := localstore.Open(cfg.Store.Path)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("open local store err : %v", err))
	}
	defer db.Close()

	sessionStore, err := localstore.NewBoltRepository[sessiondomain.StoredSession](db, "session")
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("create session bucket err : %v", err))
	}

	sealKey, err := encrypt.LoadOrCreateKey(cfg.Store.KeyPath)
	if err != nil {
		logger.Log.Fatal(fmt.Sprintf("load seal key err : %v", err))
	}

	// 2. REST client
	api := restAPI(cfg)

	// 3. 初始化 Repository
	authRepo := sessionrepo.NewAuthRepository(api)
	chatRepo := chatrepo.NewChatRepository(api)
	noteRepo := noterepo.NewNotificationRepository(api)
	donationRepo := donationrepo.NewDonationRepository(api)

	// 4. 初始化 UseCases
	newLive := func(userID, bearer string) live.Transport {
		return live.NewTransport(cfg.Live, userID, bearer)
	}
	sessionUC := sessionapp.NewSessionUseCase(authRepo, sessionStore, sealKey, api, newLive)
	donationUC := donationapp.NewDonationUseCase(donationRepo)

	// 5. 還原上次 session
	ctx := context.Background()
	if s, err := sessionUC.Restore(ctx); err == nil && s != nil {
		fmt.Printf("welcome back, %s\n", s.User.Email)
	}

	runREPL(ctx, sessionUC, donationUC, chatRepo, noteRepo)
}

type cliState struct {
	sessionUC  sessionapp.SessionUseCase
	donationUC donationapp.DonationUseCase
	chatRepo   chatrepo.ChatRepository
	noteRepo   noterepo.NotificationRepository

	chat  *chatapp.ChatSession
	notes *noteapp.Aggregator
}

func runREPL(ctx context.Context,
	sessionUC sessionapp.SessionUseCase,
	donationUC donationapp.DonationUseCase,
	chatRepo chatrepo.ChatRepository,
	noteRepo noterepo.NotificationRepository,
) {
	st := &cliState{
		sessionUC:  sessionUC,
		donationUC: donationUC,
		chatRepo:   chatRepo,
		noteRepo:   noteRepo,
	}

	fmt.Println("giveback client ready, type 'help'")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if fields[0] == "quit" || fields[0] == "exit" {
			break
		}
		cmdCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		if err := st.dispatch(cmdCtx, fields[0], fields[1:]); err != nil {
			fmt.Printf("error: %v\n", err)
		}
		cancel()
	}

	if st.chat != nil {
		st.chat.Close()
	}
	_ = st.sessionUC.Logout()
}

// requireRole 進入需登入操作前的守門，回傳是否放行
// role 為空代表只要求已登入
func (st *cliState) requireRole(role sessiondomain.Role) bool {
	decision := guard.CheckAny(st.sessionUC.Current())
	if role != "" {
		decision = guard.Check(st.sessionUC.Current(), role)
	}
	switch decision {
	case guard.RedirectLogin:
		fmt.Println("please login first")
		return false
	case guard.RedirectHome:
		fmt.Println("your account type cannot use this command")
		return false
	}
	return true
}

func (st *cliState) dispatch(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "help":
		printHelp()
	case "login":
		return st.login(ctx, args)
	case "register":
		return st.register(ctx, args)
	case "logout":
		st.detachAll()
		return st.sessionUC.Logout()
	case "whoami":
		s := st.sessionUC.Current()
		if !s.IsAuthenticated() {
			fmt.Println("not logged in")
			return nil
		}
		fmt.Printf("%s (%s) %s\n", s.User.Email, s.User.Role, s.User.ID)
	case "donations":
		return st.browse(ctx)
	case "donation":
		if len(args) < 1 {
			return fmt.Errorf("usage: donation <id>")
		}
		return st.detail(ctx, args[0])
	case "mine":
		return st.mine(ctx)
	case "donate":
		return st.donate(ctx, args)
	case "chats":
		return st.chats(ctx)
	case "open":
		if len(args) < 1 {
			return fmt.Errorf("usage: open <chat-group-id>")
		}
		return st.openChat(ctx, args[0])
	case "send":
		return st.send(ctx, strings.Join(args, " "))
	case "initiate":
		return st.initiate(ctx, args)
	case "notifications":
		return st.notifications(ctx)
	case "read":
		if len(args) < 1 {
			return fmt.Errorf("usage: read <notification-id>")
		}
		return st.markRead(ctx, args[0])
	case "read-all":
		return st.markAllRead(ctx)
	default:
		fmt.Printf("unknown command %q, type 'help'\n", cmd)
	}
	return nil
}

func (st *cliState) login(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: login <email> <password>")
	}
	st.detachAll()
	s, err := st.sessionUC.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", s.User.Email, s.User.Role)
	return nil
}

func (st *cliState) register(ctx context.Context, args []string) error {
	if len(args) < 4 {
		return fmt.Errorf("usage: register <name> <email> <password> <donor|donee>")
	}
	role := sessiondomain.Role(args[3])
	if role != sessiondomain.RoleDonor && role != sessiondomain.RoleDonee {
		return fmt.Errorf("role must be donor or donee")
	}
	if err := st.sessionUC.Register(ctx, args[0], args[1], args[2], role); err != nil {
		return err
	}
	fmt.Println("registered, you can login now")
	return nil
}

func (st *cliState) browse(ctx context.Context) error {
	list, err := st.donationUC.Browse(ctx)
	if err != nil {
		return err
	}
	for _, d := range list {
		fmt.Printf("%s  [%s] %s (%s) - %s\n", d.ID, d.Status, d.ItemName, d.Category, d.Location)
	}
	if len(list) == 0 {
		fmt.Println("no donations yet")
	}
	return nil
}

func (st *cliState) detail(ctx context.Context, id string) error {
	d, err := st.donationUC.Detail(ctx, id)
	if err != nil {
		return err
	}
	fmt.Printf("%s [%s]\n%s\ncategory: %s, location: %s\ndonor: %s <%s>\n",
		d.ItemName, d.Status, d.Description, d.Category, d.Location, d.Donor.Name, d.Donor.Email)
	if d.ImageURL != "" {
		fmt.Printf("image: %s\n", d.ImageURL)
	}
	return nil
}

func (st *cliState) mine(ctx context.Context) error {
	if !st.requireRole(sessiondomain.RoleDonor) {
		return nil
	}
	list, err := st.donationUC.Mine(ctx, st.sessionUC.Current().User.ID)
	if err != nil {
		return err
	}
	for _, d := range list {
		fmt.Printf("%s  [%s] %s\n", d.ID, d.Status, d.ItemName)
	}
	if len(list) == 0 {
		fmt.Println("you have no donations yet")
	}
	return nil
}

func (st *cliState) donate(ctx context.Context, args []string) error {
	if !st.requireRole(sessiondomain.RoleDonor) {
		return nil
	}
	// donate <item>|<description>|<category>|<location>[|<image path>]
	parts := strings.Split(strings.Join(args, " "), "|")
	if len(parts) < 4 {
		return fmt.Errorf("usage: donate <item>|<description>|<category>|<location>[|<image path>]")
	}
	imagePath := ""
	if len(parts) > 4 {
		imagePath = strings.TrimSpace(parts[4])
	}
	d, err := st.donationUC.Donate(ctx, toInput(parts), imagePath)
	if err != nil {
		return err
	}
	fmt.Printf("donation created: %s\n", d.ID)
	return nil
}

func (st *cliState) liveChat(ctx context.Context) (*chatapp.ChatSession, error) {
	if st.chat != nil {
		return st.chat, nil
	}
	transport, err := st.sessionUC.Live(ctx)
	if err != nil {
		return nil, err
	}
	st.chat = chatapp.NewChatSession(st.chatRepo, transport, st.sessionUC.Current().User.ID)
	return st.chat, nil
}

func (st *cliState) chats(ctx context.Context) error {
	if !st.requireRole("") {
		return nil
	}
	chat, err := st.liveChat(ctx)
	if err != nil {
		return err
	}
	groups, err := chat.Groups(ctx)
	if err != nil {
		return err
	}
	for _, g := range groups {
		fmt.Printf("%s  %s: %s\n", g.ID, g.GroupName, g.Preview())
	}
	if len(groups) == 0 {
		fmt.Println("no chats yet")
	}
	return nil
}

func (st *cliState) openChat(ctx context.Context, groupID string) error {
	if !st.requireRole("") {
		return nil
	}
	chat, err := st.liveChat(ctx)
	if err != nil {
		return err
	}
	if err := chat.Select(ctx, groupID); err != nil {
		return err
	}
	for _, m := range chat.Messages() {
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Format("15:04"), m.Sender, m.Content)
	}
	return nil
}

func (st *cliState) send(ctx context.Context, content string) error {
	if !st.requireRole("") {
		return nil
	}
	if st.chat == nil || st.chat.GroupID() == "" {
		return fmt.Errorf("open a chat first")
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("usage: send <message>")
	}
	m, err := st.chat.Send(ctx, content)
	if err != nil {
		return err
	}
	fmt.Printf("sent %s\n", m.ID)
	return nil
}

func (st *cliState) initiate(ctx context.Context, args []string) error {
	if !st.requireRole(sessiondomain.RoleDonee) {
		return nil
	}
	if len(args) < 3 {
		return fmt.Errorf("usage: initiate <donor-id> <donation-id> <item name...>")
	}
	chat, err := st.liveChat(ctx)
	if err != nil {
		return err
	}
	itemName := strings.Join(args[2:], " ")
	groupID, err := chat.Initiate(ctx, args[0], args[1], itemName,
		fmt.Sprintf("Hi, I am interested in your %s.", itemName))
	if err != nil {
		return err
	}
	fmt.Printf("chat group: %s\n", groupID)
	return chat.Select(ctx, groupID)
}

func (st *cliState) liveNotes(ctx context.Context) (*noteapp.Aggregator, error) {
	if st.notes != nil {
		return st.notes, nil
	}
	transport, err := st.sessionUC.Live(ctx)
	if err != nil {
		return nil, err
	}
	st.notes = noteapp.NewAggregator(st.noteRepo, transport, st.sessionUC.Current().User.ID)
	if err := st.notes.Load(ctx); err != nil {
		st.notes = nil
		return nil, err
	}
	return st.notes, nil
}

func (st *cliState) notifications(ctx context.Context) error {
	if !st.requireRole("") {
		return nil
	}
	notes, err := st.liveNotes(ctx)
	if err != nil {
		return err
	}
	for _, n := range notes.All() {
		mark := " "
		if !n.Read {
			mark = "*"
		}
		fmt.Printf("%s %s  %s: %s\n", mark, n.ID, n.Sender, n.Content)
	}
	fmt.Printf("%d unread\n", notes.UnreadCount())
	return nil
}

func (st *cliState) markRead(ctx context.Context, id string) error {
	if !st.requireRole("") {
		return nil
	}
	notes, err := st.liveNotes(ctx)
	if err != nil {
		return err
	}
	return notes.MarkAsRead(ctx, id)
}

func (st *cliState) markAllRead(ctx context.Context) error {
	if !st.requireRole("") {
		return nil
	}
	notes, err := st.liveNotes(ctx)
	if err != nil {
		return err
	}
	return notes.MarkAllAsRead(ctx)
}

// detachAll 換帳號或登出前把 live 狀態收乾淨
func (st *cliState) detachAll() {
	if st.chat != nil {
		st.chat.Close()
		st.chat = nil
	}
	if st.notes != nil {
		st.notes.Detach()
		st.notes = nil
	}
}

func restAPI(cfg config.Client) *restclient.Client {
	return restclient.New(cfg.API.BaseURL, cfg.API.Timeout)
}

func toInput(parts []string) donationdomain.DonationInput {
	return donationdomain.DonationInput{
		ItemName:    strings.TrimSpace(parts[0]),
		Description: strings.TrimSpace(parts[1]),
		Category:    strings.TrimSpace(parts[2]),
		Location:    strings.TrimSpace(parts[3]),
	}
}

func printHelp() {
	fmt.Print(`commands:
  login <email> <password>
  register <name> <email> <password> <donor|donee>
  logout / whoami / quit
  donations / donation <id> / mine
  donate <item>|<description>|<category>|<location>[|<image path>]
  chats / open <chat-group-id> / send <message>
  initiate <donor-id> <donation-id> <item name...>
  notifications / read <id> / read-all
`)
}
