package app

import (
	"context"
	"sync"
	"time"

	"giveback_client/internal/live"
	"giveback_client/internal/session/domain"
	"giveback_client/internal/session/repository"
	"giveback_client/pkg/encrypt"
	errprocess "giveback_client/pkg/err"
	"giveback_client/pkg/localstore"
	"giveback_client/pkg/logger"
	"giveback_client/pkg/restclient"
	"giveback_client/pkg/token"

	"go.uber.org/zap"
)

const sessionKey = "session"

// TransportFactory 建立綁定某使用者的 live 連線
type TransportFactory func(userID, bearer string) live.Transport

// SessionUseCase 這裡封裝了登入狀態與 live 連線的生命週期
// session 是明確傳遞的 handle，不是全域狀態
type SessionUseCase interface {
	Login(ctx context.Context, email, password string) (*domain.Session, error)
	Register(ctx context.Context, name, email, password string, role domain.Role) error
	Restore(ctx context.Context) (*domain.Session, error)
	Logout() error
	Current() *domain.Session
	Live(ctx context.Context) (live.Transport, error)
}

type sessionUseCase struct {
	authRepo repository.AuthRepository
	store    localstore.Repository[domain.StoredSession]
	sealKey  []byte
	api      *restclient.Client
	newLive  TransportFactory

	mu        sync.Mutex
	current   *domain.Session
	transport live.Transport
}

// NewSessionUseCase 建立一個新的 SessionUseCase
func NewSessionUseCase(
	authRepo repository.AuthRepository,
	store localstore.Repository[domain.StoredSession],
	sealKey []byte,
	api *restclient.Client,
	newLive TransportFactory,
) SessionUseCase {
	uc := &sessionUseCase{
		authRepo: authRepo,
		store:    store,
		sealKey:  sealKey,
		api:      api,
		newLive:  newLive,
	}
	// 401 的全域副作用: 清除持久化憑證，下一次 guard 檢查導向登入
	api.OnUnauthorized(uc.invalidate)
	return uc
}

// Login 呼叫後端登入並持久化憑證
func (s *sessionUseCase) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	if email == "" || password == "" {
		return nil, errprocess.Validation("email and password are required")
	}

	result, err := s.authRepo.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	session := &domain.Session{
		Token: result.Token,
		User: domain.User{
			ID:    result.ID,
			Email: result.Email,
			Role:  result.Role,
		},
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	// 換帳號登入時，舊連線必須先收掉再換 user id
	if s.transport != nil && s.transport.UserID() != session.User.ID {
		s.transport.Close()
		s.transport = nil
	}
	s.current = session
	s.mu.Unlock()

	s.api.SetToken(session.Token)
	s.persist(ctx, session)

	logger.Log.Info("user logged in", zap.String("userID", session.User.ID), zap.String("role", string(session.User.Role)))
	return session, nil
}

// Register 註冊新帳號，成功後仍需 Login
func (s *sessionUseCase) Register(ctx context.Context, name, email, password string, role domain.Role) error {
	if name == "" || email == "" || password == "" {
		return errprocess.Validation("name, email and password are required")
	}
	if role != domain.RoleDonor && role != domain.RoleDonee {
		return errprocess.Validation("userType must be donor or donee")
	}
	return s.authRepo.Register(ctx, name, email, password, role)
}

// Restore 啟動時回復持久化的 session；token 過期視為未登入
func (s *sessionUseCase) Restore(ctx context.Context) (*domain.Session, error) {
	stored, err := s.store.Get(ctx, sessionKey)
	if err != nil {
		if err == localstore.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}

	plain, err := encrypt.Open(s.sealKey, stored.SealedToken)
	if err != nil {
		logger.Log.Warn("stored token unreadable, discarding", zap.String("err", err.Error()))
		s.store.Del(ctx, sessionKey)
		return nil, nil
	}

	ok, err := token.CheckNotExpired(string(plain))
	if err != nil || !ok {
		logger.Log.Info("stored token expired, discarding")
		s.store.Del(ctx, sessionKey)
		return nil, nil
	}

	session := &domain.Session{
		Token:     string(plain),
		User:      stored.User,
		CreatedAt: stored.SavedAt,
	}

	s.mu.Lock()
	s.current = session
	s.mu.Unlock()
	s.api.SetToken(session.Token)

	logger.Log.Info("session restored", zap.String("userID", session.User.ID))
	return session, nil
}

// Logout 唯一允許關閉 live 連線的收尾路徑
func (s *sessionUseCase) Logout() error {
	s.invalidate()
	logger.Log.Info("user logged out")
	return nil
}

// Current 目前的 session，未登入為 nil
func (s *sessionUseCase) Current() *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Live 取得 session 範圍的 live 連線
// 連線延遲建立，同一 user id 只會有一條；多個 view 共用
func (s *sessionUseCase) Live(ctx context.Context) (live.Transport, error) {
	s.mu.Lock()
	session := s.current
	if session == nil {
		s.mu.Unlock()
		return nil, errprocess.ErrUnauthorized
	}
	t := s.transport
	if t == nil {
		t = s.newLive(session.User.ID, session.Token)
		s.transport = t
	}
	s.mu.Unlock()

	// Connect 已連線時是 no-op；首連失敗的 transport 在下一次 Live 重試，
	// 排隊中的 join 等事件連上後補發
	if err := t.Connect(ctx); err != nil {
		// 連線失敗仍回傳 transport：emit 會排隊，斷線重連由 transport 處理
		logger.Log.Errorf("live connect error:", err)
	}
	return t, nil
}

// invalidate 清除持久化憑證與記憶體狀態，並收掉 live 連線
func (s *sessionUseCase) invalidate() {
	s.mu.Lock()
	transport := s.transport
	s.transport = nil
	s.current = nil
	s.mu.Unlock()

	if transport != nil {
		transport.Close()
	}
	s.api.ClearToken()
	if err := s.store.Del(context.Background(), sessionKey); err != nil {
		logger.Log.Errorf("failed to clear stored session:", err)
	}
}

func (s *sessionUseCase) persist(ctx context.Context, session *domain.Session) {
	sealed, err := encrypt.Seal(s.sealKey, []byte(session.Token))
	if err != nil {
		logger.Log.Errorf("failed to seal token:", err)
		return
	}
	stored := domain.StoredSession{
		SealedToken: sealed,
		User:        session.User,
		SavedAt:     session.CreatedAt,
	}
	if err := s.store.Set(ctx, sessionKey, stored); err != nil {
		logger.Log.Errorf("failed to persist session:", err)
	}
}
