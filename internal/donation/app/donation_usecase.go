package app

import (
	"context"

	"giveback_client/internal/donation/domain"
	"giveback_client/internal/donation/repository"
	errprocess "giveback_client/pkg/err"
)

// DonationUseCase 這裡封裝了捐贈 view 的應用邏輯
type DonationUseCase interface {
	Donate(ctx context.Context, input domain.DonationInput, imagePath string) (*domain.Donation, error)
	Browse(ctx context.Context) ([]domain.Donation, error)
	Detail(ctx context.Context, donationID string) (*domain.Donation, error)
	Mine(ctx context.Context, donorID string) ([]domain.Donation, error)
}

type donationUseCase struct {
	repo repository.DonationRepository
}

// NewDonationUseCase 建立一個新的 DonationUseCase
func NewDonationUseCase(repo repository.DonationRepository) DonationUseCase {
	return &donationUseCase{repo: repo}
}

// Donate 建立捐贈，送出前做必填檢查
func (uc *donationUseCase) Donate(ctx context.Context, input domain.DonationInput, imagePath string) (*domain.Donation, error) {
	if field := input.MissingField(); field != "" {
		return nil, errprocess.Validation(field + " is required")
	}
	return uc.repo.Create(ctx, input, imagePath)
}

// Browse donee 瀏覽全部捐贈
func (uc *donationUseCase) Browse(ctx context.Context) ([]domain.Donation, error) {
	return uc.repo.List(ctx)
}

// Detail 單筆捐贈
func (uc *donationUseCase) Detail(ctx context.Context, donationID string) (*domain.Donation, error) {
	if donationID == "" {
		return nil, errprocess.Validation("donation id is required")
	}
	return uc.repo.FindByID(ctx, donationID)
}

// Mine donor 自己的捐贈列表
func (uc *donationUseCase) Mine(ctx context.Context, donorID string) ([]domain.Donation, error) {
	return uc.repo.FindByDonor(ctx, donorID)
}
