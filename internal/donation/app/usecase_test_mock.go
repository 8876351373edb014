package app

import (
	"context"

	"giveback_client/internal/donation/domain"

	"github.com/stretchr/testify/mock"
)

// MockDonationRepository Mock DonationRepository
type MockDonationRepository struct {
	mock.Mock
}

// Create moke create donation
func (m *MockDonationRepository) Create(ctx context.Context, input domain.DonationInput, imagePath string) (*domain.Donation, error) {
	args := m.Called(ctx, input, imagePath)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Donation), args.Error(1)
	}
	return nil, args.Error(1)
}

// List moke list donations
func (m *MockDonationRepository) List(ctx context.Context) ([]domain.Donation, error) {
	args := m.Called(ctx)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Donation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByID moke find donation by id
func (m *MockDonationRepository) FindByID(ctx context.Context, donationID string) (*domain.Donation, error) {
	args := m.Called(ctx, donationID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Donation), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByDonor moke find donations by donor id
func (m *MockDonationRepository) FindByDonor(ctx context.Context, donorID string) ([]domain.Donation, error) {
	args := m.Called(ctx, donorID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Donation), args.Error(1)
	}
	return nil, args.Error(1)
}
