package repository

import (
	"context"

	"giveback_client/internal/donation/domain"
	"giveback_client/pkg/restclient"
)

// DonationRepository definition donation endpoints
type DonationRepository interface {
	Create(ctx context.Context, input domain.DonationInput, imagePath string) (*domain.Donation, error)
	List(ctx context.Context) ([]domain.Donation, error)
	FindByID(ctx context.Context, donationID string) (*domain.Donation, error)
	FindByDonor(ctx context.Context, donorID string) ([]domain.Donation, error)
}

type donationRepository struct {
	api *restclient.Client
}

// NewDonationRepository create a DonationRepository
func NewDonationRepository(api *restclient.Client) DonationRepository {
	return &donationRepository{api: api}
}

// Create multipart 上傳，image 可省略，需要 bearer token
func (r *donationRepository) Create(ctx context.Context, input domain.DonationInput, imagePath string) (*domain.Donation, error) {
	fields := map[string]string{
		"itemName":    input.ItemName,
		"description": input.Description,
		"category":    input.Category,
		"location":    input.Location,
	}
	var created domain.Donation
	if err := r.api.PostMultipart(ctx, "/api/donations/donate", fields, "image", imagePath, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *donationRepository) List(ctx context.Context) ([]domain.Donation, error) {
	var donations []domain.Donation
	if err := r.api.Get(ctx, "/api/donations", &donations); err != nil {
		return nil, err
	}
	return donations, nil
}

func (r *donationRepository) FindByID(ctx context.Context, donationID string) (*domain.Donation, error) {
	var donation domain.Donation
	if err := r.api.Get(ctx, "/api/donations/"+donationID, &donation); err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *donationRepository) FindByDonor(ctx context.Context, donorID string) ([]domain.Donation, error) {
	var donations []domain.Donation
	if err := r.api.Get(ctx, "/api/donations/donor/"+donorID, &donations); err != nil {
		return nil, err
	}
	return donations, nil
}
