package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/quickreceipt/core"
)

var ErrNotFound = errors.New("client not found")

type (
	// Repository methods are scoped to the owning user: a client owned by
	// another user is reported as ErrNotFound.
	Repository interface {
		CreateClient(ctx context.Context, c Client, exec ...core.DBExecutor) (Client, error)
		// QueryClients returns the user's clients ordered by name.
		// QueryFilter.Search does a case-insensitive match on one of name, email or whatsapp.
		QueryClients(ctx context.Context, userID string, filter QueryFilter) ([]Client, error)
		GetClient(ctx context.Context, userID, id string, exec ...core.DBExecutor) (Client, error)
		UpdateClient(ctx context.Context, c Client) (Client, error)
		// DeleteClient also detaches the client from its receipts.
		DeleteClient(ctx context.Context, userID, id string) error
		CountClients(ctx context.Context, userID string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// New builds an unsaved Client owned by userID.
func New(userID string, data ClientData) Client {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return Client{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      data.Name,
		WhatsApp:  data.WhatsApp,
		Email:     data.Email,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (svc *Service) Create(ctx context.Context, userID string, data ClientData) (Client, error) {
	return svc.repo.CreateClient(ctx, New(userID, data))
}

func (svc *Service) Query(ctx context.Context, userID string, filter QueryFilter) ([]Client, error) {
	return svc.repo.QueryClients(ctx, userID, filter)
}

// Map returns the user's clients keyed by ID.
func (svc *Service) Map(ctx context.Context, userID string) (map[string]Client, error) {
	clients, err := svc.repo.QueryClients(ctx, userID, QueryFilter{})
	if err != nil {
		return nil, err
	}
	m := make(map[string]Client, len(clients))
	for _, c := range clients {
		m[c.ID] = c
	}
	return m, nil
}

func (svc *Service) Get(ctx context.Context, userID, id string) (Client, error) {
	return svc.repo.GetClient(ctx, userID, id)
}

func (svc *Service) Update(ctx context.Context, c Client, data ClientData) (Client, error) {
	c.Name = data.Name
	c.WhatsApp = data.WhatsApp
	c.Email = data.Email
	c.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	return svc.repo.UpdateClient(ctx, c)
}

func (svc *Service) Delete(ctx context.Context, userID, id string) error {
	return svc.repo.DeleteClient(ctx, userID, id)
}

func (svc *Service) Count(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountClients(ctx, userID)
}
