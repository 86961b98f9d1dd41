package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"travel-booking-service/internal/models"
)

// UserClient calls the user service for traveler validation and details.
type UserClient struct {
	baseClient
}

// NewUserClient creates a user service client
func NewUserClient(baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{baseClient: newBaseClient(baseURL, timeout)}
}

// Validate reports whether the user id refers to a valid traveler.
// Idempotent and read-only.
func (c *UserClient) Validate(ctx context.Context, userID int64) (bool, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d/validate", userID), nil)
	if err != nil {
		return false, err
	}

	var data struct {
		Valid bool `json:"valid"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return false, fmt.Errorf("malformed validation payload: %w", err)
	}
	return data.Valid, nil
}

// GetDetails fetches the traveler profile
func (c *UserClient) GetDetails(ctx context.Context, userID int64) (*models.User, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d", userID), nil)
	if err != nil {
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(env.Data, &user); err != nil {
		return nil, fmt.Errorf("malformed user payload: %w", err)
	}
	return &user, nil
}
