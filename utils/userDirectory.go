package utils

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

type UserProfile struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserDirectory resolves user ids against the external user service.
type UserDirectory interface {
	GetUser(ctx context.Context, id string) (*UserProfile, error)
}

type HTTPUserDirectory struct {
	client *resty.Client
}

// NewUserDirectory returns nil when baseURL is empty; callers treat a nil
// directory as "no profile lookup available".
func NewUserDirectory(baseURL string, timeout time.Duration) UserDirectory {
	if baseURL == "" {
		return nil
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &HTTPUserDirectory{client: client}
}

func (d *HTTPUserDirectory) GetUser(ctx context.Context, id string) (*UserProfile, error) {
	var envelope struct {
		Status bool         `json:"status"`
		Data   *UserProfile `json:"data"`
	}
	resp, err := d.client.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&envelope).
		Get("/users/{id}")
	if err != nil {
		return nil, fmt.Errorf("user service: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, NotFoundError("user not found")
	}
	if resp.IsError() {
		return nil, fmt.Errorf("user service returned %d", resp.StatusCode())
	}
	if envelope.Data == nil {
		return nil, fmt.Errorf("user service returned an empty profile")
	}
	return envelope.Data, nil
}
