package directory

import (
	"context"
	"fmt"
	"net/http"

	"github.com/noah-isme/geoattend-api/internal/models"
	appErrors "github.com/noah-isme/geoattend-api/pkg/errors"
)

// HTTPUserDirectory resolves users against the user service.
type HTTPUserDirectory struct {
	client  *Client
	baseURL string
}

// NewHTTPUserDirectory constructs the user directory.
func NewHTTPUserDirectory(client *Client, baseURL string) *HTTPUserDirectory {
	return &HTTPUserDirectory{client: client, baseURL: baseURL}
}

// FindUser loads one user by id. A 404 from the collaborator fails open to
// the domain user-not-found rejection.
func (d *HTTPUserDirectory) FindUser(ctx context.Context, userID string) (*models.User, error) {
	url := fmt.Sprintf("%s/api/v1/users/%s", d.baseURL, userID)
	var user models.User
	if err := d.client.do(ctx, http.MethodGet, url, nil, &user); err != nil {
		if IsNotFound(err) {
			return nil, appErrors.ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
