package session

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// userinfoTimeout bounds the identity lookup after sign-in.
const userinfoTimeout = 10 * time.Second

// FetchGoogleIdentity asks the Google identity provider who the holder of
// httpClient's token is.
func FetchGoogleIdentity(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, userinfoTimeout)
	defer cancel()

	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Identity{}, fmt.Errorf("failed to fetch user info: %w", err)
	}

	id := Identity{
		UserID:      info.Id,
		Email:       info.Email,
		DisplayName: info.Name,
	}
	if !id.Valid() {
		return Identity{}, fmt.Errorf("identity provider returned no user id")
	}
	return id, nil
}
