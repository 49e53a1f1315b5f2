package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

var ErrGoogleIdentityMismatch = errors.New("google identity does not match")

// GoogleProfile is what the Google userinfo endpoint reports for a token.
type GoogleProfile struct {
	Email         string
	Name          string
	Picture       string
	EmailVerified bool
}

// GoogleVerifier resolves a Google access token to the profile it belongs to.
type GoogleVerifier interface {
	Verify(ctx context.Context, accessToken string) (*GoogleProfile, error)
}

// UserinfoVerifier asks Google's userinfo API who owns an access token.
type UserinfoVerifier struct {
	opts []option.ClientOption
}

func NewUserinfoVerifier(opts ...option.ClientOption) *UserinfoVerifier {
	return &UserinfoVerifier{opts: opts}
}

func (v *UserinfoVerifier) Verify(ctx context.Context, accessToken string) (*GoogleProfile, error) {
	if accessToken == "" {
		return nil, ErrGoogleIdentityMismatch
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, v.opts...)

	svc, err := googleoauth.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating oauth2 service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetching userinfo: %w", err)
	}

	verified := false
	if info.VerifiedEmail != nil {
		verified = *info.VerifiedEmail
	}

	return &GoogleProfile{
		Email:         strings.ToLower(info.Email),
		Name:          info.Name,
		Picture:       info.Picture,
		EmailVerified: verified,
	}, nil
}
