package avatar

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultGravatarURL = "https://www.gravatar.com"

var ErrNoGravatar = errors.New("no gravatar for email")

type Gravatar struct {
	BaseURL string
	Client  *http.Client
}

func NewGravatar() *Gravatar {
	return &Gravatar{
		BaseURL: DefaultGravatarURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// Lookup returns the gravatar image URL for email, or ErrNoGravatar when the
// address has no image registered.
func (g *Gravatar) Lookup(ctx context.Context, email string) (string, error) {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	url := strings.TrimRight(g.BaseURL, "/") + "/avatar/" + hex.EncodeToString(sum[:])

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url+"?d=404", nil)
	if err != nil {
		return "", err
	}
	res, err := g.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("gravatar: %w", err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return "", ErrNoGravatar
	case res.StatusCode >= 400:
		return "", fmt.Errorf("gravatar: unexpected status %d", res.StatusCode)
	}
	return url, nil
}
