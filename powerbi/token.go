package powerbi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

type accessToken struct {
	Value     string
	ExpiresAt time.Time
}

// GetAccessToken retourne le token mis en cache tant qu'il reste valide
// au-delà de la marge de sécurité, sinon en acquiert un nouveau.
// Un token sur le point d'expirer n'est jamais retourné.
func (s *Service) GetAccessToken() (string, error) {
	s.tokenMu.Lock()
	defer s.tokenMu.Unlock()

	margin := time.Duration(s.cfg.TokenMarginSeconds) * time.Second
	if s.token.Value != "" && time.Now().Add(margin).Before(s.token.ExpiresAt) {
		return s.token.Value, nil
	}

	s.log("[TOKEN] acquiring new access token")
	tok, err := s.acquireToken()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuth, err)
	}
	s.token = tok
	return tok.Value, nil
}

// acquireToken : grant client_credentials contre le endpoint OAuth2 du tenant
func (s *Service) acquireToken() (accessToken, error) {
	endpoint := strings.TrimRight(s.cfg.AuthURL, "/") + "/" + s.cfg.TenantID + "/oauth2/v2.0/token"
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.cfg.ClientID)
	form.Set("client_secret", s.cfg.ClientSecret)
	form.Set("scope", "https://analysis.windows.net/powerbi/api/.default")

	resp, err := s.httpc.PostForm(endpoint, form)
	if err != nil {
		return accessToken{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		bb, _ := io.ReadAll(resp.Body)
		return accessToken{}, &apiError{Status: resp.StatusCode, Body: string(bb)}
	}
	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return accessToken{}, err
	}
	if body.AccessToken == "" {
		return accessToken{}, fmt.Errorf("token endpoint returned no access_token")
	}
	return accessToken{
		Value:     body.AccessToken,
		ExpiresAt: time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	}, nil
}
