package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go-consultation-service/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrCallSessionFailed is returned when the call session provider rejects or
// times out a request. Creation failures trigger compensation in the
// appointment usecase; end failures are logged and swallowed there.
var ErrCallSessionFailed = errors.New("call session provider request failed")

// CallMember identifies a participant of a call session
type CallMember struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// CallMetadata is attached to the remote session as custom data
type CallMetadata struct {
	AppointmentID string    `json:"appointment_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

// CallSessionProvider provisions live call sessions and mints per-participant
// join tokens. Implementations talk to an unreliable remote dependency; every
// call is bounded by the configured timeout.
type CallSessionProvider interface {
	CreateSession(ctx context.Context, sessionID string, members []CallMember, meta CallMetadata) error
	EndSession(ctx context.Context, sessionID string) error
	MintToken(sessionID string, userID uuid.UUID) (string, error)
}

// streamProvider is a Stream-style video API client. Session management goes
// over REST authenticated with a server-side JWT; join tokens are HS256 JWTs
// signed with the API secret and scoped to a single call.
type streamProvider struct {
	cfg    config.StreamConfig
	log    *logrus.Logger
	client *http.Client
}

func NewStreamProvider(cfg config.StreamConfig, log *logrus.Logger) CallSessionProvider {
	return &streamProvider{
		cfg: cfg,
		log: log,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type createSessionRequest struct {
	Data struct {
		StartsAt time.Time    `json:"starts_at"`
		Members  []CallMember `json:"members"`
		Custom   CallMetadata `json:"custom"`
	} `json:"data"`
}

func (p *streamProvider) CreateSession(ctx context.Context, sessionID string, members []CallMember, meta CallMetadata) error {
	var body createSessionRequest
	body.Data.StartsAt = meta.StartTime
	body.Data.Members = members
	body.Data.Custom = meta

	url := fmt.Sprintf("%s/video/call/default/%s", p.cfg.BaseURL, sessionID)
	if err := p.do(ctx, http.MethodPost, url, &body); err != nil {
		p.log.Warnf("Failed to create call session %s: %+v", sessionID, err)
		return err
	}

	p.log.Infof("Call session created: %s", sessionID)
	return nil
}

func (p *streamProvider) EndSession(ctx context.Context, sessionID string) error {
	url := fmt.Sprintf("%s/video/call/default/%s/end", p.cfg.BaseURL, sessionID)
	if err := p.do(ctx, http.MethodPost, url, nil); err != nil {
		p.log.Warnf("Failed to end call session %s: %+v", sessionID, err)
		return err
	}
	return nil
}

// MintToken issues a fresh join token for one participant, scoped to a single
// call. Tokens carry a unique id, so two successive mints never collide.
func (p *streamProvider) MintToken(sessionID string, userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":   userID.String(),
		"call_cids": []string{"default:" + sessionID},
		"iss":       p.cfg.APIKey,
		"jti":       uuid.New().String(),
		"iat":       now.Unix(),
		"exp":       now.Add(p.cfg.TokenValidity).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(p.cfg.APISecret))
	if err != nil {
		return "", fmt.Errorf("sign join token for session %s: %w", sessionID, err)
	}

	return signed, nil
}

func (p *streamProvider) do(ctx context.Context, method, url string, body interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	serverToken, err := p.serverToken()
	if err != nil {
		return fmt.Errorf("sign server token: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", serverToken)
	req.Header.Set("Stream-Auth-Type", "jwt")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCallSessionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrCallSessionFailed, resp.StatusCode, detail)
	}

	return nil
}

// serverToken mints a short-lived server-to-server auth JWT
func (p *streamProvider) serverToken() (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"server": true,
		"iss":    p.cfg.APIKey,
		"iat":    now.Unix(),
		"exp":    now.Add(5 * time.Minute).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(p.cfg.APISecret))
}
