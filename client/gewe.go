// Package client is a minimal Gewe HTTP API client covering the message
// send endpoints the toolkit needs. Every call posts a JSON body with the
// account token in X-GEWE-TOKEN and decodes the {ret,msg,data} envelope.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"gewe-lab/domain"
)

const requestTimeout = 15 * time.Second

// APIError is a non-200 ret from the platform.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gewe api error %d: %s", e.Code, e.Message)
}

// Client talks to one Gewe account (token + app id).
type Client struct {
	log        *slog.Logger
	httpClient *http.Client
	baseURL    string
	token      string
	appID      string
}

func New(log *slog.Logger, baseURL, token, appID string) *Client {
	return &Client{
		log:        log,
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    baseURL,
		token:      token,
		appID:      appID,
	}
}

type envelope struct {
	Ret  int             `json:"ret"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (c *Client) endpoint(path string) string {
	return strings.TrimSuffix(c.baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
}

func (c *Client) postAPI(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GEWE-TOKEN", c.token)
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode response from %s: %w", path, err)
	}
	if env.Ret != http.StatusOK {
		return nil, &APIError{Code: env.Ret, Message: env.Msg}
	}
	return env.Data, nil
}

type sendTextRequest struct {
	AppID   string `json:"appId"`
	ToWxid  string `json:"toWxid"`
	Content string `json:"content"`
	Ats     string `json:"ats,omitempty"`
}

type postImageRequest struct {
	AppID  string `json:"appId"`
	ToWxid string `json:"toWxid"`
	ImgURL string `json:"imgUrl"`
}

type postVoiceRequest struct {
	AppID         string `json:"appId"`
	ToWxid        string `json:"toWxid"`
	VoiceURL      string `json:"voiceUrl"`
	VoiceDuration int    `json:"voiceDuration"`
}

type postVideoRequest struct {
	AppID         string `json:"appId"`
	ToWxid        string `json:"toWxid"`
	VideoURL      string `json:"videoUrl"`
	ThumbURL      string `json:"thumbUrl"`
	VideoDuration int    `json:"videoDuration"`
}

type postLinkRequest struct {
	AppID    string `json:"appId"`
	ToWxid   string `json:"toWxid"`
	Title    string `json:"title"`
	Desc     string `json:"desc"`
	LinkURL  string `json:"linkUrl"`
	ThumbURL string `json:"thumbUrl"`
}

func (c *Client) SendText(ctx context.Context, to, content string) error {
	_, err := c.postAPI(ctx, "gewe/v2/api/message/postText",
		sendTextRequest{AppID: c.appID, ToWxid: to, Content: content})
	return err
}

func (c *Client) SendImage(ctx context.Context, to, imgURL string) error {
	_, err := c.postAPI(ctx, "gewe/v2/api/message/postImage",
		postImageRequest{AppID: c.appID, ToWxid: to, ImgURL: imgURL})
	return err
}

func (c *Client) SendVoice(ctx context.Context, to, voiceURL string, duration int) error {
	_, err := c.postAPI(ctx, "gewe/v2/api/message/postVoice",
		postVoiceRequest{AppID: c.appID, ToWxid: to, VoiceURL: voiceURL, VoiceDuration: duration})
	return err
}

func (c *Client) SendVideo(ctx context.Context, to, videoURL, thumbURL string, duration int) error {
	_, err := c.postAPI(ctx, "gewe/v2/api/message/postVideo",
		postVideoRequest{AppID: c.appID, ToWxid: to, VideoURL: videoURL, ThumbURL: thumbURL, VideoDuration: duration})
	return err
}

func (c *Client) SendLink(ctx context.Context, to string, link domain.LinkPayload) error {
	_, err := c.postAPI(ctx, "gewe/v2/api/message/postLink", postLinkRequest{
		AppID:    c.appID,
		ToWxid:   to,
		Title:    link.Title,
		Desc:     link.Desc,
		LinkURL:  link.URL,
		ThumbURL: link.ThumbURL,
	})
	return err
}

// Send implements contract.Transport for the dispatcher. Media durations
// and thumbnails default to zero values, matching the CLI's TYPE:CONTENT
// surface which has no field for them.
func (c *Client) Send(ctx context.Context, target string, msg domain.OutboundMessage) error {
	switch msg.Kind {
	case domain.MessageText:
		return c.SendText(ctx, target, msg.Content)
	case domain.MessageImage:
		return c.SendImage(ctx, target, msg.Content)
	case domain.MessageVoice:
		return c.SendVoice(ctx, target, msg.Content, 0)
	case domain.MessageVideo:
		return c.SendVideo(ctx, target, msg.Content, "", 0)
	case domain.MessageLink:
		if msg.Link == nil {
			return fmt.Errorf("link message without payload")
		}
		return c.SendLink(ctx, target, *msg.Link)
	default:
		return fmt.Errorf("unsupported message kind %q", msg.Kind)
	}
}
