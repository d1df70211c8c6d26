// Package evo fala com um gateway de WhatsApp estilo Evolution API.
// O gateway é um colaborador externo; aqui só vive o cliente HTTP.
package evo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/config"
)

// Operadores configuram a URL base de três jeitos diferentes na prática:
// apontando direto para uma rota de envio, parando em /message, ou só o
// host. As três convenções precisam resolver para a mesma rota final.
var (
	sendPathSuffix = regexp.MustCompile(`(?i)/send(Text|Media|WhatsAppAudio)$`)
	messageSuffix  = regexp.MustCompile(`(?i)/message$`)
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

func New(cfg config.EvoConfig, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

func (c *Client) Configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

func (c *Client) buildEndpoint(sendPath, instancePhone string) string {
	if sendPathSuffix.MatchString(c.baseURL) {
		return sendPathSuffix.ReplaceAllString(c.baseURL, "/"+sendPath) + "/" + instancePhone
	}
	if messageSuffix.MatchString(c.baseURL) {
		return c.baseURL + "/" + sendPath + "/" + instancePhone
	}
	return c.baseURL + "/message/" + sendPath + "/" + instancePhone
}

func (c *Client) SendText(ctx context.Context, instancePhone, number, text string) error {
	payload := map[string]any{
		"number": number,
		"text":   text,
	}
	return c.post(ctx, c.buildEndpoint("sendText", instancePhone), payload)
}

// SendAudio envia como nota de voz. O gateway reencoda o arquivo, então
// só formatos de áudio que ele aceita devem chegar aqui.
func (c *Client) SendAudio(ctx context.Context, instancePhone, number, base64Audio string) error {
	payload := map[string]any{
		"number": number,
		"options": map[string]any{
			"presence": "recording",
			"encoding": true,
		},
		"audioMessage": map[string]any{
			"audio": base64Audio,
		},
	}
	return c.post(ctx, c.buildEndpoint("sendWhatsAppAudio", instancePhone), payload)
}

func (c *Client) SendMedia(ctx context.Context, instancePhone, number, mediaType, base64Media, fileName, caption string) error {
	if fileName == "" {
		fileName = mediaType + ".bin"
	}
	payload := map[string]any{
		"number": number,
		"options": map[string]any{
			"presence": "composing",
		},
		"mediaMessage": map[string]any{
			"mediaType": mediaType,
			"fileName":  fileName,
			"caption":   caption,
			"media":     base64Media,
		},
	}
	return c.post(ctx, c.buildEndpoint("sendMedia", instancePhone), payload)
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("evo: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("evo: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("evo: enviar mensagem: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("evo: status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
