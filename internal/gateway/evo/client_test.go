package evo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/config"
)

func evoForTest(baseURL string) *Client {
	return New(config.EvoConfig{BaseURL: baseURL, APIKey: "evo-key"}, 5*time.Second, zap.NewNop())
}

func TestBuildEndpointConventions(t *testing.T) {
	cases := []struct {
		name     string
		baseURL  string
		sendPath string
		want     string
	}{
		{
			name:     "url aponta direto para uma rota de envio",
			baseURL:  "https://gw.example.com/message/sendText",
			sendPath: "sendMedia",
			want:     "https://gw.example.com/message/sendMedia/5511999998888",
		},
		{
			name:     "sufixo de envio é trocado sem diferenciar caixa",
			baseURL:  "https://gw.example.com/message/sendwhatsappaudio",
			sendPath: "sendText",
			want:     "https://gw.example.com/message/sendText/5511999998888",
		},
		{
			name:     "url termina em /message",
			baseURL:  "https://gw.example.com/message",
			sendPath: "sendText",
			want:     "https://gw.example.com/message/sendText/5511999998888",
		},
		{
			name:     "url é só o host",
			baseURL:  "https://gw.example.com",
			sendPath: "sendWhatsAppAudio",
			want:     "https://gw.example.com/message/sendWhatsAppAudio/5511999998888",
		},
		{
			name:     "barras finais são descartadas",
			baseURL:  "https://gw.example.com///",
			sendPath: "sendText",
			want:     "https://gw.example.com/message/sendText/5511999998888",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := evoForTest(tc.baseURL).buildEndpoint(tc.sendPath, "5511999998888")
			if got != tc.want {
				t.Fatalf("endpoint %q, esperava %q", got, tc.want)
			}
		})
	}
}

func TestSendTextPayloadAndAuth(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	err := evoForTest(srv.URL).SendText(context.Background(), "5511999998888", "5511988887777", "Olá Ana")
	if err != nil {
		t.Fatalf("enviar: %v", err)
	}
	if gotPath != "/message/sendText/5511999998888" {
		t.Fatalf("rota inesperada: %q", gotPath)
	}
	if gotKey != "evo-key" {
		t.Fatalf("header apikey ausente")
	}
	if gotBody["number"] != "5511988887777" || gotBody["text"] != "Olá Ana" {
		t.Fatalf("payload inesperado: %+v", gotBody)
	}
}

func TestSendAudioRequestsVoiceNote(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if err := evoForTest(srv.URL).SendAudio(context.Background(), "55119", "55118", "QUJD"); err != nil {
		t.Fatalf("enviar: %v", err)
	}

	options, _ := gotBody["options"].(map[string]any)
	if options["presence"] != "recording" || options["encoding"] != true {
		t.Fatalf("nota de voz exige presence recording e encoding: %+v", options)
	}
	audio, _ := gotBody["audioMessage"].(map[string]any)
	if audio["audio"] != "QUJD" {
		t.Fatalf("payload de áudio inesperado: %+v", audio)
	}
}

func TestSendMediaDefaultsFileName(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if err := evoForTest(srv.URL).SendMedia(context.Background(), "55119", "55118", "document", "QUJD", "", "legenda"); err != nil {
		t.Fatalf("enviar: %v", err)
	}

	media, _ := gotBody["mediaMessage"].(map[string]any)
	if media["fileName"] != "document.bin" {
		t.Fatalf("fileName padrão inesperado: %+v", media)
	}
	if media["caption"] != "legenda" || media["mediaType"] != "document" {
		t.Fatalf("payload de mídia inesperado: %+v", media)
	}
}

func TestSendTextSurfacesGatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("instance offline"))
	}))
	defer srv.Close()

	err := evoForTest(srv.URL).SendText(context.Background(), "55119", "55118", "oi")
	if err == nil {
		t.Fatalf("status 502 deveria virar erro")
	}
}
