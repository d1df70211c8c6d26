package firestore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/config"
	"github.com/dgenny/conecta/internal/model"
)

func testClient(baseURL string) *Client {
	return New(config.FirebaseConfig{
		BaseURL:   baseURL,
		ProjectID: "proj-teste",
		APIKey:    "chave",
		UserID:    "user-1",
	}, 5*time.Second, zap.NewNop())
}

func TestSaveLeadReturnsDocumentID(t *testing.T) {
	var gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{
			"name": "projects/proj-teste/databases/(default)/documents/leads/abc123",
		})
	}))
	defer srv.Close()

	client := testClient(srv.URL)
	id, err := client.SaveLead(context.Background(), model.Lead{
		ID:    "lead_1_x",
		Name:  "Ana",
		Phone: "5511988887777",
	})
	if err != nil {
		t.Fatalf("gravar: %v", err)
	}
	if id != "abc123" {
		t.Fatalf("esperava abc123, obteve %q", id)
	}
	if gotPath != "/projects/proj-teste/databases/(default)/documents/leads" {
		t.Fatalf("rota inesperada: %q", gotPath)
	}

	fields, _ := gotBody["fields"].(map[string]any)
	offline, _ := fields["offlineId"].(map[string]any)
	if offline["stringValue"] != "lead_1_x" {
		t.Fatalf("offlineId deve preservar o id local: %+v", fields)
	}
}

func TestSaveLeadMapsPermissionDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"status":"PERMISSION_DENIED"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).SaveLead(context.Background(), model.Lead{Name: "Ana"})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("esperava ErrPermissionDenied, obteve %v", err)
	}
}

func TestListCampaignsDecodesLegacySchema(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/projects/proj-teste/databases/(default)/documents/users/user-1:runQuery" {
			t.Errorf("rota inesperada: %q", r.URL.Path)
		}
		w.Write([]byte(`[
			{"document":{
				"name":"projects/p/databases/(default)/documents/users/user-1/campaigns/remoto-1",
				"fields":{
					"localId":{"stringValue":"camp-local"},
					"nome":{"stringValue":"Feira 2026"},
					"crmProvider":{"stringValue":"espocrm"},
					"crmStage":{"stringValue":"Prospecting"},
					"mensagens":{"arrayValue":{"values":[
						{"mapValue":{"fields":{
							"id":{"stringValue":"s2"},
							"tipo":{"stringValue":"imagem"},
							"base64":{"stringValue":"aGk="},
							"mimeType":{"stringValue":"image/png"},
							"ordem":{"integerValue":"2"}
						}}},
						{"mapValue":{"fields":{
							"id":{"stringValue":"s1"},
							"tipo":{"stringValue":"texto"},
							"conteudo":{"stringValue":"Olá {{nome}}"},
							"ordem":{"integerValue":"1"}
						}}}
					]}}
				}
			}},
			{"document":{
				"name":"projects/p/databases/(default)/documents/users/user-1/campaigns/remoto-2",
				"fields":{"nome":{"stringValue":"Sem localId"}}
			}},
			{"readTime":"2026-08-29T00:00:00Z"}
		]`))
	}))
	defer srv.Close()

	campaigns, err := testClient(srv.URL).ListCampaigns(context.Background())
	if err != nil {
		t.Fatalf("listar: %v", err)
	}
	if len(campaigns) != 2 {
		t.Fatalf("esperava 2 campanhas, obteve %d", len(campaigns))
	}

	first := campaigns[0]
	if first.ID != "camp-local" {
		t.Fatalf("localId deve prevalecer como chave: %q", first.ID)
	}
	if first.Name != "Feira 2026" || first.CRMProvider != "espocrm" {
		t.Fatalf("campos inesperados: %+v", first)
	}
	if len(first.Steps) != 2 {
		t.Fatalf("esperava 2 passos, obteve %d", len(first.Steps))
	}
	// passos normalizados pela ordem declarada, não pela ordem do array
	if first.Steps[0].ID != "s1" || first.Steps[0].Type != model.StepTypeText {
		t.Fatalf("passo 1 inesperado: %+v", first.Steps[0])
	}
	if first.Steps[1].Type != model.StepTypeImage || first.Steps[1].Data != "aGk=" {
		t.Fatalf("passo 2 inesperado: %+v", first.Steps[1])
	}

	if campaigns[1].ID != "remoto-2" {
		t.Fatalf("sem localId, o id do documento vira a chave: %q", campaigns[1].ID)
	}
}

func TestPingCountsAnyResponseAsReachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	client := testClient(srv.URL)

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("resposta 401 ainda é alcançável: %v", err)
	}

	srv.Close()
	if err := client.Ping(context.Background()); err == nil {
		t.Fatalf("servidor fora do ar deveria falhar o ping")
	}
}
