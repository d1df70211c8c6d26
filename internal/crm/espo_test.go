package crm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func espoForTest(url string) *EspoAdapter {
	return NewEspoAdapter(url, "chave-teste", 5*time.Second, zap.NewNop())
}

func TestSendLeadCreatesContact(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Api-Key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"id":"c1"}`))
	}))
	defer srv.Close()

	err := espoForTest(srv.URL).SendLead(context.Background(), LeadPayload{
		Name:    "Ana Maria Souza",
		Company: "Acme",
		Phone:   "5511988887777",
	})
	if err != nil {
		t.Fatalf("enviar: %v", err)
	}
	if gotPath != "/api/v1/Contact" {
		t.Fatalf("rota inesperada: %q", gotPath)
	}
	if gotKey != "chave-teste" {
		t.Fatalf("header X-Api-Key ausente")
	}
	if gotBody["firstName"] != "Ana" || gotBody["lastName"] != "Maria Souza" {
		t.Fatalf("nome mal dividido: %+v", gotBody)
	}
}

func TestSendLeadFallsBackToLeadEntity(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/api/v1/Contact" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"id":"l1"}`))
	}))
	defer srv.Close()

	if err := espoForTest(srv.URL).SendLead(context.Background(), LeadPayload{Name: "Bruno"}); err != nil {
		t.Fatalf("fallback deveria ter sucesso: %v", err)
	}
	if len(paths) != 2 || paths[1] != "/api/v1/Lead" {
		t.Fatalf("esperava tentativa em /Lead após /Contact, obteve %v", paths)
	}
}

func TestSendLeadRequiresConfiguration(t *testing.T) {
	adapter := NewEspoAdapter("", "", time.Second, zap.NewNop())

	err := adapter.SendLead(context.Background(), LeadPayload{Name: "Ana"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("esperava ErrNotConfigured, obteve %v", err)
	}
}

func TestStagesFromMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/Metadata" {
			t.Errorf("rota inesperada: %q", r.URL.Path)
		}
		w.Write([]byte(`{"entityDefs":{"Opportunity":{"fields":{"stage":{"options":["Novo","Fechado"]}}}}}`))
	}))
	defer srv.Close()

	stages, err := espoForTest(srv.URL).Stages(context.Background())
	if err != nil {
		t.Fatalf("stages: %v", err)
	}
	if len(stages) != 2 || stages[0].ID != "Novo" {
		t.Fatalf("stages inesperados: %+v", stages)
	}
}

func TestStagesFallBackToDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	stages, err := espoForTest(srv.URL).Stages(context.Background())
	if err != nil {
		t.Fatalf("fallback nunca retorna erro: %v", err)
	}
	if len(stages) != len(espoDefaultStages) || stages[0].ID != "Prospecting" {
		t.Fatalf("esperava stages padrão, obteve %+v", stages)
	}
}

func TestRegistryResolvesProvider(t *testing.T) {
	registry := NewRegistry(NewEspoAdapter("http://crm", "k", time.Second, zap.NewNop()))

	if !registry.IsConfigured("espocrm") {
		t.Fatalf("espocrm deveria estar configurado")
	}
	if registry.IsConfigured("pipedrive") {
		t.Fatalf("provedor desconhecido não pode constar como configurado")
	}

	var unsupported *ErrUnsupportedProvider
	err := registry.SendLead(context.Background(), "pipedrive", LeadPayload{})
	if !errors.As(err, &unsupported) {
		t.Fatalf("esperava ErrUnsupportedProvider, obteve %v", err)
	}
}
