package sqlite

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/model"
	"github.com/dgenny/conecta/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("abrir sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSaveAssignsIdentityAndPendingStatus(t *testing.T) {
	repo := NewLeadRepository(testDB(t))
	ctx := context.Background()

	lead, err := repo.Save(ctx, model.Lead{Name: "Ana", Company: "Acme", Phone: "5511988887777"})
	if err != nil {
		t.Fatalf("salvar: %v", err)
	}
	if lead.ID == "" {
		t.Fatalf("esperava id gerado")
	}
	if lead.Status != model.LeadStatusPending {
		t.Fatalf("esperava status pending, obteve %s", lead.Status)
	}
	if lead.Attempts != 0 {
		t.Fatalf("esperava attempts 0, obteve %d", lead.Attempts)
	}

	stored, err := repo.GetByID(ctx, lead.ID)
	if err != nil {
		t.Fatalf("buscar: %v", err)
	}
	if stored.Name != "Ana" || stored.Company != "Acme" {
		t.Fatalf("registro inesperado: %+v", stored)
	}
	if stored.LastAttempt != nil {
		t.Fatalf("lastAttempt deve ser ausente antes da primeira tentativa")
	}
}

func TestUpdateStatusFailureIncrementsAttempts(t *testing.T) {
	repo := NewLeadRepository(testDB(t))
	ctx := context.Background()

	lead, _ := repo.Save(ctx, model.Lead{Name: "Bruno", Company: "Beta", Phone: "5511988887777"})

	if err := repo.UpdateStatus(ctx, lead.ID, model.LeadStatusFailed, "timeout"); err != nil {
		t.Fatalf("atualizar: %v", err)
	}
	if err := repo.UpdateStatus(ctx, lead.ID, model.LeadStatusFailed, "timeout de novo"); err != nil {
		t.Fatalf("atualizar: %v", err)
	}

	stored, _ := repo.GetByID(ctx, lead.ID)
	if stored.Attempts != 2 {
		t.Fatalf("esperava 2 tentativas, obteve %d", stored.Attempts)
	}
	if stored.Error != "timeout de novo" {
		t.Fatalf("erro inesperado: %q", stored.Error)
	}
	if stored.LastAttempt == nil {
		t.Fatalf("lastAttempt deveria estar preenchido")
	}

	if err := repo.UpdateStatus(ctx, lead.ID, model.LeadStatusSent, ""); err != nil {
		t.Fatalf("atualizar para sent: %v", err)
	}
	stored, _ = repo.GetByID(ctx, lead.ID)
	if stored.Status != model.LeadStatusSent {
		t.Fatalf("esperava sent, obteve %s", stored.Status)
	}
	if stored.Error != "" {
		t.Fatalf("erro deve ser limpo no sucesso, obteve %q", stored.Error)
	}
	if stored.Attempts != 2 {
		t.Fatalf("attempts nunca regride, obteve %d", stored.Attempts)
	}
}

func TestUpdateStatusUnknownLead(t *testing.T) {
	repo := NewLeadRepository(testDB(t))

	err := repo.UpdateStatus(context.Background(), "lead_inexistente", model.LeadStatusSent, "")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("esperava ErrNotFound, obteve %v", err)
	}
}

func TestListOrderings(t *testing.T) {
	repo := NewLeadRepository(testDB(t))
	ctx := context.Background()

	a, _ := repo.Save(ctx, model.Lead{Name: "A", Company: "X", Phone: "1"})
	b, _ := repo.Save(ctx, model.Lead{Name: "B", Company: "X", Phone: "2"})
	c, _ := repo.Save(ctx, model.Lead{Name: "C", Company: "X", Phone: "3"})

	pending, err := repo.ListPending(ctx)
	if err != nil {
		t.Fatalf("listar pendentes: %v", err)
	}
	if len(pending) != 3 || pending[0].ID != a.ID || pending[2].ID != c.ID {
		t.Fatalf("pendentes devem vir do mais antigo para o mais novo: %+v", pending)
	}

	// b falha primeiro, depois a: a fila de retry deve trazer b antes
	if err := repo.UpdateStatus(ctx, b.ID, model.LeadStatusFailed, "x"); err != nil {
		t.Fatalf("falhar b: %v", err)
	}
	if err := repo.UpdateStatus(ctx, a.ID, model.LeadStatusFailed, "x"); err != nil {
		t.Fatalf("falhar a: %v", err)
	}

	failed, err := repo.ListFailed(ctx)
	if err != nil {
		t.Fatalf("listar falhados: %v", err)
	}
	if len(failed) != 2 || failed[0].ID != b.ID {
		t.Fatalf("falhados devem vir pela tentativa mais antiga: %+v", failed)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("listar todos: %v", err)
	}
	if len(all) != 3 || all[0].ID != c.ID {
		t.Fatalf("todos devem vir do mais novo para o mais antigo: %+v", all)
	}
}

func TestStatsAndClearSent(t *testing.T) {
	repo := NewLeadRepository(testDB(t))
	ctx := context.Background()

	a, _ := repo.Save(ctx, model.Lead{Name: "A", Company: "X", Phone: "1"})
	b, _ := repo.Save(ctx, model.Lead{Name: "B", Company: "X", Phone: "2"})
	repo.Save(ctx, model.Lead{Name: "C", Company: "X", Phone: "3"})

	repo.UpdateStatus(ctx, a.ID, model.LeadStatusSent, "")
	repo.UpdateStatus(ctx, b.ID, model.LeadStatusFailed, "erro")

	stats, err := repo.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	want := model.Stats{Pending: 1, Sent: 1, Failed: 1, Total: 3}
	if stats != want {
		t.Fatalf("stats %+v, esperava %+v", stats, want)
	}

	deleted, err := repo.ClearSent(ctx)
	if err != nil {
		t.Fatalf("limpar enviados: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("esperava 1 removido, obteve %d", deleted)
	}

	stats, _ = repo.Stats(ctx)
	if stats.Total != 2 || stats.Sent != 0 {
		t.Fatalf("stats após limpeza: %+v", stats)
	}
}

func TestDeleteLead(t *testing.T) {
	repo := NewLeadRepository(testDB(t))
	ctx := context.Background()

	lead, _ := repo.Save(ctx, model.Lead{Name: "A", Company: "X", Phone: "1"})

	if err := repo.Delete(ctx, lead.ID); err != nil {
		t.Fatalf("remover: %v", err)
	}
	if err := repo.Delete(ctx, lead.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("esperava ErrNotFound na segunda remoção, obteve %v", err)
	}
}
