// Package sync drena a fila local de leads para os colaboradores
// remotos. As varreduras nunca se sobrepõem e cada lead é processado de
// forma sequencial, com espaçamento entre envios para não saturar as
// APIs externas.
package sync

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/config"
	"github.com/dgenny/conecta/internal/connectivity"
	"github.com/dgenny/conecta/internal/crm"
	"github.com/dgenny/conecta/internal/model"
	"github.com/dgenny/conecta/internal/remote/firestore"
	"github.com/dgenny/conecta/internal/storage"
)

const maxBackoff = 5 * time.Minute

// Remote é o banco durável remoto.
type Remote interface {
	SaveLead(ctx context.Context, lead model.Lead) (string, error)
}

// Relay é o encaminhamento opcional para o CRM.
type Relay interface {
	SendLead(ctx context.Context, provider string, lead crm.LeadPayload) error
	IsConfigured(provider string) bool
}

// Dispatcher dispara a sequência de mensagens da campanha.
type Dispatcher interface {
	Dispatch(ctx context.Context, lead model.Lead, campaign model.Campaign) error
}

// Connectivity expõe o estado de rede observado pelo monitor.
type Connectivity interface {
	Status() connectivity.Status
	Check(ctx context.Context) connectivity.Status
}

// SweepResult resume uma varredura: quantos leads avançaram e quantos
// registraram falha.
type SweepResult struct {
	Processed int `json:"processed"`
	Errors    int `json:"errors"`
}

// QueueStatus é o retrato da fila exposto pela API.
type QueueStatus struct {
	Stats        model.Stats         `json:"stats"`
	Connectivity connectivity.Status `json:"connectivity"`
	IsSyncing    bool                `json:"isSyncing"`
}

type Synchronizer struct {
	cfg        config.SyncConfig
	leads      storage.LeadRepository
	campaigns  storage.CampaignRepository
	remote     Remote
	relay      Relay
	dispatcher Dispatcher
	conn       Connectivity
	log        *zap.Logger

	// sweepMu garante que duas varreduras jamais rodem ao mesmo tempo,
	// seja por ticker, por transição de conectividade ou por pedido
	// manual.
	sweepMu   gosync.Mutex
	isSyncing atomic.Bool

	mu      gosync.Mutex
	started bool
	stop    chan struct{}
	done    gosync.WaitGroup

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

func NewSynchronizer(
	cfg config.SyncConfig,
	leads storage.LeadRepository,
	campaigns storage.CampaignRepository,
	remote Remote,
	relay Relay,
	dispatcher Dispatcher,
	conn Connectivity,
	log *zap.Logger,
) *Synchronizer {
	return &Synchronizer{
		cfg:        cfg,
		leads:      leads,
		campaigns:  campaigns,
		remote:     remote,
		relay:      relay,
		dispatcher: dispatcher,
		conn:       conn,
		log:        log,
		now:        time.Now,
		sleep:      sleepCtx,
	}
}

// Start liga as varreduras periódicas. Chamadas repetidas são inócuas.
func (s *Synchronizer) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.log.Info("sincronizador iniciado",
		zap.Int("interval_seconds", s.cfg.IntervalSeconds),
	)

	s.done.Add(1)
	go s.run(stop)
}

// Stop desliga as varreduras e espera a corrente terminar.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stop)
	s.mu.Unlock()

	s.done.Wait()
	s.log.Info("sincronizador parado")
}

func (s *Synchronizer) run(stop chan struct{}) {
	defer s.done.Done()

	interval := time.Duration(s.cfg.IntervalSeconds) * time.Second
	syncTicker := time.NewTicker(interval)
	defer syncTicker.Stop()
	crmTicker := time.NewTicker(interval)
	defer crmTicker.Stop()

	ctx := context.Background()

	// varredura imediata: leads acumulados offline não esperam o
	// primeiro tique
	s.trySweep(ctx)

	for {
		select {
		case <-stop:
			return
		case <-syncTicker.C:
			s.trySweep(ctx)
		case <-crmTicker.C:
			s.tryCRMSweep(ctx)
		}
	}
}

// trySweep roda uma varredura completa se nenhuma estiver em andamento.
func (s *Synchronizer) trySweep(ctx context.Context) {
	if !s.sweepMu.TryLock() {
		return
	}
	defer s.sweepMu.Unlock()

	status := s.conn.Status()
	if !status.IsOnline {
		return
	}
	var res SweepResult
	if !status.RemoteReachable {
		res = s.processCRMOnly(ctx)
	} else {
		res = s.processPending(ctx)
	}
	if res.Processed+res.Errors > 0 {
		s.log.Info("varredura concluída",
			zap.Int("processados", res.Processed),
			zap.Int("falhas", res.Errors),
		)
	}
}

func (s *Synchronizer) tryCRMSweep(ctx context.Context) {
	if !s.sweepMu.TryLock() {
		return
	}
	defer s.sweepMu.Unlock()

	status := s.conn.Status()
	if !status.IsOnline || status.RemoteReachable {
		// com o remoto alcançável o caminho normal cobre o CRM
		return
	}
	s.processCRMOnly(ctx)
}

// ForceSyncAll é a sincronização manual. Reavalia a conectividade antes
// de decidir, devolve ErrOffline sem rede e o resumo da varredura no
// sucesso.
func (s *Synchronizer) ForceSyncAll(ctx context.Context) (SweepResult, error) {
	status := s.conn.Check(ctx)
	if !status.IsOnline {
		return SweepResult{}, ErrOffline
	}

	if !s.sweepMu.TryLock() {
		return SweepResult{}, ErrSyncInProgress
	}
	defer s.sweepMu.Unlock()

	if !status.RemoteReachable {
		return s.processCRMOnly(ctx), nil
	}
	return s.processPending(ctx), nil
}

// QueueStatus monta o retrato atual da fila para exibição.
func (s *Synchronizer) QueueStatus(ctx context.Context) (QueueStatus, error) {
	stats, err := s.leads.Stats(ctx)
	if err != nil {
		return QueueStatus{}, fmt.Errorf("sync: stats da fila: %w", err)
	}
	return QueueStatus{
		Stats:        stats,
		Connectivity: s.conn.Status(),
		IsSyncing:    s.isSyncing.Load(),
	}, nil
}

// processPending drena pendentes e falhados elegíveis, um por vez, na
// ordem: pendentes mais antigos primeiro, depois falhados pela tentativa
// mais antiga.
func (s *Synchronizer) processPending(ctx context.Context) SweepResult {
	s.isSyncing.Store(true)
	defer s.isSyncing.Store(false)

	var res SweepResult
	batch, err := s.collectBatch(ctx)
	if err != nil {
		s.log.Error("erro ao montar lote de sincronização", zap.Error(err))
		return res
	}
	if len(batch) == 0 {
		return res
	}

	s.log.Info("processando fila de leads", zap.Int("total", len(batch)))
	pacing := time.Duration(s.cfg.LeadPacingMillis) * time.Millisecond
	for i, lead := range batch {
		if err := ctx.Err(); err != nil {
			return res
		}
		if err := s.syncLead(ctx, lead); err != nil {
			// a falha de um lead não bloqueia os demais
			res.Errors++
			s.log.Warn("lead não sincronizado",
				zap.String("lead_id", lead.ID),
				zap.Error(err),
			)
		} else {
			res.Processed++
		}
		if i < len(batch)-1 {
			s.sleep(ctx, pacing)
		}
	}
	return res
}

// processCRMOnly é o caminho degradado: online mas com o remoto fora do
// ar. Só leads com provedor e etapa de CRM definidos avançam; os demais
// esperam o remoto.
func (s *Synchronizer) processCRMOnly(ctx context.Context) SweepResult {
	s.isSyncing.Store(true)
	defer s.isSyncing.Store(false)

	var res SweepResult
	batch, err := s.collectBatch(ctx)
	if err != nil {
		s.log.Error("erro ao montar lote de sincronização", zap.Error(err))
		return res
	}

	pacing := time.Duration(s.cfg.LeadPacingMillis) * time.Millisecond
	sent := 0
	for _, lead := range batch {
		if err := ctx.Err(); err != nil {
			return res
		}
		if lead.CRMProvider == "" || lead.CRMStage == "" || !s.relay.IsConfigured(lead.CRMProvider) {
			continue
		}
		if sent > 0 {
			s.sleep(ctx, pacing)
		}
		sent++

		err := s.withTimeout(ctx, func(ctx context.Context) error {
			return s.relay.SendLead(ctx, lead.CRMProvider, crm.LeadPayload{
				Name:    lead.Name,
				Company: lead.Company,
				Phone:   lead.Phone,
				Stage:   lead.CRMStage,
			})
		})
		if err != nil {
			res.Errors++
			s.log.Warn("relay de CRM falhou no caminho degradado",
				zap.String("lead_id", lead.ID),
				zap.Error(err),
			)
			s.markFailed(ctx, lead.ID, err.Error())
			continue
		}
		if err := s.leads.UpdateStatus(ctx, lead.ID, model.LeadStatusSent, ""); err != nil {
			res.Errors++
			s.log.Error("erro ao marcar lead como enviado", zap.String("lead_id", lead.ID), zap.Error(err))
			continue
		}
		res.Processed++
		s.log.Info("lead entregue só ao CRM", zap.String("lead_id", lead.ID))
	}
	return res
}

func (s *Synchronizer) collectBatch(ctx context.Context) ([]model.Lead, error) {
	pending, err := s.leads.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar pendentes: %w", err)
	}
	failed, err := s.leads.ListFailed(ctx)
	if err != nil {
		return nil, fmt.Errorf("listar falhados: %w", err)
	}

	batch := pending
	now := s.now()
	for _, lead := range failed {
		if s.retryEligible(lead, now) {
			batch = append(batch, lead)
		}
	}
	return batch, nil
}

// retryEligible aplica o backoff exponencial: min(1s * 2^tentativas, 5min)
// desde a última tentativa.
func (s *Synchronizer) retryEligible(lead model.Lead, now time.Time) bool {
	if lead.LastAttempt == nil {
		return true
	}
	backoff := maxBackoff
	if lead.Attempts < 10 {
		backoff = time.Second << uint(lead.Attempts)
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
	return now.Sub(*lead.LastAttempt) >= backoff
}

// syncLead executa o pipeline completo de um lead: guarda de
// idempotência, escrita remota, relay de CRM e sequência. Só a escrita
// remota é obrigatória; CRM e sequência registram falha e seguem.
func (s *Synchronizer) syncLead(ctx context.Context, lead model.Lead) error {
	// releitura: outra varredura ou o operador podem ter resolvido o
	// lead entre a listagem e agora
	current, err := s.leads.GetByID(ctx, lead.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("sync: reler lead: %w", err)
	}
	if current.Status == model.LeadStatusSent {
		return nil
	}
	lead = current

	err = s.withTimeout(ctx, func(ctx context.Context) error {
		_, err := s.remote.SaveLead(ctx, lead)
		return err
	})
	if err != nil {
		cause := err.Error()
		if errors.Is(err, firestore.ErrPermissionDenied) {
			cause = firestore.ErrPermissionDenied.Error()
		}
		s.markFailed(ctx, lead.ID, cause)
		return fmt.Errorf("sync: escrita remota: %w", err)
	}

	if lead.CRMProvider != "" && lead.CRMStage != "" && s.relay.IsConfigured(lead.CRMProvider) {
		err := s.withTimeout(ctx, func(ctx context.Context) error {
			return s.relay.SendLead(ctx, lead.CRMProvider, crm.LeadPayload{
				Name:    lead.Name,
				Company: lead.Company,
				Phone:   lead.Phone,
				Stage:   lead.CRMStage,
			})
		})
		if err != nil {
			s.log.Warn("relay de CRM falhou, lead segue sincronizado",
				zap.String("lead_id", lead.ID),
				zap.String("provider", lead.CRMProvider),
				zap.Error(err),
			)
		}
	}

	if lead.CampaignID != "" {
		campaign, err := s.campaigns.GetByID(ctx, lead.CampaignID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			s.log.Warn("campanha do lead não está no cache local",
				zap.String("lead_id", lead.ID),
				zap.String("campaign_id", lead.CampaignID),
			)
		case err != nil:
			s.log.Error("erro ao buscar campanha", zap.Error(err))
		default:
			if err := s.dispatcher.Dispatch(ctx, lead, campaign); err != nil {
				s.log.Warn("sequência falhou, lead segue sincronizado",
					zap.String("lead_id", lead.ID),
					zap.Error(err),
				)
			}
		}
	}

	if err := s.leads.UpdateStatus(ctx, lead.ID, model.LeadStatusSent, ""); err != nil {
		return fmt.Errorf("sync: marcar enviado: %w", err)
	}
	s.log.Info("lead sincronizado", zap.String("lead_id", lead.ID))
	return nil
}

func (s *Synchronizer) markFailed(ctx context.Context, id, cause string) {
	if err := s.leads.UpdateStatus(ctx, id, model.LeadStatusFailed, cause); err != nil {
		s.log.Error("erro ao registrar falha do lead", zap.String("lead_id", id), zap.Error(err))
	}
}

func (s *Synchronizer) withTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	timeout := time.Duration(s.cfg.CallTimeoutSecs) * time.Second
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
