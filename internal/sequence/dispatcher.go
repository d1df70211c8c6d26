package sequence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/model"
	"github.com/dgenny/conecta/internal/storage"
)

// Gateway é o recorte do cliente de mensagens que o dispatcher usa.
type Gateway interface {
	Configured() bool
	SendText(ctx context.Context, instancePhone, number, text string) error
	SendAudio(ctx context.Context, instancePhone, number, base64Audio string) error
	SendMedia(ctx context.Context, instancePhone, number, mediaType, base64Media, fileName, caption string) error
}

// Formatos que o gateway aceita como nota de voz. Qualquer outro áudio
// (webm de gravador de navegador, por exemplo) vai como documento.
var voiceNoteMimes = []string{
	"audio/mp3", "audio/mpeg", "audio/mp4", "audio/aac",
	"audio/ogg", "audio/opus", "audio/wav",
}

type Dispatcher struct {
	gateway  Gateway
	settings storage.SettingRepository
	pacing   time.Duration
	log      *zap.Logger

	sleep func(ctx context.Context, d time.Duration)
}

func NewDispatcher(gateway Gateway, settings storage.SettingRepository, pacing time.Duration, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		gateway:  gateway,
		settings: settings,
		pacing:   pacing,
		log:      log,
		sleep:    sleepCtx,
	}
}

func markerKey(leadID, campaignID string) string {
	return fmt.Sprintf("sequence_%s_%s", leadID, campaignID)
}

// Dispatch envia os passos da campanha para o lead. O marcador de
// disparo é gravado ANTES do primeiro envio: entre duplicar mensagens e
// perder uma sequência numa queda, perder é o dano menor.
func (d *Dispatcher) Dispatch(ctx context.Context, lead model.Lead, campaign model.Campaign) error {
	if len(campaign.Steps) == 0 {
		return nil
	}
	if !d.gateway.Configured() {
		d.log.Warn("gateway não configurado, sequência não disparada",
			zap.String("lead_id", lead.ID),
			zap.String("campaign_id", campaign.ID),
		)
		return nil
	}

	instancePhone, err := d.instancePhone(ctx)
	if err != nil {
		d.log.Warn("perfil do operador sem telefone, sequência não disparada", zap.Error(err))
		return nil
	}

	key := markerKey(lead.ID, campaign.ID)
	if _, err := d.settings.Get(ctx, key); err == nil {
		d.log.Debug("sequência já disparada, ignorando",
			zap.String("lead_id", lead.ID),
			zap.String("campaign_id", campaign.ID),
		)
		return nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("sequence: consultar marcador: %w", err)
	}

	if err := d.settings.Set(ctx, key, strconv.FormatInt(time.Now().UnixMilli(), 10)); err != nil {
		return fmt.Errorf("sequence: gravar marcador: %w", err)
	}

	leadPhone := NormalizePhone(lead.Phone)
	steps := model.NormalizeStepOrder(campaign.Steps)
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.sendStep(ctx, instancePhone, leadPhone, lead, step); err != nil {
			// falha de um passo não interrompe o resto da sequência
			d.log.Error("falha ao enviar passo da sequência",
				zap.String("lead_id", lead.ID),
				zap.String("step_id", step.ID),
				zap.String("step_type", string(step.Type)),
				zap.Error(err),
			)
		}
		if i < len(steps)-1 {
			d.sleep(ctx, d.pacing)
		}
	}

	d.log.Info("sequência disparada",
		zap.String("lead_id", lead.ID),
		zap.String("campaign_id", campaign.ID),
		zap.Int("steps", len(steps)),
	)
	return nil
}

func (d *Dispatcher) sendStep(ctx context.Context, instancePhone, leadPhone string, lead model.Lead, step model.MessageStep) error {
	switch step.Type {
	case model.StepTypeText:
		text := ApplyTemplate(step.Content, lead.Name, lead.Company)
		if text == "" {
			return nil
		}
		return d.gateway.SendText(ctx, instancePhone, leadPhone, text)

	case model.StepTypeAudio:
		if step.Data == "" {
			d.log.Warn("passo de áudio sem conteúdo, ignorando", zap.String("step_id", step.ID))
			return nil
		}
		if isVoiceNoteMime(step.MimeType) {
			return d.gateway.SendAudio(ctx, instancePhone, leadPhone, step.Data)
		}
		fileName := step.FileName
		if fileName == "" {
			fileName = "audio.webm"
		}
		return d.gateway.SendMedia(ctx, instancePhone, leadPhone, "document", step.Data, fileName, "")

	case model.StepTypeImage, model.StepTypeVideo, model.StepTypeDocument:
		if step.Data == "" {
			d.log.Warn("passo de mídia sem conteúdo, ignorando",
				zap.String("step_id", step.ID),
				zap.String("step_type", string(step.Type)),
			)
			return nil
		}
		caption := ""
		if step.Content != "" {
			caption = ApplyTemplate(step.Content, lead.Name, lead.Company)
		}
		return d.gateway.SendMedia(ctx, instancePhone, leadPhone, string(step.Type), step.Data, step.FileName, caption)

	default:
		d.log.Warn("tipo de passo não suportado, ignorando",
			zap.String("step_id", step.ID),
			zap.String("step_type", string(step.Type)),
		)
		return nil
	}
}

func (d *Dispatcher) instancePhone(ctx context.Context) (string, error) {
	raw, err := d.settings.Get(ctx, storage.SettingOperatorProfile)
	if err != nil {
		return "", fmt.Errorf("ler perfil: %w", err)
	}
	var profile model.OperatorProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return "", fmt.Errorf("decodificar perfil: %w", err)
	}
	if profile.Phone == "" {
		return "", errors.New("telefone do operador vazio")
	}
	return NormalizePhone(profile.Phone), nil
}

func isVoiceNoteMime(mime string) bool {
	mime = strings.ToLower(mime)
	for _, m := range voiceNoteMimes {
		if strings.Contains(mime, m) {
			return true
		}
	}
	return false
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
