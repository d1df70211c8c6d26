package sequence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/dgenny/conecta/internal/model"
	"github.com/dgenny/conecta/internal/storage"
)

type fakeSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{values: make(map[string]string)}
}

func (f *fakeSettings) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (f *fakeSettings) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeSettings) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	return nil
}

type sentMessage struct {
	kind     string
	number   string
	payload  string
	fileName string
	caption  string
}

type fakeGateway struct {
	configured bool
	failKinds  map[string]bool
	sent       []sentMessage
}

func (g *fakeGateway) Configured() bool { return g.configured }

func (g *fakeGateway) SendText(_ context.Context, _, number, text string) error {
	if g.failKinds["text"] {
		return errors.New("texto recusado")
	}
	g.sent = append(g.sent, sentMessage{kind: "text", number: number, payload: text})
	return nil
}

func (g *fakeGateway) SendAudio(_ context.Context, _, number, audio string) error {
	if g.failKinds["audio"] {
		return errors.New("áudio recusado")
	}
	g.sent = append(g.sent, sentMessage{kind: "audio", number: number, payload: audio})
	return nil
}

func (g *fakeGateway) SendMedia(_ context.Context, _, number, mediaType, media, fileName, caption string) error {
	if g.failKinds[mediaType] {
		return fmt.Errorf("%s recusado", mediaType)
	}
	g.sent = append(g.sent, sentMessage{kind: mediaType, number: number, payload: media, fileName: fileName, caption: caption})
	return nil
}

func dispatcherForTest(t *testing.T, gw *fakeGateway) (*Dispatcher, *fakeSettings) {
	t.Helper()
	settings := newFakeSettings()
	profile, _ := json.Marshal(model.OperatorProfile{Name: "Op", Phone: "11999998888"})
	settings.Set(context.Background(), storage.SettingOperatorProfile, string(profile))

	d := NewDispatcher(gw, settings, 0, zap.NewNop())
	d.sleep = func(context.Context, time.Duration) {}
	return d, settings
}

func sampleLead() model.Lead {
	return model.Lead{ID: "lead_1_abc", Name: "Ana", Company: "Acme", Phone: "1188887777"}
}

func TestDispatchSendsStepsInOrderWithTemplates(t *testing.T) {
	gw := &fakeGateway{configured: true}
	d, _ := dispatcherForTest(t, gw)

	campaign := model.Campaign{
		ID: "camp-1",
		Steps: []model.MessageStep{
			{ID: "s2", Type: model.StepTypeImage, Data: "aW1n", FileName: "foto.png", Content: "Veja, {{nome}}", Order: 2},
			{ID: "s1", Type: model.StepTypeText, Content: "Olá {{nome}} da {{empresa}}", Order: 1},
		},
	}

	if err := d.Dispatch(context.Background(), sampleLead(), campaign); err != nil {
		t.Fatalf("disparar: %v", err)
	}

	if len(gw.sent) != 2 {
		t.Fatalf("esperava 2 envios, obteve %d", len(gw.sent))
	}
	if gw.sent[0].kind != "text" || gw.sent[0].payload != "Olá Ana da Acme" {
		t.Fatalf("primeiro envio inesperado: %+v", gw.sent[0])
	}
	if gw.sent[0].number != "5511988887777" {
		t.Fatalf("telefone do lead não normalizado: %q", gw.sent[0].number)
	}
	if gw.sent[1].kind != "image" || gw.sent[1].caption != "Veja, Ana" {
		t.Fatalf("segundo envio inesperado: %+v", gw.sent[1])
	}
}

func TestDispatchAtMostOncePerLeadCampaign(t *testing.T) {
	gw := &fakeGateway{configured: true}
	d, settings := dispatcherForTest(t, gw)

	campaign := model.Campaign{
		ID:    "camp-1",
		Steps: []model.MessageStep{{ID: "s1", Type: model.StepTypeText, Content: "Oi", Order: 1}},
	}
	lead := sampleLead()

	if err := d.Dispatch(context.Background(), lead, campaign); err != nil {
		t.Fatalf("primeiro disparo: %v", err)
	}
	if err := d.Dispatch(context.Background(), lead, campaign); err != nil {
		t.Fatalf("segundo disparo: %v", err)
	}

	if len(gw.sent) != 1 {
		t.Fatalf("sequência disparou %d vezes, esperava 1", len(gw.sent))
	}
	if _, err := settings.Get(context.Background(), markerKey(lead.ID, campaign.ID)); err != nil {
		t.Fatalf("marcador deveria existir: %v", err)
	}
}

func TestDispatchMarkerWrittenBeforeSending(t *testing.T) {
	// todo envio falha; mesmo assim o marcador fica, garantindo no
	// máximo um disparo por lead
	gw := &fakeGateway{configured: true, failKinds: map[string]bool{"text": true}}
	d, settings := dispatcherForTest(t, gw)

	campaign := model.Campaign{
		ID:    "camp-1",
		Steps: []model.MessageStep{{ID: "s1", Type: model.StepTypeText, Content: "Oi", Order: 1}},
	}
	lead := sampleLead()

	if err := d.Dispatch(context.Background(), lead, campaign); err != nil {
		t.Fatalf("falha de passo não é erro do disparo: %v", err)
	}
	if _, err := settings.Get(context.Background(), markerKey(lead.ID, campaign.ID)); err != nil {
		t.Fatalf("marcador deve ser gravado antes do envio: %v", err)
	}
}

func TestDispatchAudioMimeFallback(t *testing.T) {
	gw := &fakeGateway{configured: true}
	d, _ := dispatcherForTest(t, gw)

	campaign := model.Campaign{
		ID: "camp-1",
		Steps: []model.MessageStep{
			{ID: "s1", Type: model.StepTypeAudio, Data: "b2dn", MimeType: "audio/ogg; codecs=opus", Order: 1},
			{ID: "s2", Type: model.StepTypeAudio, Data: "d2Vi", MimeType: "audio/webm", Order: 2},
		},
	}

	if err := d.Dispatch(context.Background(), sampleLead(), campaign); err != nil {
		t.Fatalf("disparar: %v", err)
	}

	if len(gw.sent) != 2 {
		t.Fatalf("esperava 2 envios, obteve %d", len(gw.sent))
	}
	if gw.sent[0].kind != "audio" {
		t.Fatalf("ogg deveria ir como nota de voz: %+v", gw.sent[0])
	}
	if gw.sent[1].kind != "document" || gw.sent[1].fileName != "audio.webm" {
		t.Fatalf("webm deveria cair para documento: %+v", gw.sent[1])
	}
}

func TestDispatchSkipsUnsupportedStepsAndContinues(t *testing.T) {
	gw := &fakeGateway{configured: true, failKinds: map[string]bool{"image": true}}
	d, _ := dispatcherForTest(t, gw)

	campaign := model.Campaign{
		ID: "camp-1",
		Steps: []model.MessageStep{
			{ID: "s1", Type: model.StepType("sticker"), Content: "?", Order: 1},
			{ID: "s2", Type: model.StepTypeImage, Data: "aW1n", Order: 2},
			{ID: "s3", Type: model.StepTypeText, Content: "Fim", Order: 3},
			{ID: "s4", Type: model.StepTypeVideo, Order: 4},
		},
	}

	if err := d.Dispatch(context.Background(), sampleLead(), campaign); err != nil {
		t.Fatalf("disparar: %v", err)
	}

	// tipo desconhecido, imagem recusada e vídeo sem conteúdo não
	// impedem o passo de texto
	if len(gw.sent) != 1 || gw.sent[0].payload != "Fim" {
		t.Fatalf("envios inesperados: %+v", gw.sent)
	}
}

func TestDispatchWithoutGatewayLeavesNoMarker(t *testing.T) {
	gw := &fakeGateway{configured: false}
	d, settings := dispatcherForTest(t, gw)

	campaign := model.Campaign{
		ID:    "camp-1",
		Steps: []model.MessageStep{{ID: "s1", Type: model.StepTypeText, Content: "Oi", Order: 1}},
	}
	lead := sampleLead()

	if err := d.Dispatch(context.Background(), lead, campaign); err != nil {
		t.Fatalf("configuração incompleta não é erro: %v", err)
	}
	if len(gw.sent) != 0 {
		t.Fatalf("nada deveria ser enviado sem gateway")
	}
	if _, err := settings.Get(context.Background(), markerKey(lead.ID, campaign.ID)); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("sem envio não pode haver marcador, obteve %v", err)
	}
}

func TestDispatchWithoutOperatorPhone(t *testing.T) {
	gw := &fakeGateway{configured: true}
	settings := newFakeSettings()
	d := NewDispatcher(gw, settings, 0, zap.NewNop())
	d.sleep = func(context.Context, time.Duration) {}

	campaign := model.Campaign{
		ID:    "camp-1",
		Steps: []model.MessageStep{{ID: "s1", Type: model.StepTypeText, Content: "Oi", Order: 1}},
	}

	if err := d.Dispatch(context.Background(), sampleLead(), campaign); err != nil {
		t.Fatalf("perfil ausente não é erro: %v", err)
	}
	if len(gw.sent) != 0 {
		t.Fatalf("nada deveria ser enviado sem telefone do operador")
	}
}

func TestIsVoiceNoteMime(t *testing.T) {
	for _, mime := range []string{"audio/mpeg", "AUDIO/OGG", "audio/ogg; codecs=opus"} {
		if !isVoiceNoteMime(mime) {
			t.Fatalf("%q deveria ser nota de voz", mime)
		}
	}
	for _, mime := range []string{"audio/webm", "video/mp4", ""} {
		if isVoiceNoteMime(mime) {
			t.Fatalf("%q não deveria ser nota de voz", mime)
		}
	}
}

func TestMarkerKeyShape(t *testing.T) {
	key := markerKey("lead_1_abc", "camp-1")
	if !strings.HasPrefix(key, "sequence_") || !strings.Contains(key, "lead_1_abc") {
		t.Fatalf("chave de marcador inesperada: %q", key)
	}
}
