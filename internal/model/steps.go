package model

import "sort"

type StepType string

const (
	StepTypeText     StepType = "text"
	StepTypeAudio    StepType = "audio"
	StepTypeDocument StepType = "document"
	StepTypeVideo    StepType = "video"
	StepTypeImage    StepType = "image"
)

// MessageStep é uma unidade ordenada de uma campanha. Para texto, Content
// carrega o template com tokens {{nome}}/{{empresa}}. Para mídia, Data
// carrega o payload em base64 (sem prefixo data:) e MimeType o tipo real.
type MessageStep struct {
	ID        string   `json:"id"`
	Type      StepType `json:"type"`
	Content   string   `json:"content,omitempty"`
	Data      string   `json:"data,omitempty"`
	MimeType  string   `json:"mimeType,omitempty"`
	FileName  string   `json:"fileName,omitempty"`
	SizeBytes int64    `json:"sizeBytes,omitempty"`
	Order     int      `json:"order"`
}

// NormalizeStepOrder reordena os passos pela ordem atual e renumera
// contíguo em 1..N. Sempre chamado após inserir, remover ou mover.
func NormalizeStepOrder(steps []MessageStep) []MessageStep {
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})
	for i := range steps {
		steps[i].Order = i + 1
	}
	return steps
}

// RemoveStep remove o passo com o id informado e renumera os restantes.
func RemoveStep(steps []MessageStep, id string) []MessageStep {
	out := steps[:0]
	for _, s := range steps {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return NormalizeStepOrder(out)
}

// MoveStep move o passo com o id informado para a posição alvo (1..N).
func MoveStep(steps []MessageStep, id string, position int) []MessageStep {
	steps = NormalizeStepOrder(steps)
	idx := -1
	for i, s := range steps {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return steps
	}
	if position < 1 {
		position = 1
	}
	if position > len(steps) {
		position = len(steps)
	}
	moved := steps[idx]
	steps = append(steps[:idx], steps[idx+1:]...)
	target := position - 1
	steps = append(steps[:target], append([]MessageStep{moved}, steps[target:]...)...)
	for i := range steps {
		steps[i].Order = i + 1
	}
	return steps
}
