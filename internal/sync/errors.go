package sync

import "errors"

var (
	// ErrOffline é devolvido quando uma sincronização manual é pedida
	// sem rede. A varredura periódica nunca devolve esse erro, só a
	// forçada pelo operador.
	ErrOffline = errors.New("sem conexão com a internet")

	// ErrSyncInProgress indica que uma varredura já está em andamento.
	ErrSyncInProgress = errors.New("sincronização já em andamento")
)
