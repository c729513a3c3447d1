package domain

import "time"

// Key identifica quem está sendo limitado (IP, header, token fixo).
type Key string

// WindowLimiter decide se mais uma requisição de uma chave cabe em `limit`.
//
// Check sempre registra a tentativa, mesmo quando rejeita: uma chave que
// insiste continua ocupando a janela.
type WindowLimiter interface {
	Check(key Key, limit int) bool
}

// RemainingReporter é opcional. Implementações que sabem quantas requisições
// ainda cabem na janela atual podem expor isso para os headers X-RateLimit-*.
type RemainingReporter interface {
	Remaining(key Key, limit int) int
}

// RetryAfterReporter é opcional: quanto tempo até a chave voltar a caber em
// `limit`. Zero quando já cabe.
type RetryAfterReporter interface {
	RetryAfter(key Key, limit int) time.Duration
}

type Decision struct {
	Allowed bool
	Limit   int
	// Remaining só é preenchido quando o limiter implementa RemainingReporter.
	// -1 significa desconhecido.
	Remaining int
	// RetryAfter é o valor de Retry-After quando bloqueado. Zero quando permitido.
	RetryAfter time.Duration
}
