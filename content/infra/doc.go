// Package infra contém os adaptadores de armazenamento do documento:
// memória, SQLite (padrão, arquivo local) e Redis.
//
// Todos implementam domain.Store e tratam chave ausente como ok=false.
package infra
