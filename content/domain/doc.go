// Package domain define o documento do editor, as métricas derivadas do
// texto, o estado do autosave e o contrato do armazenamento local.
//
// Nada aqui faz I/O; o pipeline (application) e os stores (infra) dependem
// deste pacote, nunca o contrário.
package domain
