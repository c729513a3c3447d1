// Package domain define contratos e tipos de domínio do rate limit.
//
// Este pacote não depende de net/http nem de implementações concretas:
// a janela fixa, o token bucket e os stores de estatística vivem em infra.
package domain
