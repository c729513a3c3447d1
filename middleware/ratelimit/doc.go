// Package ratelimit fornece os adapters HTTP (net/http) do rate limit e dos
// headers de segurança aplicados na borda.
//
// Camadas:
//
//   - domain: contratos e tipos (sem net/http)
//   - application: decisão allow/deny + retry-after
//   - infra: janela por chave, token bucket, estatísticas
//   - ratelimit (este pacote): middleware, extração de chave, tradução para
//     status/headers
//
// Fluxo:
//
//  1. Extrai a chave do cliente (token fixo, header, XFF ou RemoteAddr)
//  2. Pede a decisão para a camada application
//  3. Se bloqueado, responde 429 "Too Many Requests"
//  4. Se permitido, aplica os headers de segurança e chama o próximo handler
//
// Padrão da borda do editor: janela de 60s, 30 requisições por chave e no
// máximo 500 chaves rastreadas.
package ratelimit
