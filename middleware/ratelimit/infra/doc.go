// Package infra contém implementações concretas dos contratos de domain.
//
//   - WindowStore: janela deslizante de timestamps por chave, com limite de
//     chaves rastreadas (estratégia padrão)
//   - BucketStore: token bucket por chave usando golang.org/x/time/rate
//   - MemoryStatsStore / RedisStatsStore: estatísticas das decisões
package infra
