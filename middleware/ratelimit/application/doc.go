// Package application contém o caso de uso do rate limit: transformar o
// resultado do limiter em uma Decision (allow/deny, restante, retry-after).
//
// Depende apenas de domain e não conhece net/http.
package application
