// Package application contém o pipeline de conteúdo do editor: carga
// inicial, edição com validação de tamanho, autosave com debounce e limpeza.
//
// O pipeline não conhece HTTP; o pacote server traduz as operações para a API.
package application
