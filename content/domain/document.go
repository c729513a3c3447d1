package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// DefaultMaxContentBytes é o tamanho máximo do documento em bytes UTF-8.
const DefaultMaxContentBytes int64 = 5 * 1024 * 1024

// LineCount conta segmentos separados por '\n'. Texto sem quebra tem 1 linha.
func LineCount(text string) int {
	return strings.Count(text, "\n") + 1
}

func WordCount(text string) int {
	return len(strings.Fields(text))
}

// CharCount conta runas, não bytes.
func CharCount(text string) int {
	return utf8.RuneCountInString(text)
}

// EncodedSize é o tamanho do texto codificado em UTF-8. Sequências inválidas
// contam como U+FFFD (3 bytes), do mesmo jeito que um encoder UTF-8 faria.
func EncodedSize(text string) int64 {
	if utf8.ValidString(text) {
		return int64(len(text))
	}
	var n int64
	for _, r := range text {
		n += int64(utf8.RuneLen(r))
	}
	return n
}

// ValidateSize devolve ErrContentTooLarge quando text passa de max bytes.
// max <= 0 desliga a validação.
func ValidateSize(text string, max int64) error {
	if max <= 0 {
		return nil
	}
	if size := EncodedSize(text); size > max {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrContentTooLarge, size, max)
	}
	return nil
}

type SaveState string

const (
	SaveIdle   SaveState = "idle"
	SaveSaving SaveState = "saving"
	SaveSaved  SaveState = "saved"
	SaveError  SaveState = "error"
)

// SaveStatus é o que a UI mostra no indicador de autosave.
type SaveStatus struct {
	State SaveState `json:"state"`
	// SavedAt é o horário do último persist bem-sucedido (zero se nunca salvou).
	SavedAt time.Time `json:"saved_at,omitzero"`
	Error   string    `json:"error,omitempty"`
}

// Snapshot é uma cópia imutável do estado do documento.
type Snapshot struct {
	Content    string     `json:"content"`
	Lines      int        `json:"lines"`
	Words      int        `json:"words"`
	Characters int        `json:"characters"`
	Dirty      bool       `json:"dirty"`
	Default    bool       `json:"default"`
	Locale     Locale     `json:"locale"`
	Status     SaveStatus `json:"status"`
}
