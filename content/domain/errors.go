package domain

import "errors"

var (
	// ErrContentTooLarge: rejeição local e não fatal. O estado anterior fica intacto.
	ErrContentTooLarge = errors.New("content exceeds the maximum allowed size")
	// ErrStorageWrite embrulha a falha do store; o conteúdo em memória não se perde.
	ErrStorageWrite = errors.New("could not write to local storage")
)

func IsTooLarge(err error) bool {
	return errors.Is(err, ErrContentTooLarge)
}
