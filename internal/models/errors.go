package models

import (
	"errors"
	"fmt"
)

// Kind классифицирует доменную ошибку. По нему HTTP-слой выбирает статус ответа.
type Kind string

const (
	KindQuotaExceeded         Kind = "quota_exceeded"
	KindAlreadyOngoing        Kind = "already_ongoing"
	KindAlreadyAttempted      Kind = "already_attempted"
	KindNotAttempted          Kind = "not_attempted"
	KindInsufficientQuestions Kind = "insufficient_questions"
	KindNotFound              Kind = "not_found"
	KindInvalidInput          Kind = "invalid_input"
)

// Error доменная ошибка с видом и сообщением для пользователя.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is сравнивает ошибки по виду, поэтому errors.Is(err, ErrNotFound)
// срабатывает и для ошибок с другим сообщением.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrQuotaExceeded         = &Error{Kind: KindQuotaExceeded, Message: "daily limit reached"}
	ErrAlreadyOngoing        = &Error{Kind: KindAlreadyOngoing, Message: "another mock test is already in progress"}
	ErrAlreadyAttempted      = &Error{Kind: KindAlreadyAttempted, Message: "mock test already attempted"}
	ErrNotAttempted          = &Error{Kind: KindNotAttempted, Message: "mock test not attempted yet"}
	ErrNotStarted            = &Error{Kind: KindNotAttempted, Message: "mock test was not started"}
	ErrInsufficientQuestions = &Error{Kind: KindInsufficientQuestions, Message: "not enough questions available"}
	ErrNotFound              = &Error{Kind: KindNotFound, Message: "not found"}
	ErrInvalidInput          = &Error{Kind: KindInvalidInput, Message: "invalid input"}
)

// NewError создает доменную ошибку заданного вида с форматированным сообщением.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf возвращает вид доменной ошибки в цепочке или пустую строку.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Message возвращает сообщение доменной ошибки из цепочки.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
