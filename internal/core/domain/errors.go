package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifica as falhas do gateway para que o chamador nunca
// receba um erro opaco cruzando a fronteira do componente
type ErrorKind string

const (
	// KindAuth: credenciais rejeitadas pelo banco; exige correção de configuração
	KindAuth ErrorKind = "AUTH"
	// KindRegistration: banco rejeitou o registro; nosso número nunca é reaproveitado
	KindRegistration ErrorKind = "REGISTRATION"
	// KindProvider: falha transitória do banco (5xx/timeout); já re-tentada uma vez
	KindProvider ErrorKind = "PROVIDER"
	// KindNotFound: nosso número desconhecido pelo banco ou pela base local
	KindNotFound ErrorKind = "NOT_FOUND"
	// KindValidation: entrada malformada, rejeitada antes de qualquer chamada de rede
	KindValidation ErrorKind = "VALIDATION"
	// KindInternal: falha inesperada de infraestrutura (persistência, serialização)
	KindInternal ErrorKind = "INTERNAL"
)

// Error é o erro estruturado do domínio: tipo + mensagem do parceiro
// preservada para diagnóstico.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewAuthError(msg string, cause error) *Error {
	return &Error{Kind: KindAuth, Message: msg, Cause: cause}
}

func NewRegistrationError(msg string, cause error) *Error {
	return &Error{Kind: KindRegistration, Message: msg, Cause: cause}
}

func NewProviderError(msg string, cause error) *Error {
	return &Error{Kind: KindProvider, Message: msg, Cause: cause}
}

func NewNotFoundError(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func NewValidationError(msg string, cause error) *Error {
	return &Error{Kind: KindValidation, Message: msg, Cause: cause}
}

func NewInternalError(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Cause: cause}
}

// KindDe extrai o tipo de um erro qualquer; erros fora da taxonomia
// são tratados como internos.
func KindDe(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// EKind verifica se o erro pertence ao tipo informado
func EKind(err error, kind ErrorKind) bool {
	return KindDe(err) == kind
}
