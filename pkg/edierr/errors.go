package edierr

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/Gobusters/ectoerror/httperror"
)

// Kind classifies where in the exchange pipeline an error originated.
// The kind decides how the state machine records the failure: configuration
// errors short-circuit before any transform or network work, transport
// errors never revert an already-completed generation.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindFormat        Kind = "format"
	KindTransform     Kind = "transform"
	KindTransport     Kind = "transport"
	KindIntegrity     Kind = "integrity"
)

// ExchangeError carries the error kind plus pipeline context (partner,
// document type, segment index) accumulated as it bubbles up.
type ExchangeError struct {
	Kind         Kind
	Partner      string
	DocumentType string
	segmentIndex *int
	Message      string
}

func New(kind Kind, msg string) *ExchangeError {
	return &ExchangeError{
		Kind:    kind,
		Message: msg,
	}
}

// Newf creates a new ExchangeError with a formatted message
func Newf(kind Kind, format string, args ...any) *ExchangeError {
	for i, arg := range args {
		if err, ok := arg.(error); ok && strings.Contains(format, "%w") {
			format = strings.Replace(format, "%w", "%v", 1)
			args[i] = err.Error()
		}
	}

	return &ExchangeError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	}
}

func Wrap(kind Kind, e error) *ExchangeError {
	if e == nil {
		return nil
	}

	if exchangeError, ok := e.(*ExchangeError); ok {
		return exchangeError
	}

	return &ExchangeError{
		Kind:    kind,
		Message: e.Error(),
	}
}

func (e *ExchangeError) Error() string {
	path := []string{}
	if e.Partner != "" {
		path = append(path, fmt.Sprintf("partner '%s'", e.Partner))
	}
	if e.DocumentType != "" {
		path = append(path, fmt.Sprintf("document '%s'", e.DocumentType))
	}
	if e.segmentIndex != nil {
		path = append(path, fmt.Sprintf("segment %d", *e.segmentIndex))
	}

	if len(path) == 0 {
		return e.Message
	}

	return strings.Join(path, " -> ") + ": " + e.Message
}

func (e *ExchangeError) AddPartner(code string) *ExchangeError {
	e.Partner = code
	return e
}

func (e *ExchangeError) AddDocumentType(docType string) *ExchangeError {
	e.DocumentType = docType
	return e
}

func (e *ExchangeError) AddSegmentIndex(index int) *ExchangeError {
	e.segmentIndex = &index
	return e
}

func (e *ExchangeError) ToHTTPError() *httperror.HTTPError {
	code := http.StatusUnprocessableEntity
	if e.Kind == KindConfiguration {
		code = http.StatusBadRequest
	}
	return httperror.NewHTTPError(code, e.Error()).
		AddMetaValue("kind", string(e.Kind)).
		AddMetaValue("partner", e.Partner).
		AddMetaValue("document_type", e.DocumentType)
}

// IsKind reports whether err is an ExchangeError of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := err.(*ExchangeError)
	return ok && e.Kind == kind
}

func IsConfiguration(err error) bool { return IsKind(err, KindConfiguration) }
func IsFormat(err error) bool        { return IsKind(err, KindFormat) }
func IsTransport(err error) bool     { return IsKind(err, KindTransport) }
