package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Dosada05/scrim-system/middleware"
	"github.com/Dosada05/scrim-system/services"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Коды ответа в поле code конверта.
const (
	CodeOK             = 0
	CodeValidation     = 1001
	CodePlayerNotFound = 1002
	CodeNotFound       = 1003
	CodeConflict       = 1004
	CodeInvalidState   = 1005
	CodeNotOnTeam      = 1006
	CodeUnauthorized   = middleware.CodeUnauthorized
	CodeUnavailable    = 9998
	CodeInternal       = 9999
)

// envelope is the uniform response body.
type envelope struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 1_048_576 // 1MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case errors.As(err, &maxBytesError):
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err) // Паника, т.к. это ошибка программиста (передан не указатель)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if !errors.Is(err, io.EOF) {
		return errors.New("body must only contain a single JSON value")
	}

	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(js)
	return err
}

func okResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if err := writeJSON(w, status, envelope{Code: CodeOK, Message: "success", Data: data}, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write response", requestAttr(r), slog.Any("error", err))
	}
}

func errorResponse(w http.ResponseWriter, r *http.Request, status, code int, message string) {
	if err := writeJSON(w, status, envelope{Code: code, Message: message}, nil); err != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", requestAttr(r), slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	slog.ErrorContext(r.Context(), "internal server error",
		requestAttr(r),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	message := "the server encountered a problem and could not process your request"
	errorResponse(w, r, http.StatusInternalServerError, CodeInternal, message)
}

func badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	errorResponse(w, r, http.StatusBadRequest, CodeValidation, err.Error())
}

func unauthorizedResponse(w http.ResponseWriter, r *http.Request, message string) {
	errorResponse(w, r, http.StatusUnauthorized, CodeUnauthorized, message)
}

func requestAttr(r *http.Request) slog.Attr {
	return slog.String("request_id", chimw.GetReqID(r.Context()))
}

// mapServiceErrorToHTTP преобразует ошибки сервисного слоя в HTTP-статус и код конверта.
func mapServiceErrorToHTTP(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrNotOnTeam):
		errorResponse(w, r, http.StatusForbidden, CodeNotOnTeam, err.Error())

	case errors.Is(err, services.ErrPlayerNotFound):
		errorResponse(w, r, http.StatusNotFound, CodePlayerNotFound, err.Error())

	case errors.Is(err, services.ErrRoomNotFound),
		errors.Is(err, services.ErrBPSessionNotFound),
		errors.Is(err, services.ErrMatchNotFound):
		errorResponse(w, r, http.StatusNotFound, CodeNotFound, err.Error())

	case errors.Is(err, services.ErrNicknameConflict),
		errors.Is(err, services.ErrSteamIDConflict),
		errors.Is(err, services.ErrAlreadyInRoom):
		errorResponse(w, r, http.StatusConflict, CodeConflict, err.Error())

	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrNotInRoom),
		errors.Is(err, services.ErrMatchAlreadyClosed):
		errorResponse(w, r, http.StatusConflict, CodeInvalidState, err.Error())

	case errors.Is(err, services.ErrValidationFailed),
		errors.Is(err, services.ErrPasswordTooShort),
		errors.Is(err, services.ErrNicknameInvalid),
		errors.Is(err, services.ErrInvalidScore),
		errors.Is(err, services.ErrInvalidStats),
		errors.Is(err, services.ErrInvalidAvatar):
		errorResponse(w, r, http.StatusBadRequest, CodeValidation, err.Error())

	case errors.Is(err, services.ErrInvalidCredentials):
		unauthorizedResponse(w, r, err.Error())

	case errors.Is(err, services.ErrConcurrentUpdate),
		errors.Is(err, services.ErrUnavailable),
		errors.Is(err, services.ErrStorageDisabled):
		slog.WarnContext(r.Context(), "retryable service error", requestAttr(r), slog.Any("error", err))
		errorResponse(w, r, http.StatusServiceUnavailable, CodeUnavailable, err.Error())

	default:
		serverErrorResponse(w, r, err)
	}
}

func getIDFromURL(r *http.Request, param string) (int, error) {
	idStr := chi.URLParam(r, param)
	if idStr == "" {
		return 0, fmt.Errorf("missing %s in URL path", param)
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format", param)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid %s value", param)
	}
	return id, nil
}

// currentPlayerID пишет 401 и возвращает false, если игрок не определён.
func currentPlayerID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := middleware.GetPlayerIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current player")
		return 0, false
	}
	return id, true
}
